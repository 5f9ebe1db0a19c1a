// Package pkce generates Proof Key for Code Exchange verifier/challenge pairs
// for the OAuth2 authorization code flow (RFC 7636, S256 method).
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/d-kuro/useraccount/pkg/constants"
)

// ErrEmptyChallenge is returned when no challenge could be derived from a verifier.
// A redirect must never be started with an empty challenge.
var ErrEmptyChallenge = errors.New("pkce: empty code challenge")

// Digest computes a 256-bit digest. Implementations must be byte-for-byte SHA-256.
type Digest interface {
	Sum(data []byte) [32]byte
}

// DigestFunc adapts a plain function to Digest.
type DigestFunc func(data []byte) [32]byte

// Sum implements Digest.
func (f DigestFunc) Sum(data []byte) [32]byte {
	return f(data)
}

// SHA256 is the reference Digest backed by crypto/sha256.
var SHA256 Digest = DigestFunc(sha256.Sum256)

// Pair is a verifier together with the challenge derived from it.
type Pair struct {
	Verifier  string
	Challenge string
	Method    string
}

// Generator produces verifiers and challenges. The zero value is not usable; use New.
type Generator struct {
	digest Digest
	random io.Reader
	log    logrus.FieldLogger
}

// Option configures a Generator.
type Option func(*Generator)

// WithDigest replaces the SHA-256 backend.
func WithDigest(d Digest) Option {
	return func(g *Generator) {
		g.digest = d
	}
}

// WithRandom replaces the cryptographic random source.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) {
		g.random = r
	}
}

// WithLogger sets the logger used to report digest failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(g *Generator) {
		g.log = log
	}
}

// New creates a Generator using crypto/rand and SHA-256 unless overridden.
func New(opts ...Option) *Generator {
	g := &Generator{
		digest: SHA256,
		random: rand.Reader,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Verifier returns a string of constants.VerifierLength characters drawn
// uniformly from [A-Za-z0-9].
func (g *Generator) Verifier() (string, error) {
	alphabet := constants.VerifierAlphabet
	size := big.NewInt(int64(len(alphabet)))

	out := make([]byte, constants.VerifierLength)
	for i := range out {
		n, err := rand.Int(g.random, size)
		if err != nil {
			return "", fmt.Errorf("pkce: failed to read random source: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

// Challenge returns base64url(digest(verifier)) without padding.
// A failing digest is logged and yields an empty string.
func (g *Generator) Challenge(verifier string) (challenge string) {
	defer func() {
		if r := recover(); r != nil {
			g.log.WithField("panic", r).Error("Failed to compute code challenge digest")
			challenge = ""
		}
	}()

	sum := g.digest.Sum([]byte(verifier))
	encoded := base64.StdEncoding.EncodeToString(sum[:])
	encoded = strings.NewReplacer("+", "-", "/", "_").Replace(encoded)
	return strings.TrimRight(encoded, "=")
}

// Generate creates a fresh verifier and its S256 challenge.
func (g *Generator) Generate() (*Pair, error) {
	verifier, err := g.Verifier()
	if err != nil {
		return nil, err
	}

	challenge := g.Challenge(verifier)
	if challenge == "" {
		return nil, ErrEmptyChallenge
	}

	return &Pair{
		Verifier:  verifier,
		Challenge: challenge,
		Method:    constants.CodeChallengeMethod,
	}, nil
}

var defaultGenerator = New()

// GenerateVerifier returns a verifier from the default generator.
func GenerateVerifier() (string, error) {
	return defaultGenerator.Verifier()
}

// GenerateChallenge returns the S256 challenge for verifier using SHA-256.
func GenerateChallenge(verifier string) string {
	return defaultGenerator.Challenge(verifier)
}

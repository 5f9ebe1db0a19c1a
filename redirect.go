package useraccount

import (
	"strings"

	"golang.org/x/oauth2"

	"github.com/d-kuro/useraccount/pkg/constants"
)

// CodeFromMessage extracts the authorization code from a redirect callback
// payload: the longest run of [A-Za-z0-9] after the last "code=" marker.
// It returns "" when the marker is missing or followed by no such character.
func CodeFromMessage(message string) string {
	pos := strings.LastIndex(message, constants.CodeMarker)
	if pos < 0 {
		return ""
	}

	rest := message[pos+len(constants.CodeMarker):]
	end := strings.IndexFunc(rest, func(r rune) bool {
		return !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	if end < 0 {
		return rest
	}
	return rest[:end]
}

// AuthorizationURL builds the authorization request URL for challenge.
func (c *Config) AuthorizationURL(challenge string) string {
	conf := &oauth2.Config{
		ClientID:    c.ClientID,
		Endpoint:    oauth2.Endpoint{AuthURL: c.authorizeURL()},
		RedirectURL: c.RedirectURI,
		Scopes:      []string{c.Scope},
	}
	return conf.AuthCodeURL("",
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", constants.CodeChallengeMethod),
		oauth2.SetAuthURLParam(constants.ChooseAccountParam, "1"),
	)
}

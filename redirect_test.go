package useraccount

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeFromMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{name: "query", message: "prusaslicer://login?code=AbC123&state=xyz", want: "AbC123"},
		{name: "fragment of a larger payload", message: "...&code=AbC123&state=xyz", want: "AbC123"},
		{name: "end of message", message: "code=abc", want: "abc"},
		{name: "stops at first non alphanumeric", message: "code=a-b", want: "a"},
		{name: "last marker wins", message: "code=first&code=second", want: "second"},
		{name: "no marker", message: "prusaslicer://login?error=access_denied", want: ""},
		{name: "empty value", message: "prusaslicer://login?code=", want: ""},
		{name: "encoded value", message: "code=%20x", want: ""},
		{name: "empty", message: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeFromMessage(tt.message))
		})
	}
}

func TestAuthorizationURL(t *testing.T) {
	config := NewConfig(WithClientID("client"), WithAuthHost("https://auth.example.com"))

	u, err := url.Parse(config.AuthorizationURL("challenge"))
	require.NoError(t, err)

	assert.Equal(t, "auth.example.com", u.Host)
	assert.Equal(t, "/o/authorize/", u.Path)

	q := u.Query()
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "challenge", q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "basic_info", q.Get("scope"))
	assert.Equal(t, "prusaslicer://login", q.Get("redirect_uri"))
	assert.Equal(t, "1", q.Get("choose_account"))
}

package useraccount

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-kuro/useraccount/pkg/constants"
)

func TestNewHTTPClient(t *testing.T) {
	client := newHTTPClient(constants.DefaultHTTPTimeout)
	assert.Equal(t, constants.DefaultHTTPTimeout, client.Timeout)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, constants.TLSHandshakeTimeout, transport.TLSHandshakeTimeout)
	assert.True(t, transport.ForceAttemptHTTP2)
}

func TestCheckRedirect(t *testing.T) {
	request := func(raw string) *http.Request {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		return &http.Request{URL: u}
	}

	via := []*http.Request{request("https://account.prusa3d.com/api/v1/me/")}
	assert.NoError(t, checkRedirect(request("https://cdn.prusa3d.com/avatar.png"), via))
	assert.Error(t, checkRedirect(request("http://cdn.prusa3d.com/avatar.png"), via))

	var long []*http.Request
	for i := 0; i < constants.MaxRedirects; i++ {
		long = append(long, request("https://account.prusa3d.com/"))
	}
	assert.Error(t, checkRedirect(request("https://account.prusa3d.com/"), long))
}

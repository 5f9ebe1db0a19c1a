package useraccount

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/d-kuro/useraccount/pkg/constants"
)

// newHTTPClient returns the client used for the token endpoint and the
// account APIs. Redirects are followed only over HTTPS and at most
// constants.MaxRedirects times.
func newHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   constants.DefaultDialerTimeout,
		KeepAlive: constants.KeepAliveTimeout,
	}

	return &http.Client{
		Timeout:       timeout,
		CheckRedirect: checkRedirect,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			MaxIdleConns:          constants.MaxIdleConns,
			MaxIdleConnsPerHost:   constants.MaxIdleConnsPerHost,
			IdleConnTimeout:       constants.IdleConnTimeout,
			TLSHandshakeTimeout:   constants.TLSHandshakeTimeout,
			ResponseHeaderTimeout: constants.ResponseHeaderTimeout,
			ExpectContinueTimeout: constants.ExpectContinueTimeout,
			ForceAttemptHTTP2:     true,
		},
	}
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= constants.MaxRedirects {
		return fmt.Errorf("too many redirects (max: %d)", constants.MaxRedirects)
	}
	// Never downgrade: the request carries a bearer token.
	if len(via) > 0 && via[0].URL.Scheme == "https" && req.URL.Scheme != "https" {
		return fmt.Errorf("redirect from HTTPS to %s is not allowed", req.URL.Scheme)
	}
	return nil
}

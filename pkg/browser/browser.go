// Package browser opens the authorization page and, for hosts without a
// registered custom URI scheme, receives the redirect on a loopback server.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"

	"github.com/d-kuro/useraccount/pkg/constants"
)

// startCommand is replaced in tests.
var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Open opens url in the default browser.
func Open(url string) error {
	var cmd string
	var args []string

	if commands, exists := constants.BrowserCommands[runtime.GOOS]; exists {
		cmd = commands[0]
		if len(commands) > 1 {
			args = commands[1:]
		}
	} else {
		cmd = "xdg-open"
	}
	args = append(args, url)
	return startCommand(cmd, args...)
}

// Receiver is a one-shot loopback HTTP server that captures the redirect
// callback and hands over the raw callback URL.
type Receiver struct {
	listener net.Listener
	server   *http.Server
	messages chan string
	once     sync.Once
}

// Listen starts a Receiver on a free loopback port.
func Listen() (*Receiver, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen on loopback: %w", err)
	}

	r := &Receiver{
		listener: listener,
		messages: make(chan string, 1),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(constants.LoopbackCallbackPath, r.handleCallback)
	r.server = &http.Server{Handler: mux}

	go func() {
		_ = r.server.Serve(listener) // ErrServerClosed after Close
	}()
	return r, nil
}

// RedirectURI returns the URI to register as the redirect target.
func (r *Receiver) RedirectURI() string {
	return "http://" + r.listener.Addr().String() + constants.LoopbackCallbackPath
}

// Wait blocks until the first callback arrives or ctx is done.
func (r *Receiver) Wait(ctx context.Context) (string, error) {
	select {
	case msg := <-r.messages:
		return msg, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close shuts the server down.
func (r *Receiver) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancel()
	err := r.server.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (r *Receiver) handleCallback(w http.ResponseWriter, req *http.Request) {
	if errMsg := req.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, "Login failed: "+errMsg, http.StatusBadRequest)
	} else {
		_, _ = fmt.Fprintln(w, "Login complete. You can close this window.")
	}

	r.once.Do(func() {
		r.messages <- r.RedirectURI() + "?" + req.URL.RawQuery
	})
}

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/d-kuro/useraccount"
	"github.com/d-kuro/useraccount/pkg/browser"
	"github.com/d-kuro/useraccount/pkg/types"
)

var loopback = false

func init() {
	loginCmd.Flags().BoolVar(&loopback, "loopback", false, "receive the redirect on a local HTTP server instead of stdin")
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in through the browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []useraccount.ConfigOption
		var receiver *browser.Receiver
		if loopback {
			var err error
			receiver, err = browser.Listen()
			if err != nil {
				return err
			}
			defer receiver.Close()
			opts = append(opts, useraccount.WithRedirectURI(receiver.RedirectURI()))
		}

		cfg, err := loadConfig(opts...)
		if err != nil {
			return err
		}
		c, err := newClient(cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		c.comm.DoLogin()
		e, err := c.await(ctx, func(e types.Event) bool {
			return e.Kind == types.EventOpenAuthURL || e.Kind == types.EventLoginSucceeded
		})
		if err != nil {
			return err
		}
		if e.Kind == types.EventLoginSucceeded {
			fmt.Printf("Already logged in as %s\n", e.Username)
			return nil
		}

		fmt.Printf("Opening the login page in your browser...\nIf it does not open, visit:\n\n%s\n\n", e.URL)
		if err := browser.Open(e.URL); err != nil {
			cfg.Logger.WithError(err).Warn("Failed to open browser")
		}

		message, err := redirectMessage(ctx, receiver)
		if err != nil {
			return err
		}
		c.comm.OnLoginCodeReceived(message)

		e, err = c.await(ctx, kindIs(types.EventLoginSucceeded))
		if err != nil {
			return err
		}
		cfg.Logger.WithFields(logrus.Fields{"username": e.Username}).Info("Logged in")
		fmt.Printf("Logged in as %s\n", e.Username)
		return nil
	},
}

// redirectMessage waits for the redirect payload, from the loopback server
// when one runs, otherwise from the URL pasted on stdin.
func redirectMessage(ctx context.Context, receiver *browser.Receiver) (string, error) {
	if receiver != nil {
		return receiver.Wait(ctx)
	}

	fmt.Print("Paste the prusaslicer://login URL the browser was redirected to: ")
	lines := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	select {
	case line, ok := <-lines:
		if !ok {
			return "", fmt.Errorf("no redirect URL on stdin")
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

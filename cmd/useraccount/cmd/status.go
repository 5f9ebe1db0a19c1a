package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/d-kuro/useraccount/pkg/storage"
	"github.com/d-kuro/useraccount/pkg/tokencache"
	"github.com/d-kuro/useraccount/pkg/types"
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(printersCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the logged in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ok, err := resumeSession(cmd.Context())
		if err != nil || !ok {
			return err
		}
		defer c.Close()

		fmt.Printf("Logged in as %s\n", c.comm.Username())
		fmt.Printf("Shared session key: %s\n", c.comm.SharedSessionKey())
		return nil
	},
}

var printersCmd = &cobra.Command{
	Use:   "printers",
	Short: "List the printer models registered in Prusa Connect",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ok, err := resumeSession(cmd.Context())
		if err != nil || !ok {
			return err
		}
		defer c.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		c.comm.EnqueueConnectPrinterModels()
		e, err := c.await(ctx, func(e types.Event) bool {
			return e.Kind == types.EventActionSucceeded && e.Action == types.ActionConnectPrinterModels
		})
		if err != nil {
			return err
		}

		var body any
		if err := json.Unmarshal(e.Data, &body); err != nil {
			_, err = os.Stdout.Write(e.Data)
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(body)
	},
}

// resumeSession starts a client from the stored tokens and waits until the
// account server confirmed them. ok is false when nothing is stored.
func resumeSession(parent context.Context) (*client, bool, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}

	store, err := storage.New(cfg.Store, cfg.AppName, cfg.StoreDir)
	if err != nil {
		return nil, false, err
	}
	if bundle, found := tokencache.New(store, cfg.Logger).Load(); !found || !bundle.HasRefreshToken() {
		fmt.Println("Not logged in")
		return nil, false, nil
	}
	cfg.SecretStore = store

	c, err := newClient(cfg)
	if err != nil {
		return nil, false, err
	}

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	if _, err := c.await(ctx, kindIs(types.EventLoginSucceeded)); err != nil {
		c.Close()
		return nil, false, err
	}
	return c, true, nil
}

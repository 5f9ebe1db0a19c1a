package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/d-kuro/useraccount/pkg/types"
)

func init() {
	rootCmd.AddCommand(logoutCmd)
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored account tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
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

		c.comm.DoLogout()
		if _, err := c.await(ctx, kindIs(types.EventLoggedOut)); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil
	},
}

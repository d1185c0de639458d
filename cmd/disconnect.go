// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"sqlbench/cli/internal/keychain"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	disconnectDSN   bool
	disconnectToken bool
)

// disconnectCmd removes secrets saved by 'sqlbench connect'.
var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Remove saved connection secrets",
	Long: `The disconnect command removes the DSN and API token that 'sqlbench connect'
stored in the OS keychain. Use --dsn-only or --token-only to remove just one.
The config file is left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			pterm.Error.Println("Secure storage is not available on this system.")
			return err
		}

		switch {
		case disconnectDSN && !disconnectToken:
			err = km.ClearDSN()
		case disconnectToken && !disconnectDSN:
			err = km.ClearAPIToken()
		default:
			err = km.ClearAll()
		}
		if err != nil {
			pterm.Error.Println("Failed to remove saved secrets.")
			return err
		}
		pterm.Success.Println("Saved connection secrets have been removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(disconnectCmd)
	disconnectCmd.Flags().BoolVar(&disconnectDSN, "dsn-only", false, "remove only the saved DSN")
	disconnectCmd.Flags().BoolVar(&disconnectToken, "token-only", false, "remove only the saved API token")
}

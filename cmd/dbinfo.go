// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"os"
	"strings"

	"sqlbench/cli/internal/config"
	"sqlbench/cli/internal/dsn"
	"sqlbench/cli/internal/keychain"
	"sqlbench/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// dbinfoCmd shows the effective connection settings with secrets masked.
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo",
	Short: "Show the effective connection settings",
	Long: `The dbinfo command displays where statements will be sent: the DSN for direct
mode (password masked) or the Query Service URL, plus the settings that apply.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var lines []string

		rawDSN, source := effectiveDSN()
		if rawDSN != "" {
			lines = append(lines,
				"Mode:     direct",
				"DSN:      "+maskDSN(rawDSN),
				"Source:   "+source,
			)
		} else {
			token := "none"
			if resolveToken() != "" {
				token = "configured"
			}
			lines = append(lines,
				"Mode:     rest",
				"Backend:  "+cfg.BackendURL,
				"Token:    "+token,
			)
		}

		database := cfg.Database
		if database == "" {
			database = "(service default)"
		}
		cfgFile := cfgUsed
		if cfgFile == "" {
			cfgFile = "(none)"
		}
		lines = append(lines,
			"Database: "+database,
			fmt.Sprintf("Timeouts: request %s, query %s", cfg.RequestTimeout, cfg.QueryTimeout),
			fmt.Sprintf("Max rows: %d", cfg.MaxRows),
			"Config:   "+cfgFile,
		)

		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Connection")).
			WithPadding(1).
			Println(strings.Join(lines, "\n"))
		pterm.Println()
		pterm.Println("To update this connection, run: sqlbench connect")
		return nil
	},
}

// effectiveDSN returns the DSN direct mode would use and where it came from.
func effectiveDSN() (string, string) {
	if v := strings.TrimSpace(cfg.DSN); v != "" {
		if strings.TrimSpace(os.Getenv(config.EnvPrefix+"DSN")) == v {
			return v, config.EnvPrefix + "DSN environment variable"
		}
		return v, "--dsn flag or config"
	}
	km, err := keychain.GetManager()
	if err != nil {
		return "", ""
	}
	v, err := km.LoadDSN()
	if err != nil {
		return "", ""
	}
	return v, "OS keychain"
}

// maskDSN hides credentials in a DSN for display.
func maskDSN(raw string) string {
	if info, err := dsn.ParseInfo(raw); err == nil {
		return info.Redacted()
	}
	return logging.Mask(raw)
}

func init() {
	rootCmd.AddCommand(dbinfoCmd)
}

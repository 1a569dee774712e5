// Package cli implements the console command-line interface.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{
				"error": err.Error(),
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				errObj["http_status"] = apiErr.HTTPStatus
				errObj["code"] = apiErr.Code
			}
			_ = json.NewEncoder(os.Stdout).Encode(errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		host   string
		token  string
		output string
	)

	rootCmd := &cobra.Command{
		Use:           "console",
		Short:         "Session-management console CLI",
		Long:          "Command-line interface for the session-management console authorization API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "console API host")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token (env: CONSOLE_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&output, "output", "text", "output format: text or json")

	client := func() *Client {
		t := token
		if t == "" {
			t = os.Getenv("CONSOLE_TOKEN")
		}
		h := host
		if v := os.Getenv("CONSOLE_HOST"); v != "" && !rootCmd.PersistentFlags().Changed("host") {
			h = v
		}
		return NewClient(h, t)
	}

	rootCmd.AddCommand(newDecideCmd(client))
	rootCmd.AddCommand(newReloadCmd(client))
	rootCmd.AddCommand(newRolesCmd(client))
	rootCmd.AddCommand(newUserCmd(client))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func getOutputFormat(cmd *cobra.Command) string {
	output, _ := cmd.Flags().GetString("output")
	return output
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

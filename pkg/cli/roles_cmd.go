package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

type rolesResponse struct {
	Roles       []string `json:"roles"`
	DefaultRole string   `json:"defaultRole"`
}

func newRolesCmd(client func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List the loaded roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp rolesResponse
			if err := client().Do(http.MethodGet, "/roles", nil, &resp); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd, resp)
			}
			for _, role := range resp.Roles {
				if role == resp.DefaultRole {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (default)\n", role)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), role)
				}
			}
			return nil
		},
	}
}

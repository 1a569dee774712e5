package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

type userResponse struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

func newUserCmd(client func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "user <user-id>",
		Short: "Show a user's display name and role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp userResponse
			if err := client().Do(http.MethodGet, "/users/"+args[0], nil, &resp); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd, resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", resp.UserID, resp.DisplayName, resp.Role)
			return nil
		},
	}
}

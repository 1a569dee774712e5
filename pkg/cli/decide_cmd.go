package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

type decideRequest struct {
	PrincipalType string `json:"principalType,omitempty"`
	PrincipalID   string `json:"principalId"`
	Action        string `json:"action"`
	ResourceType  string `json:"resourceType,omitempty"`
	ResourceID    string `json:"resourceId,omitempty"`
}

type decideResponse struct {
	Allowed bool `json:"allowed"`
}

func newDecideCmd(client func() *Client) *cobra.Command {
	var (
		principalType string
		resourceType  string
		resourceID    string
	)

	cmd := &cobra.Command{
		Use:   "decide <principal> <action>",
		Short: "Ask the engine whether a principal may perform an action",
		Example: `  # System-level decision
  console decide alice viewSessions

  # Resource-level decision
  console decide alice viewResource --resource-type Session --resource-id sess-123`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := decideRequest{
				PrincipalType: principalType,
				PrincipalID:   args[0],
				Action:        args[1],
				ResourceType:  resourceType,
				ResourceID:    resourceID,
			}
			var resp decideResponse
			if err := client().Do(http.MethodPost, "/decisions", req, &resp); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd, resp)
			}
			if resp.Allowed {
				fmt.Fprintln(cmd.OutOrStdout(), "ALLOW")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "DENY")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&principalType, "principal-type", "", "principal type: User or Group (default User)")
	cmd.Flags().StringVar(&resourceType, "resource-type", "", "resource type: Session or SessionTemplate")
	cmd.Flags().StringVar(&resourceID, "resource-id", "", "resource id")

	return cmd
}

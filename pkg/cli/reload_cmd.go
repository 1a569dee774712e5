package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newReloadCmd(client func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Rebuild the entity graph from the systems of record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp map[string]string
			if err := client().Do(http.MethodPost, "/reload", nil, &resp); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd, resp)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "reloaded")
			return nil
		},
	}
}

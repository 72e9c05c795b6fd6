package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the server is running",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	client := newClient()
	return checkServer(cmd, client)
}

// checkServer 打印服务状态，服务不可用时返回错误
func checkServer(cmd *cobra.Command, client *Client) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Checking server at %s...\n", client.BaseURL())

	health, err := client.Health(cmd.Context())
	if err != nil {
		failColor.Fprintln(out, "❌ Server is NOT running.")
		return err
	}
	okColor.Fprintf(out, "✅ Server is running! (%d vectors indexed)\n", health.Vectors)
	return nil
}

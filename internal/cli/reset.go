package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all indexed documents and uploaded files",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if !resetYes {
		fmt.Fprint(out, "This will delete all indexed documents and uploaded files. Continue? [y/N]: ")
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	resp, err := newClient().Reset(cmd.Context())
	if err != nil {
		failColor.Fprintf(out, "❌ Reset failed: %v\n", err)
		return fmt.Errorf("reset failed: %w", err)
	}
	okColor.Fprintf(out, "✅ %s\n", resp.Message)
	return nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed documents",
	Long: `Asks the server a question. The answer is grounded on the indexed PDFs
and printed together with its citations.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the response as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	if askJSON {
		resp, err := newClient().Ask(cmd.Context(), question)
		if err != nil {
			return fmt.Errorf("ask failed: %w", err)
		}
		return printJSON(cmd, resp)
	}
	return askQuestion(cmd, newClient(), question)
}

// askQuestion 提问并打印回答和引用
func askQuestion(cmd *cobra.Command, client *Client, question string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Asking: '%s'...\n", question)
	resp, err := client.Ask(cmd.Context(), question)
	if err != nil {
		failColor.Fprintf(out, "❌ Ask failed: %v\n", err)
		return fmt.Errorf("ask failed: %w", err)
	}

	infoColor.Fprintln(out, "\n🤖 Answer:")
	fmt.Fprintln(out, resp.Answer)
	infoColor.Fprintln(out, "\n📄 Citations:")
	for _, cite := range resp.Citations {
		fmt.Fprintf(out, "- [%s p.%d]: %s\n", cite.Source, cite.Page, strings.TrimSpace(cite.Content))
	}
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

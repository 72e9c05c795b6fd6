package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyerfyer/campusdoc-tutor/api/model"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [pdf]",
	Short: "Upload a PDF and index it",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the response as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestJSON {
		resp, err := newClient().Ingest(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		return printJSON(cmd, resp)
	}
	_, err := ingestFile(cmd, newClient(), args[0])
	return err
}

// ingestFile 上传文件并打印结果
func ingestFile(cmd *cobra.Command, client *Client, path string) (*model.IngestResponse, error) {
	out := cmd.OutOrStdout()
	if _, err := os.Stat(path); err != nil {
		failColor.Fprintf(out, "❌ File not found: %s\n", path)
		return nil, fmt.Errorf("file not found: %s", path)
	}

	fmt.Fprintf(out, "Uploading %s...\n", path)
	resp, err := client.Ingest(cmd.Context(), path)
	if err != nil {
		failColor.Fprintf(out, "❌ Ingest failed: %v\n", err)
		return nil, fmt.Errorf("ingest failed: %w", err)
	}

	okColor.Fprintf(out, "✅ Ingest successful: %s (%d chunks)\n", resp.FileName, resp.ChunksCount)
	if len(resp.Suggestions) > 0 {
		fmt.Fprintln(out, "\n💡 Suggested questions:")
		for _, q := range resp.Suggestions {
			fmt.Fprintf(out, "- %s\n", q)
		}
	}
	return resp, nil
}

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List uploaded PDF files",
	Args:  cobra.NoArgs,
	RunE:  runFiles,
}

var (
	recordsPage     int
	recordsPageSize int
	recordsStatus   string
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List ingestion records",
	Args:  cobra.NoArgs,
	RunE:  runRecords,
}

func init() {
	recordsCmd.Flags().IntVar(&recordsPage, "page", 1, "page number")
	recordsCmd.Flags().IntVar(&recordsPageSize, "page-size", 10, "records per page")
	recordsCmd.Flags().StringVar(&recordsStatus, "status", "", "filter by status (indexed or failed)")
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(recordsCmd)
}

func runFiles(cmd *cobra.Command, _ []string) error {
	client := newClient()
	resp, err := client.Files(cmd.Context())
	if err != nil {
		return fmt.Errorf("list files failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(resp.Files) == 0 {
		fmt.Fprintln(out, "No files uploaded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tURL")
	for _, f := range resp.Files {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.Name, f.Size, client.BaseURL()+f.URL)
	}
	return w.Flush()
}

func runRecords(cmd *cobra.Command, _ []string) error {
	resp, err := newClient().Records(cmd.Context(), recordsPage, recordsPageSize, recordsStatus)
	if err != nil {
		return fmt.Errorf("list records failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(resp.Records) == 0 {
		fmt.Fprintln(out, "No ingestion records.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tFILE\tSTATUS\tCHUNKS\tDURATION\tERROR")
	for _, r := range resp.Records {
		status := r.Status
		if r.FailedStage != "" {
			status += " (" + r.FailedStage + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%dms\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.FileName, status, r.ChunkCount, r.DurationMS, r.Error)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nPage %d, %d of %d records\n", resp.Page, len(resp.Records), resp.Total)
	return nil
}

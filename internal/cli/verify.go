package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Interactively ingest a PDF and ask questions",
	Long: `Checks the server, optionally uploads a PDF, then keeps asking
questions until 'q' is entered.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, _ []string) error {
	client := newClient()
	if err := checkServer(cmd, client); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())

	fmt.Fprintln(out, "\n--- CampusDoc Tutor Verification ---")
	fmt.Fprint(out, "Enter path to a PDF file to ingest (or press Enter to skip ingest): ")
	path, err := readLine(reader)
	if err != nil && err != io.EOF {
		return err
	}
	path = trimQuotes(path)
	if path != "" {
		// 上传失败不结束会话，可以继续对已有文档提问
		_, _ = ingestFile(cmd, client, path)
	}

	for {
		fmt.Fprint(out, "\nEnter a question (or 'q' to quit): ")
		q, err := readLine(reader)
		if strings.EqualFold(q, "q") {
			return nil
		}
		if q != "" {
			_ = askQuestion(cmd, client, q)
		}
		if err == io.EOF {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// readLine 读取一行并去掉首尾空白
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	return strings.TrimSpace(line), err
}

// trimQuotes 去掉粘贴路径时带上的双引号
func trimQuotes(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}

// Package cli 实现tutorctl命令行客户端
package cli

import (
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// DefaultServer 默认服务端地址
const DefaultServer = "http://localhost:8000"

// ServerEnv 覆盖默认服务端地址的环境变量
const ServerEnv = "CAMPUSDOC_SERVER"

var (
	serverURL      string
	requestTimeout time.Duration
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
	infoColor = color.New(color.FgCyan)
)

var rootCmd = &cobra.Command{
	Use:   "tutorctl",
	Short: "Command line client for CampusDoc Tutor",
	Long: `tutorctl talks to a running CampusDoc Tutor server.
It uploads lecture PDFs, asks questions and manages the index.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer(), "CampusDoc Tutor server URL")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 5*time.Minute, "request timeout")
}

// Execute 运行根命令
func Execute() error {
	return rootCmd.Execute()
}

func defaultServer() string {
	if v := os.Getenv(ServerEnv); v != "" {
		return v
	}
	return DefaultServer
}

func newClient() *Client {
	return NewClient(serverURL, requestTimeout)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/logger"
)

const app = "resumectl"

// rootOptions 所有子命令共享的参数
type rootOptions struct {
	configPath string
	debug      bool
	jsonLog    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           app,
		Short:         "resumectl parses PDF/DOCX resumes into structured JSON from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cfg := logger.Config{Level: "warn", Format: "pretty", TimeFormat: "15:04:05"}
			if opts.debug {
				cfg.Level = "debug"
			}
			if opts.jsonLog {
				cfg.Format = "json"
			}
			logger.InitWithWriter(cfg, cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "a config file (default: built-in defaults)")
	cmd.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "verbose/debug output")
	cmd.PersistentFlags().BoolVarP(&opts.jsonLog, "json", "j", false, "json format for logging")

	cmd.AddCommand(
		newParseCmd(opts),
		newFingerprintCmd(),
		newConfigCmd(),
		newCacheCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig 指定了 --config 时读取文件，否则使用默认配置和环境变量
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(o.configPath)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s\n", app, constants.ParserVersion)
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/storage"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init <path>",
		Short: "Write a sample config with default values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.CreateSampleConfig(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "示例配置已写入 %s\n", args[0])
			return nil
		},
	}, &cobra.Command{
		Use:   "validate <path>",
		Short: "Check that a config file parses and its weights are valid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadConfigFromFileOnly(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "配置有效")
			return nil
		},
	})
	return cmd
}

func newCacheCmd(root *rootOptions) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the local sqlite result cache",
	}
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			path := dbPath
			if path == "" {
				path = cfg.Cache.SQLitePath
			}
			store, err := storage.NewSQLiteCacheStore(path, config.GetDuration(cfg.Cache.TTL, constants.DefaultCacheTTL))
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.Purge(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已删除 %d 条过期缓存\n", n)
			return nil
		},
	}
	purge.Flags().StringVar(&dbPath, "cache-db", "", "sqlite cache file (default: cache.sqlite_path)")
	cmd.AddCommand(purge)
	return cmd
}

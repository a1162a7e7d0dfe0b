package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/constants"
	"resume-parser-go/internal/logger"
	"resume-parser-go/internal/processor"
	"resume-parser-go/internal/storage"
	"resume-parser-go/internal/types"
)

type parseOptions struct {
	format  string
	cacheDB string
	noCache bool
	detail  bool
	compact bool
	timeout time.Duration
}

func newParseCmd(root *rootOptions) *cobra.Command {
	o := &parseOptions{}
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a resume and print the structured record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			return runParse(cmd.Context(), cfg, o, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&o.format, "format", "f", "", "document format (pdf|docx), default from file extension")
	cmd.Flags().StringVar(&o.cacheDB, "cache-db", "", "sqlite file used as result cache")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&o.detail, "detail", false, "include fingerprint, cache hit and duration")
	cmd.Flags().BoolVar(&o.compact, "compact", false, "print compact JSON")
	cmd.Flags().DurationVar(&o.timeout, "timeout", constants.DefaultProcessingTimeout, "processing timeout")
	return cmd
}

func runParse(ctx context.Context, cfg *config.Config, o *parseOptions, path string, out io.Writer) error {
	doc, err := readDocument(path, o.format, cfg.MaxFileSize())
	if err != nil {
		return err
	}

	store, closeStore, err := cliCacheStore(cfg, o)
	if err != nil {
		return err
	}
	defer closeStore()

	proc, err := processor.NewFromConfig(ctx, cfg, store, nil, logger.Component(app))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	outcome, err := proc.ProcessDetailed(ctx, doc)
	if err != nil {
		return err
	}

	var v interface{} = outcome.Record
	if o.detail {
		v = struct {
			Fingerprint string              `json:"fingerprint"`
			CacheHit    bool                `json:"cache_hit"`
			DurationMS  int64               `json:"duration_ms"`
			Result      *types.ResumeRecord `json:"result"`
		}{outcome.Fingerprint, outcome.CacheHit, outcome.Duration.Milliseconds(), outcome.Record}
	}
	enc := json.NewEncoder(out)
	if !o.compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// cliCacheStore 命令行只使用 sqlite 缓存，进程内缓存在单次运行中没有意义
func cliCacheStore(cfg *config.Config, o *parseOptions) (storage.CacheStore, func(), error) {
	nop := func() {}
	if o.noCache {
		return nil, nop, nil
	}
	path := o.cacheDB
	if path == "" && cfg.Cache.Backend == config.CacheBackendSQLite {
		path = cfg.Cache.SQLitePath
	}
	if path == "" {
		return nil, nop, nil
	}
	store, err := storage.NewSQLiteCacheStore(path, config.GetDuration(cfg.Cache.TTL, constants.DefaultCacheTTL))
	if err != nil {
		return nil, nop, err
	}
	return store, func() { store.Close() }, nil
}

// readDocument 读取文件，format 为空时按扩展名判断。无法识别的格式交给流水线返回 UnsupportedFormat。
func readDocument(path, format string, maxSize int64) (types.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.RawDocument{}, err
	}
	if maxSize > 0 && info.Size() > maxSize {
		return types.RawDocument{}, fmt.Errorf("文件 %s 超过大小上限 (%d > %d 字节)", path, info.Size(), maxSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.RawDocument{}, err
	}
	if format == "" {
		format = filepath.Ext(path)
	}
	f, _ := types.ParseDocumentFormat(format)
	return types.RawDocument{Format: f, Data: data}, nil
}

func newFingerprintCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "fingerprint <file>",
		Short: "Print the cache fingerprint of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0], format, 0)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), processor.Fingerprint(doc))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "document format (pdf|docx), default from file extension")
	return cmd
}

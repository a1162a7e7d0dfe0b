package parser

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEinoPDFTextExtractor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	extractor, err := NewEinoPDFTextExtractor(ctx)
	require.NoError(t, err)
	require.NotNil(t, extractor.logger, "PDF提取器应该有默认的logger")

	var buf bytes.Buffer
	custom := zerolog.New(&buf).Level(zerolog.DebugLevel)
	withLogger, err := NewEinoPDFTextExtractor(ctx, WithEinoLogger(&custom))
	require.NoError(t, err)
	assert.Same(t, &custom, withLogger.logger)

	// nil 不覆盖默认 logger
	withNil, err := NewEinoPDFTextExtractor(ctx, WithEinoLogger(nil))
	require.NoError(t, err)
	assert.NotNil(t, withNil.logger)
}

func TestExtractPagesEmpty(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var buf bytes.Buffer
	lg := zerolog.New(&buf).Level(zerolog.DebugLevel)
	extractor, err := NewEinoPDFTextExtractor(ctx, WithEinoLogger(&lg))
	require.NoError(t, err)

	_, err = extractor.ExtractPages(ctx, nil, "memory://empty.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptDocument))
	assert.Contains(t, buf.String(), "memory://empty.pdf", "失败时应记录来源")
}

// testdata 下放置真实 PDF 时才会运行
func TestExtractPagesFromTestdata(t *testing.T) {
	files, _ := filepath.Glob(filepath.Join("testdata", "*.pdf"))
	if len(files) == 0 {
		t.Skip("testdata 中没有 PDF 文件")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	extractor, err := NewEinoPDFTextExtractor(ctx)
	require.NoError(t, err)

	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			data, err := os.ReadFile(f)
			require.NoError(t, err)

			pages, err := extractor.ExtractPages(ctx, data, f)
			require.NoError(t, err)
			assert.NotEmpty(t, pages)

			again, err := extractor.ExtractPages(ctx, data, f)
			require.NoError(t, err)
			assert.Equal(t, pages, again, "同一文件的提取结果稳定")
		})
	}
}

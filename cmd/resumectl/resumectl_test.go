package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-parser-go/internal/testutil"
	"resume-parser-go/internal/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeResume(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cv.docx")
	require.NoError(t, os.WriteFile(path, testutil.DOCXFromText(testutil.ScenarioResume), 0o644))
	return path
}

func TestParseCommand(t *testing.T) {
	path := writeResume(t)

	out, err := execute(t, "parse", path, "--no-cache")
	require.NoError(t, err)

	var rec types.ResumeRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	require.Len(t, rec.PersonalInfo.Records, 1)
	assert.Equal(t, "jane@example.com", rec.PersonalInfo.Records[0].Text(types.KeyEmail))
	assert.Greater(t, rec.OverallConfidence, 0.0)
}

func TestParseCommandDetailWithSQLiteCache(t *testing.T) {
	path := writeResume(t)
	db := filepath.Join(t.TempDir(), "cache.db")

	var first, second struct {
		Fingerprint string `json:"fingerprint"`
		CacheHit    bool   `json:"cache_hit"`
	}
	out, err := execute(t, "parse", path, "--cache-db", db, "--detail", "--compact")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.False(t, first.CacheHit)

	out, err = execute(t, "parse", path, "--cache-db", db, "--detail")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.True(t, second.CacheHit, "第二次解析应命中 sqlite 缓存")
	assert.Equal(t, first.Fingerprint, second.Fingerprint)

	out, err = execute(t, "cache", "purge", "--cache-db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "0")
}

func TestParseCommandErrors(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "cv.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain text"), 0o644))

	_, err := execute(t, "parse", txt, "--no-cache")
	assert.Error(t, err, "不支持的格式")

	_, err = execute(t, "parse", filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)

	_, err = execute(t, "parse")
	assert.Error(t, err, "缺少文件参数")
}

func TestFingerprintCommand(t *testing.T) {
	path := writeResume(t)

	a, err := execute(t, "fingerprint", path)
	require.NoError(t, err)
	b, err := execute(t, "fingerprint", path, "--format", "docx")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, strings.TrimSpace(a), 64)
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = execute(t, "config", "init", path)
	assert.Error(t, err, "不覆盖已有文件")

	_, err = execute(t, "config", "validate", path)
	assert.NoError(t, err)

	out, err = execute(t, "--config", path, "parse", writeResume(t), "--no-cache", "--compact")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, app+" version: "))
}

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCLIDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCLIDocs(dir))

	index, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "[`dump`](/cli/dump)")
	assert.Contains(t, string(index), "`--db`")
	assert.NotContains(t, string(index), "(/cli/help)")

	dump, err := os.ReadFile(filepath.Join(dir, "dump.md"))
	require.NoError(t, err)
	assert.Contains(t, string(dump), "leapstore dump [flags]")
	assert.Contains(t, string(dump), "`--prompt-for-args`")
	assert.Contains(t, string(dump), "## Global Options")
	assert.Equal(t, 0, strings.Count(string(dump), "```")%2)
}

func TestGenerateConfigDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateConfigDocs(dir))

	doc, err := os.ReadFile(filepath.Join(dir, "configuration.md"))
	require.NoError(t, err)
	for _, want := range []string{"## Database", "`ignore_sql_warnings`", "`use_path_style`", "model: Shop.mkmodel"} {
		assert.Contains(t, string(doc), want)
	}
}

func TestMarkdownWriter_Table(t *testing.T) {
	w := NewMarkdownWriter()
	w.Table([]string{"a", "b"}, nil)
	assert.Empty(t, w.Bytes())

	w.Table([]string{"a", "b"}, [][]string{{"x|y", "z"}})
	assert.Equal(t, "| a | b |\n| --- | --- |\n| x\\|y | z |\n\n", string(w.Bytes()))
}

func TestCleanExample(t *testing.T) {
	assert.Equal(t, "a\n  b", cleanExample("    a\n      b\n"))
	assert.Equal(t, "x", cleanExample("x"))
	assert.Equal(t, "one two", cleanDescription(" one\n  two "))
}

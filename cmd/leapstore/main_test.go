package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapstore/internal/cli"
	"github.com/leapstack-labs/leapstore/internal/cli/commands"
	"github.com/leapstack-labs/leapstore/internal/cli/config"
	clitest "github.com/leapstack-labs/leapstore/internal/cli/testutil"
	"github.com/leapstack-labs/leapstore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplesCSV = `Foo objects
serialNum,i,s,color,active,when
1,3,ab,green,0,2024-01-02 03:04:05

Bar objects
serialNum,foo,name
4,Foo.1,first
5,,second

`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Chdir(t.TempDir())

	cmd := cli.NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "leapstore v")
	assert.Contains(t, out, "Dialects: duckdb, mssql, mysql, postgres, sqlite")
	assert.Contains(t, out, "Adapters: duckdb, mssql, mysql, postgres, sqlite")
}

func TestRun_ExitStatus(t *testing.T) {
	config.ResetConfig()
	t.Chdir(t.TempDir())
	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })

	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = devNull.Close() })
	oldStderr := os.Stderr
	os.Stderr = devNull
	t.Cleanup(func() { os.Stderr = oldStderr })

	os.Args = []string{"leapstore", "dump"}
	assert.Equal(t, 1, run(), "missing database is a usage error")

	os.Args = []string{"leapstore", "dump", "--bogus"}
	assert.Equal(t, 1, run())
}

func TestDump_UsageErrors(t *testing.T) {
	modelDir := testutil.WriteModelDir(t, nil)

	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{
			name:    "missing database kind",
			args:    []string{"dump", "--model", modelDir},
			wantMsg: "database type is required",
		},
		{
			name:    "missing model",
			args:    []string{"dump", "--db", "sqlite", "--model", filepath.Join(modelDir, "nope")},
			wantMsg: "model directory does not exist",
		},
		{
			name:    "unknown database kind",
			args:    []string{"dump", "--db", "oracle", "--model", modelDir},
			wantMsg: "unknown adapter type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			var usage *commands.UsageError
			assert.True(t, errors.As(err, &usage), "want usage error, got %T", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestGenerateExecDump(t *testing.T) {
	modelDir := testutil.WriteModelDir(t, map[string]string{"Samples.csv": samplesCSV})
	work := t.TempDir()
	dbPath := filepath.Join(work, "shop.db")
	outDir := filepath.Join(work, "out")
	common := []string{"--db", "sqlite", "--database", dbPath, "--model", modelDir}

	out, _, err := execute(t, append([]string{"generate", "--outdir", outDir}, common...)...)
	require.NoError(t, err)
	createPath := filepath.Join(outDir, "GeneratedSQL", "Create.sql")
	samplesPath := filepath.Join(outDir, "GeneratedSQL", "InsertSamples.sql")
	assert.Contains(t, out, "Wrote "+createPath)
	assert.FileExists(t, samplesPath)

	out, _, err = execute(t, append([]string{"exec", createPath}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Executed")

	_, _, err = execute(t, append([]string{"exec", samplesPath}, common...)...)
	require.NoError(t, err)

	dumpPath := filepath.Join(work, "dump", "shop.csv")
	_, errOut, err := execute(t, append([]string{"dump", "--outfile", dumpPath, "--show-progress"}, common...)...)
	require.NoError(t, err)
	assert.Equal(t, "..\n", errOut)

	data, err := os.ReadFile(dumpPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Foo objects")
	assert.Contains(t, string(data), "Bar objects")
	assert.Contains(t, string(data), "first")

	stdout, _, err := execute(t, append([]string{"dump"}, common...)...)
	require.NoError(t, err)
	assert.Equal(t, string(data), stdout, "dump is stable")
}

func TestGenerate_All(t *testing.T) {
	modelDir := testutil.WriteModelDir(t, nil)
	outDir := t.TempDir()

	out, _, err := execute(t, "generate", "--all", "--model", modelDir, "--outdir", outDir)
	require.NoError(t, err)
	for _, name := range []string{"mysql", "sqlite", "mssql", "postgres", "duckdb"} {
		assert.FileExists(t, filepath.Join(outDir, name, "GeneratedSQL", "Create.sql"), name)
		assert.Contains(t, out, filepath.Join(outDir, name))
	}
}

func TestClassesAndSchema(t *testing.T) {
	modelDir := testutil.WriteModelDir(t, nil)

	out, _, err := execute(t, "classes", "--model", modelDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Foo")
	assert.Contains(t, out, "Bar")

	out, _, err = execute(t, "classes", "--attrs", "--model", modelDir)
	require.NoError(t, err)
	assert.Contains(t, out, "list of Bar")
	assert.Contains(t, out, "fooClassId, fooObjId")

	out, _, err = execute(t, "schema", "--model", modelDir, "--class", "Bar")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Bar"`)
	assert.Contains(t, out, `"$schema"`)

	out, _, err = execute(t, "schema", "--model", modelDir)
	require.NoError(t, err)
	assert.Contains(t, out, `"$defs"`)

	_, _, err = execute(t, "schema", "--model", modelDir, "--class", "Nope")
	var usage *commands.UsageError
	assert.ErrorAs(t, err, &usage)
}

func TestCompletion(t *testing.T) {
	out, _, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "leapstore")
}

func TestProjectConfig(t *testing.T) {
	project := clitest.SetupTestProject(t, samplesCSV)
	leapstore := func(args ...string) string {
		t.Helper()
		config.ResetConfig()
		t.Chdir(project)
		cmd := cli.NewRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		require.NoError(t, cmd.Execute())
		return out.String()
	}

	out := leapstore("generate")
	clitest.AssertContains(t, out, filepath.Join("build", "GeneratedSQL", "Create.sql"))

	leapstore("exec", filepath.Join("build", "GeneratedSQL", "Create.sql"))
	leapstore("exec", filepath.Join("build", "GeneratedSQL", "InsertSamples.sql"))
	assert.FileExists(t, filepath.Join(project, "shop.db"))

	out = leapstore("dump")
	clitest.AssertContains(t, out, "4,Foo.1,first")

	out = leapstore("classes")
	clitest.AssertNoANSI(t, out)
	clitest.AssertContains(t, out, "Shop")
}

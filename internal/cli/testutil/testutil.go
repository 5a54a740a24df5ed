// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	sharedtest "github.com/leapstack-labs/leapstore/internal/testutil"
	"github.com/leapstack-labs/leapstore/pkg/schema"
)

// ModelDirName is the model directory created by SetupTestProject.
const ModelDirName = "Shop.mkmodel"

// SetupTestProject creates a temporary project: a leapstore.yaml selecting
// a sqlite database file and the shop model with the given sample file
// contents (none when empty). Returns the project directory.
func SetupTestProject(t *testing.T, samples string) string {
	t.Helper()

	dir := t.TempDir()
	modelDir := filepath.Join(dir, ModelDirName)
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", modelDir, err)
	}

	files := map[string]string{
		filepath.Join(modelDir, schema.ClassesCSVFile): sharedtest.ShopClassesCSV,
		filepath.Join(dir, "leapstore.yaml"): `model: ` + ModelDirName + `
outdir: build
database:
  type: sqlite
  database: shop.db
`,
	}
	if samples != "" {
		files[filepath.Join(modelDir, schema.SamplesFile)] = samples
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to create %s: %v", path, err)
		}
	}
	return dir
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertContains checks that the string contains the expected substring.
func AssertContains(t *testing.T, s, expected string) {
	t.Helper()
	if !strings.Contains(s, expected) {
		t.Errorf("string %q does not contain expected %q", s, expected)
	}
}

package core_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// sourceImports returns the imports of every non-test Go file in dir, keyed
// by file name.
func sourceImports(t *testing.T, dir string) map[string][]string {
	t.Helper()
	fset := token.NewFileSet()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", dir, err)
	}

	out := make(map[string][]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".go") {
			continue
		}
		if strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			t.Errorf("Failed to parse %s: %v", path, err)
			continue
		}
		for _, imp := range f.Imports {
			out[entry.Name()] = append(out[entry.Name()], strings.Trim(imp.Path.Value, `"`))
		}
	}
	return out
}

// TestCoreImportsOnly verifies pkg/core only imports the standard library.
func TestCoreImportsOnly(t *testing.T) {
	for file, imports := range sourceImports(t, ".") {
		for _, importPath := range imports {
			// Allow stdlib (no dots in path)
			if strings.Contains(importPath, ".") {
				t.Errorf("%s imports forbidden package: %s", file, importPath)
			}
		}
	}
}

// TestDialectsHaveNoDrivers verifies dialect definitions stay pure data:
// only pkg/core and pkg/dialect may be imported.
func TestDialectsHaveNoDrivers(t *testing.T) {
	allowed := map[string]bool{
		modulePath + "/pkg/core":    true,
		modulePath + "/pkg/dialect": true,
	}

	dirs, err := filepath.Glob(filepath.Join("..", "dialects", "*"))
	if err != nil {
		t.Fatalf("Failed to list dialects: %v", err)
	}
	for _, dir := range dirs {
		for file, imports := range sourceImports(t, dir) {
			for _, importPath := range imports {
				if strings.Contains(importPath, ".") && !allowed[importPath] {
					t.Errorf("%s/%s imports %s (dialects must not depend on drivers)", filepath.Base(dir), file, importPath)
				}
			}
		}
	}
}

// TestCoreDoesNotImportInternal verifies pkg/core doesn't import any internal packages.
func TestCoreDoesNotImportInternal(t *testing.T) {
	for file, imports := range sourceImports(t, ".") {
		for _, importPath := range imports {
			if strings.Contains(importPath, "/internal/") {
				t.Errorf("%s imports internal package: %s (core must not import internal packages)", file, importPath)
			}
		}
	}
}

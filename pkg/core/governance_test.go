//go:build governance

package core_test

import (
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// =============================================================================
// COHESION TEST - Core types must be shared by multiple packages
// =============================================================================

// TestGovernance_CoreCohesion verifies that types in pkg/core are genuinely
// shared across multiple packages. Single-use types should be moved to their
// sole consumer to maintain cohesion.
func TestGovernance_CoreCohesion(t *testing.T) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedImports | packages.NeedTypes |
			packages.NeedTypesInfo | packages.NeedDeps,
	}
	pkgs, err := packages.Load(cfg, modulePath+"/...")
	if err != nil {
		t.Fatalf("Failed to load packages: %v", err)
	}

	coreDefs := make(map[string]bool)
	var corePath string
	for _, p := range pkgs {
		if p.PkgPath == modulePath+"/pkg/core" {
			corePath = p.PkgPath
			scope := p.Types.Scope()
			for _, name := range scope.Names() {
				if scope.Lookup(name).Exported() {
					coreDefs[name] = true
				}
			}
			break
		}
	}
	if corePath == "" {
		t.Fatal("Could not find pkg/core")
	}

	// Count usages: CoreTypeName -> set of importing packages
	usageMap := make(map[string]map[string]bool)
	for name := range coreDefs {
		usageMap[name] = make(map[string]bool)
	}

	base := modulePath + "/"
	for _, p := range pkgs {
		if p.PkgPath == corePath || strings.HasSuffix(p.PkgPath, "_test") || p.TypesInfo == nil {
			continue
		}
		for _, obj := range p.TypesInfo.Uses {
			if obj.Pkg() == nil || obj.Pkg().Path() != corePath || !coreDefs[obj.Name()] {
				continue
			}
			usageMap[obj.Name()][strings.TrimPrefix(p.PkgPath, base)] = true
		}
	}

	for typeName, importers := range usageMap {
		if isCohesionAllowlisted(typeName) {
			continue
		}
		switch len(importers) {
		case 0:
			t.Logf("WARNING: Unused Core Type: %s (consider deleting)", typeName)
		case 1:
			var user string
			for k := range importers {
				user = k
			}
			t.Errorf("COHESION VIOLATION: 'core.%s' is used ONLY by '%s'.\n"+
				"   Fix: Move type from pkg/core to %s.",
				typeName, user, user)
		}
	}
}

// isCohesionAllowlisted returns true for types allowed to have single usage.
func isCohesionAllowlisted(name string) bool {
	allowlist := map[string]bool{
		"Adapter":          true, // Interface - implementations may be in one place
		"IdentifierConfig": true, // Set through the dialect builder
		"IdentityStrategy": true, // Used through its constants
		"Rows":             true,
	}
	return allowlist[name]
}

// =============================================================================
// LAYERING TEST - pkg/ never reaches into internal/
// =============================================================================

// TestGovernance_PublicPackagesAvoidInternal ensures library packages can be
// imported by other modules: nothing under pkg/ may import internal/.
func TestGovernance_PublicPackagesAvoidInternal(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports}
	pkgs, err := packages.Load(cfg, modulePath+"/pkg/...")
	if err != nil {
		t.Fatalf("Failed to load packages: %v", err)
	}

	for _, p := range pkgs {
		for path := range p.Imports {
			if strings.HasPrefix(path, modulePath+"/internal/") {
				t.Errorf("LAYERING VIOLATION: '%s' imports '%s'",
					strings.TrimPrefix(p.PkgPath, modulePath+"/"), strings.TrimPrefix(path, modulePath+"/"))
			}
		}
	}
}

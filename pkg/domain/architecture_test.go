package domain

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

const modulePath = "github.com/ebuka-ez/TrackX"

// TestDomainImportsAreStdlibOnly keeps the domain package free of driver and
// framework dependencies. Storage backends and the service layer depend on
// domain, never the other way around.
func TestDomainImportsAreStdlibOnly(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports}
	pkgs, err := packages.Load(cfg, modulePath+"/pkg/domain")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	for _, pkg := range pkgs {
		for importPath := range pkg.Imports {
			if !isStdlibImport(importPath) {
				t.Errorf("domain package imports non-stdlib dependency %s", importPath)
			}
		}
	}
}

// TestPersistenceInfraImportContainment ensures storage backends are wired
// only through the service layer and commands. Everything else must hold a
// domain.PersistentStore.
func TestPersistenceInfraImportContainment(t *testing.T) {
	infraPrefix := modulePath + "/internal/infra/persistence"
	allowedPrefixes := []string{
		infraPrefix,
		modulePath + "/internal/core",
		modulePath + "/cmd/",
	}

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, modulePath+"/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		if importerAllowed(pkg.PkgPath, allowedPrefixes) {
			continue
		}
		for importPath := range pkg.Imports {
			if importPath == infraPrefix || strings.HasPrefix(importPath, infraPrefix+"/") {
				seen[pkg.PkgPath+": "+importPath] = struct{}{}
			}
		}
	}

	if len(seen) > 0 {
		violations := make([]string, 0, len(seen))
		for v := range seen {
			violations = append(violations, v)
		}
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden import of persistence backend: %s", v)
		}
		t.Fatalf("found %d forbidden imports of persistence backends", len(violations))
	}
}

func importerAllowed(pkgPath string, allowed []string) bool {
	for _, prefix := range allowed {
		if pkgPath == prefix || strings.HasPrefix(pkgPath, prefix) {
			return true
		}
	}
	return false
}

func isStdlibImport(importPath string) bool {
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}

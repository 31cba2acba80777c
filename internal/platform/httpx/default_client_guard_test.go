// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package httpx

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// forbiddenSelectors are net/http identifiers that either route through
// http.DefaultClient, bypassing the timeouts of NewClient, or build requests
// that cannot be cancelled when a load is superseded.
var forbiddenSelectors = map[string]string{
	"DefaultClient": "use httpx.NewClient",
	"Get":           "use httpx.NewClient",
	"Head":          "use httpx.NewClient",
	"Post":          "use httpx.NewClient",
	"PostForm":      "use httpx.NewClient",
	"NewRequest":    "use http.NewRequestWithContext",
}

func TestOutboundRequestsUseManagedClient(t *testing.T) {
	repoRoot := filepath.Clean(filepath.Join("..", "..", ".."))
	scanRoots := []string{
		filepath.Join(repoRoot, "internal"),
		filepath.Join(repoRoot, "cmd"),
	}

	var violations []string
	fset := token.NewFileSet()

	for _, root := range scanRoots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if name == "vendor" || name == ".git" || name == "testdata" {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			if strings.HasPrefix(filepath.Base(path), "._") {
				return nil
			}

			file, parseErr := parser.ParseFile(fset, path, nil, 0)
			if parseErr != nil {
				return parseErr
			}
			ast.Inspect(file, func(n ast.Node) bool {
				sel, ok := n.(*ast.SelectorExpr)
				if !ok {
					return true
				}
				ident, ok := sel.X.(*ast.Ident)
				if !ok {
					return true
				}
				if hint, bad := forbiddenSelectors[sel.Sel.Name]; bad && ident.Name == "http" {
					pos := fset.Position(sel.Pos())
					violations = append(violations, pos.String()+": http."+sel.Sel.Name+" ("+hint+")")
				}
				return true
			})
			return nil
		})
		if err != nil {
			t.Fatalf("scan %s: %v", root, err)
		}
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		t.Fatalf("unmanaged outbound requests found:\n%s", strings.Join(violations, "\n"))
	}
}

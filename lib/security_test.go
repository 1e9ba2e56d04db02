// Package lib holds source-level audits that span every package under lib/.
package lib

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseSources parses every non-test Go file below dir.
func parseSources(t *testing.T, dir string) map[string]*ast.File {
	t.Helper()
	files := make(map[string]*ast.File)
	fset := token.NewFileSet()
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		f, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
		if err != nil {
			return err
		}
		files[path] = f
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, files)
	return files
}

// TestAllRandomnessFromCryptoRand verifies that keys, IVs and circuit
// choices never come from math/rand.
func TestAllRandomnessFromCryptoRand(t *testing.T) {
	for path, f := range parseSources(t, ".") {
		for _, imp := range f.Imports {
			p, err := strconv.Unquote(imp.Path.Value)
			require.NoError(t, err)
			assert.False(t, strings.HasPrefix(p, "math/rand"), "%s imports %s", path, p)
		}
	}
}

// TestRelaysNeverLogPayloads verifies that no log field in the router or
// onion packages carries a message body, only lengths and addresses.
func TestRelaysNeverLogPayloads(t *testing.T) {
	forbidden := map[string]bool{
		"message":   true,
		"remainder": true,
		"plaintext": true,
		"wire":      true,
		"framed":    true,
		"payload":   true,
	}
	for _, dir := range []string{"router", "onion", "transport"} {
		for path, f := range parseSources(t, dir) {
			ast.Inspect(f, func(n ast.Node) bool {
				lit, ok := n.(*ast.CompositeLit)
				if !ok {
					return true
				}
				sel, ok := lit.Type.(*ast.SelectorExpr)
				if !ok || sel.Sel.Name != "Fields" {
					return true
				}
				for _, elt := range lit.Elts {
					kv, ok := elt.(*ast.KeyValueExpr)
					if !ok {
						continue
					}
					if id, ok := kv.Value.(*ast.Ident); ok {
						assert.False(t, forbidden[id.Name], "%s logs %s", path, id.Name)
					}
				}
				return true
			})
		}
	}
}

// TestHTTPServersHaveTimeouts verifies that every http.Server sets read and
// write timeouts.
func TestHTTPServersHaveTimeouts(t *testing.T) {
	found := 0
	for path, f := range parseSources(t, ".") {
		ast.Inspect(f, func(n ast.Node) bool {
			lit, ok := n.(*ast.CompositeLit)
			if !ok {
				return true
			}
			sel, ok := lit.Type.(*ast.SelectorExpr)
			if !ok || sel.Sel.Name != "Server" {
				return true
			}
			if pkg, ok := sel.X.(*ast.Ident); !ok || pkg.Name != "http" {
				return true
			}
			found++
			keys := map[string]bool{}
			for _, elt := range lit.Elts {
				if kv, ok := elt.(*ast.KeyValueExpr); ok {
					if id, ok := kv.Key.(*ast.Ident); ok {
						keys[id.Name] = true
					}
				}
			}
			assert.True(t, keys["ReadTimeout"], "%s: http.Server without ReadTimeout", path)
			assert.True(t, keys["WriteTimeout"], "%s: http.Server without WriteTimeout", path)
			return true
		})
	}
	assert.Positive(t, found)
}

// Package noosexit defines an analyzer that reports direct calls to os.Exit
// from main.main. Exiting there skips deferred cleanup such as closing the
// dataset storage and flushing the logger.
package noosexit

import (
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

var Analyzer = &analysis.Analyzer{
	Name:     "noosexit",
	Doc:      "prohibits direct use of os.Exit in main.main",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() != "main" {
		return nil, nil
	}

	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	insp.WithStack([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push || isGoBuildCacheFile(pass.Fset.File(n.Pos()).Name()) {
			return true
		}
		if !insideMainFunc(stack) {
			return true
		}
		if isOSExit(pass, n.(*ast.CallExpr)) {
			pass.Reportf(n.Pos(), "avoid using os.Exit in main.main")
		}
		return true
	})

	return nil, nil
}

// insideMainFunc reports whether the innermost enclosing declaration is the
// top level func main. Calls inside function literals are included, since a
// deferred or immediately invoked closure still exits the process.
func insideMainFunc(stack []ast.Node) bool {
	for i := len(stack) - 1; i >= 0; i-- {
		if fn, ok := stack[i].(*ast.FuncDecl); ok {
			return fn.Recv == nil && fn.Name.Name == "main"
		}
	}
	return false
}

// isOSExit resolves the callee through type information, so aliased
// imports of "os" are caught and local identifiers named os are not.
func isOSExit(pass *analysis.Pass, call *ast.CallExpr) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Exit" {
		return false
	}

	fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
	return ok && fn.Pkg() != nil && fn.Pkg().Path() == "os"
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/")
}

package segment

import (
	"go/ast"
	"go/parser"
	"go/token"
)

// goSpans walks the Go AST in pre-order. Function literals are not units.
func goSpans(content string) []span {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "unit.go", content, parser.SkipObjectResolution)
	if file == nil {
		return nil
	}
	_ = err // a partial AST still yields the declarations that parsed
	tf := fset.File(file.Pos())
	if tf == nil {
		return nil
	}
	var out []span
	ast.Inspect(file, func(n ast.Node) bool {
		fd, ok := n.(*ast.FuncDecl)
		if !ok {
			return true
		}
		if !fd.Pos().IsValid() || !fd.End().IsValid() {
			return true
		}
		kind := FunctionDeclaration
		if fd.Recv != nil {
			kind = MethodDeclaration
		}
		start := tf.Offset(fd.Pos())
		end := tf.Offset(fd.End())
		out = append(out, span{start: start, end: end, unitType: kind})
		return true
	})
	return out
}

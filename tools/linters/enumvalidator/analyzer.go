package enumvalidator

import (
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/analysis"
)

var Analyzer = &analysis.Analyzer{
	Name: "enumvalidator",
	Doc:  "checks that enum fields only use defined constants, not string literals",
	Run:  run,
}

// enumTypes are the string enums whose values drive classification, storage
// and task routing. A typo in a literal silently creates a new bucket.
var enumTypes = map[string]bool{
	"FlowType":            true,
	"ThreadType":          true,
	"Category":            true,
	"Mood":                true,
	"TaskType":            true,
	"LeaderboardCategory": true,
	"Backend":             true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.AssignStmt:
				checkAssign(pass, node)
			case *ast.KeyValueExpr:
				checkKeyValue(pass, node)
			}
			return true
		})
	}
	return nil, nil
}

func checkAssign(pass *analysis.Pass, assign *ast.AssignStmt) {
	for i, lhs := range assign.Lhs {
		if i >= len(assign.Rhs) {
			continue
		}
		sel, ok := lhs.(*ast.SelectorExpr)
		if !ok || !isEnum(pass, sel) {
			continue
		}
		if isStringLiteral(assign.Rhs[i]) {
			pass.Reportf(assign.Pos(),
				"enum field %s assigned string literal; use defined constant instead",
				sel.Sel.Name)
		}
	}
}

// checkKeyValue covers struct literals such as Flow{FlowType: "linear"}.
// Map literals are skipped: their keys are expressions, not field names.
func checkKeyValue(pass *analysis.Pass, kv *ast.KeyValueExpr) {
	key, ok := kv.Key.(*ast.Ident)
	if !ok || !isStringLiteral(kv.Value) {
		return
	}
	field, ok := pass.TypesInfo.Uses[key].(*types.Var)
	if !ok || !field.IsField() || !isEnumType(field.Type()) {
		return
	}
	pass.Reportf(kv.Pos(),
		"enum field %s assigned string literal; use defined constant instead",
		key.Name)
}

func isEnum(pass *analysis.Pass, expr ast.Expr) bool {
	return isEnumType(pass.TypesInfo.TypeOf(expr))
}

func isEnumType(t types.Type) bool {
	if named, ok := t.(*types.Named); ok {
		return enumTypes[named.Obj().Name()]
	}
	return false
}

func isStringLiteral(expr ast.Expr) bool {
	lit, ok := expr.(*ast.BasicLit)
	return ok && lit.Kind == token.STRING
}

package script

import (
	"github.com/yuin/gopher-lua/ast"
)

// references returns the module names of literal require calls in chunk,
// in first-seen order without duplicates.
func references(chunk []ast.Stmt) []string {
	w := &refWalker{seen: make(map[string]bool)}
	w.stmts(chunk)
	return w.refs
}

type refWalker struct {
	seen map[string]bool
	refs []string
}

func (w *refWalker) stmts(list []ast.Stmt) {
	for _, s := range list {
		w.stmt(s)
	}
}

func (w *refWalker) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.AssignStmt:
		w.exprs(s.Lhs)
		w.exprs(s.Rhs)
	case *ast.LocalAssignStmt:
		w.exprs(s.Exprs)
	case *ast.FuncCallStmt:
		w.expr(s.Expr)
	case *ast.DoBlockStmt:
		w.stmts(s.Stmts)
	case *ast.WhileStmt:
		w.expr(s.Condition)
		w.stmts(s.Stmts)
	case *ast.RepeatStmt:
		w.stmts(s.Stmts)
		w.expr(s.Condition)
	case *ast.IfStmt:
		w.expr(s.Condition)
		w.stmts(s.Then)
		w.stmts(s.Else)
	case *ast.NumberForStmt:
		w.expr(s.Init)
		w.expr(s.Limit)
		w.expr(s.Step)
		w.stmts(s.Stmts)
	case *ast.GenericForStmt:
		w.exprs(s.Exprs)
		w.stmts(s.Stmts)
	case *ast.FuncDefStmt:
		w.expr(s.Func)
	case *ast.ReturnStmt:
		w.exprs(s.Exprs)
	}
}

func (w *refWalker) exprs(list []ast.Expr) {
	for _, e := range list {
		w.expr(e)
	}
}

func (w *refWalker) expr(e ast.Expr) {
	switch e := e.(type) {
	case *ast.FuncCallExpr:
		if name, ok := requireTarget(e); ok && !w.seen[name] {
			w.seen[name] = true
			w.refs = append(w.refs, name)
		}
		w.expr(e.Func)
		w.expr(e.Receiver)
		w.exprs(e.Args)
	case *ast.FunctionExpr:
		w.stmts(e.Stmts)
	case *ast.AttrGetExpr:
		w.expr(e.Object)
		w.expr(e.Key)
	case *ast.TableExpr:
		for _, f := range e.Fields {
			w.expr(f.Key)
			w.expr(f.Value)
		}
	case *ast.LogicalOpExpr:
		w.expr(e.Lhs)
		w.expr(e.Rhs)
	case *ast.RelationalOpExpr:
		w.expr(e.Lhs)
		w.expr(e.Rhs)
	case *ast.StringConcatOpExpr:
		w.expr(e.Lhs)
		w.expr(e.Rhs)
	case *ast.ArithmeticOpExpr:
		w.expr(e.Lhs)
		w.expr(e.Rhs)
	case *ast.UnaryMinusOpExpr:
		w.expr(e.Expr)
	case *ast.UnaryNotOpExpr:
		w.expr(e.Expr)
	case *ast.UnaryLenOpExpr:
		w.expr(e.Expr)
	}
}

// requireTarget matches require("name") and require "name".
func requireTarget(call *ast.FuncCallExpr) (string, bool) {
	ident, ok := call.Func.(*ast.IdentExpr)
	if !ok || ident.Value != "require" || call.Receiver != nil || len(call.Args) != 1 {
		return "", false
	}
	lit, ok := call.Args[0].(*ast.StringExpr)
	if !ok {
		return "", false
	}
	return lit.Value, true
}

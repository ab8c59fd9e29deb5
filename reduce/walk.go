package reduce

import (
	"math"
	"reflect"
	"slices"

	cc "modernc.org/cc/v4"
)

// Visitor receives AST nodes during a source-ordered pre-order walk of the
// translation unit's function definitions. Function definitions arrive in
// declaration order, and every call expression inside a definition arrives
// after that definition and before the next one, in source order. Forward
// declarations carry no definition node and are never visited.
type Visitor interface {
	VisitFunctionDefinition(fn *cc.FunctionDefinition)
	VisitCallExpr(call *cc.PostfixExpression)
}

// WalkFunctionDefinitions walks prog's function definitions and their call
// expressions, invoking v for each. Only nodes positioned in prog's own file
// are visited; declarations pulled in from the frontend's builtin prelude are
// invisible to transformations.
func WalkFunctionDefinitions(prog *Program, v Visitor) {
	for _, fn := range functionDefinitions(prog) {
		v.VisitFunctionDefinition(fn)
		for _, call := range callExpressions(prog, fn) {
			v.VisitCallExpr(call)
		}
	}
}

// functionDefinitions returns prog's function definitions in source order.
func functionDefinitions(prog *Program) []*cc.FunctionDefinition {
	var found []nodeAt[*cc.FunctionDefinition]
	walkNodes(prog.AST.TranslationUnit, 0, func(node any, depth int) {
		fn, ok := node.(*cc.FunctionDefinition)
		if !ok {
			return
		}
		if pos := fn.Position(); pos.IsValid() && pos.Filename == prog.FileName {
			found = append(found, nodeAt[*cc.FunctionDefinition]{fn, pos.Offset, depth})
		}
	})
	return sortedNodes(found)
}

// callExpressions returns the call expressions inside fn in source order,
// parents before nested arguments.
func callExpressions(prog *Program, fn *cc.FunctionDefinition) []*cc.PostfixExpression {
	var found []nodeAt[*cc.PostfixExpression]
	walkNodes(fn, 0, func(node any, depth int) {
		call, ok := node.(*cc.PostfixExpression)
		if !ok || call.Case != cc.PostfixExpressionCall {
			return
		}
		if pos := call.Position(); pos.IsValid() && pos.Filename == prog.FileName {
			found = append(found, nodeAt[*cc.PostfixExpression]{call, pos.Offset, depth})
		}
	})
	return sortedNodes(found)
}

type nodeAt[T any] struct {
	node   T
	offset int
	depth  int
}

// sortedNodes orders nodes by source offset, outer nodes before nested nodes
// sharing the same start offset.
func sortedNodes[T any](nodes []nodeAt[T]) []T {
	slices.SortStableFunc(nodes, func(a, b nodeAt[T]) int {
		if a.offset != b.offset {
			return a.offset - b.offset
		}
		return a.depth - b.depth
	})
	result := make([]T, len(nodes))
	for i, n := range nodes {
		result[i] = n.node
	}
	return result
}

// nodeExtent reports the byte span [start, end) that node occupies in the
// file named filename, derived from the node's leaf tokens. ok is false when
// the node holds no positioned token in that file.
func nodeExtent(node any, filename string) (start, end int, ok bool) {
	start = math.MaxInt
	forEachToken(node, func(tok cc.Token) {
		pos := tok.Position()
		if !pos.IsValid() || pos.Filename != filename {
			return
		}
		start = min(start, pos.Offset)
		end = max(end, pos.Offset+len(tok.SrcStr()))
		ok = true
	})
	if !ok {
		return 0, 0, false
	}
	return start, end, true
}

var tokenType = reflect.TypeOf(cc.Token{})

// forEachToken invokes fn for every lexer token stored in node's subtree, in
// struct field order.
func forEachToken(node any, fn func(tok cc.Token)) {
	walkValue(reflect.ValueOf(node), 0, func(any, int) {}, fn)
}

// walkNodes performs a pre-order reflection walk over the cc AST rooted at
// node, invoking visit for every reachable struct pointer node. The grammar
// structs generated by the frontend expose their productions as exported
// fields, so field order recursion covers the full syntax tree without
// per-production cases.
func walkNodes(node any, depth int, visit func(node any, depth int)) {
	walkValue(reflect.ValueOf(node), depth, visit, nil)
}

func walkValue(v reflect.Value, depth int, visit func(node any, depth int), tok func(cc.Token)) {
	switch v.Kind() {
	case reflect.Interface:
		if !v.IsNil() {
			walkValue(v.Elem(), depth, visit, tok)
		}
	case reflect.Pointer:
		if v.IsNil() || v.Elem().Kind() != reflect.Struct {
			return
		}
		visit(v.Interface(), depth)
		walkStruct(v.Elem(), depth+1, visit, tok)
	case reflect.Struct:
		walkStruct(v, depth, visit, tok)
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			walkValue(v.Index(i), depth, visit, tok)
		}
	}
}

func walkStruct(v reflect.Value, depth int, visit func(node any, depth int), tok func(cc.Token)) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if t.Field(i).PkgPath != "" {
			continue // unexported semantic fields are not part of the syntax tree
		}
		f := v.Field(i)
		if f.Type() == tokenType {
			// unused optional token slots are zero valued
			if tv := f.Interface().(cc.Token); tok != nil && tv.Ch != 0 {
				tok(tv)
			}
			continue
		}
		walkValue(f, depth, visit, tok)
	}
}

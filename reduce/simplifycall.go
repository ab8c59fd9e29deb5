package reduce

import (
	"fmt"
	"strings"

	cc "modernc.org/cc/v4"
)

// SimplifyCallExprName is the registry name of the call-to-comma-expression
// transformation.
const SimplifyCallExprName = "simplify-callexpr"

const simplifyCallExprDescription = "Simplify a call expression to a comma expression. " +
	"Integer and pointer arguments are replaced with 0, struct and union arguments with a " +
	"freshly declared temporary variable, and a representative result value is appended as " +
	"the last term so the comma expression keeps the original call's type."

func init() {
	RegisterTransformation(SimplifyCallExprName, simplifyCallExprDescription,
		func() Transformation { return &SimplifyCallExpr{} })
}

// SimplifyCallExpr rewrites one call expression into a comma expression of
// the same type. The callee and argument expressions are discarded, which is
// what makes the variant structurally simpler; only the type of every term is
// preserved so the surrounding statement still compiles. Runtime behavior is
// deliberately not preserved.
type SimplifyCallExpr struct{}

// callSelector tracks traversal state while locating the target call
// expression: the running 1-based count of calls seen and the most recently
// visited function definition, which is the insertion anchor for temporary
// declarations. Last-visited tracking is exact for top-level definitions, the
// only kind the C programs this tool targets contain.
type callSelector struct {
	target    int
	seen      int
	currentFn *cc.FunctionDefinition

	call *cc.PostfixExpression
	fn   *cc.FunctionDefinition
}

func (s *callSelector) VisitFunctionDefinition(fn *cc.FunctionDefinition) {
	s.currentFn = fn
}

func (s *callSelector) VisitCallExpr(call *cc.PostfixExpression) {
	s.seen++
	if s.seen == s.target {
		s.call = call
		s.fn = s.currentFn
	}
}

// InstanceCount reports the number of call expressions inside function
// definitions in prog.
func (t *SimplifyCallExpr) InstanceCount(prog *Program) int {
	sel := &callSelector{}
	WalkFunctionDefinitions(prog, sel)
	return sel.seen
}

// Apply rewrites the counter'th call expression of prog and returns the
// edited source.
func (t *SimplifyCallExpr) Apply(prog *Program, counter int) ([]byte, error) {
	if counter < 1 {
		return nil, fmt.Errorf("%w: instance counter must be 1-based, got %d", ErrInternal, counter)
	}
	sel := &callSelector{target: counter}
	WalkFunctionDefinitions(prog, sel)
	if counter > sel.seen {
		return nil, fmt.Errorf("%w: requested instance %d of %d", ErrMaxInstance, counter, sel.seen)
	}
	if sel.call == nil || sel.fn == nil {
		// A counted call always lives inside the definition that was being
		// traversed when it was counted.
		return nil, fmt.Errorf("%w: instance %d counted but no call site captured", ErrInternal, counter)
	}
	return t.replaceCallExpr(prog, sel.call, sel.fn)
}

func (t *SimplifyCallExpr) replaceCallExpr(prog *Program, call *cc.PostfixExpression,
	fn *cc.FunctionDefinition) ([]byte, error) {
	callStart, callEnd, ok := nodeExtent(call, prog.FileName)
	if !ok {
		return nil, fmt.Errorf("%w: call expression has no source extent", ErrInternal)
	}
	fnStart, _, ok := nodeExtent(fn, prog.FileName)
	if !ok {
		return nil, fmt.Errorf("%w: enclosing function has no source extent", ErrInternal)
	}

	buf := NewRewriteBuffer(prog.Source)
	names := newNameSynthesizer(prog, TmpVarNamePrefix)

	var terms []string
	for l := call.ArgumentExpressionList; l != nil; l = l.ArgumentExpressionList {
		term, decl := substituteArgument(l.AssignmentExpression.Type(), names)
		if decl != "" {
			if err := buf.InsertBefore(fnStart, decl); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInternal, err)
			}
		}
		terms = append(terms, term)
	}

	var replacement string
	if len(terms) > 0 {
		// Arguments are substituted first, then the result term, so the
		// result temporary always carries the highest postfix.
		if term, decl, needed := substituteResult(call.Type(), names); needed {
			terms = append(terms, term)
			if decl != "" {
				if err := buf.InsertBefore(fnStart, decl); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInternal, err)
				}
			}
		}
		replacement = "(" + strings.Join(terms, ",") + ")"
	}
	// Zero-argument calls collapse to an empty replacement, leaving whatever
	// surrounds the call behind. The surrounding statement is often ill-formed
	// afterward; the enclosing driver simply rejects such variants.

	if err := buf.Replace(callStart, callEnd, replacement); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	out, err := buf.Apply()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return out, nil
}

// substituteArgument returns the comma-expression term standing in for an
// argument of type typ and, for struct/union arguments, the declaration text
// of the temporary that the term names. Scalars, pointers, enums and floats
// all legally collapse to a 0 literal; struct and union values have no
// literal form and need a named storage location of the right type.
func substituteArgument(typ cc.Type, names *nameSynthesizer) (term, decl string) {
	if !isStructOrUnion(typ) {
		return "0", ""
	}
	name := names.allocate()
	return name, declarationText(typ, name)
}

// substituteResult returns the trailing term representing the call's result.
// Void results need no term at all, struct/union results get a declared
// temporary, and everything else gets a trailing 0.
func substituteResult(typ cc.Type, names *nameSynthesizer) (term, decl string, needed bool) {
	switch {
	case typ.Kind() == cc.Void:
		return "", "", false
	case isStructOrUnion(typ):
		name := names.allocate()
		return name, declarationText(typ, name), true
	default:
		return "0", "", true
	}
}

func isStructOrUnion(typ cc.Type) bool {
	k := typ.Kind()
	return k == cc.Struct || k == cc.Union
}

// declarationText renders a variable declaration for typ, one line per
// declaration. Struct and union types are always declared in type-prefix
// form, so no declarator suffix handling is needed.
func declarationText(typ cc.Type, name string) string {
	return fmt.Sprintf("%s %s;\n", typeName(typ), name)
}

// typeName renders the C name of typ as it appears at a declaration site. A
// typedef name wins when the source introduced one, otherwise tagged struct
// and union types are referred to by their tag so the declaration points back
// at the original definition instead of restating its body.
func typeName(typ cc.Type) string {
	if def := typ.Typedef(); def != nil {
		return def.Name()
	}
	switch t := typ.(type) {
	case *cc.StructType:
		if tag := t.Tag(); tag.Ch != 0 {
			return "struct " + tag.SrcStr()
		}
	case *cc.UnionType:
		if tag := t.Tag(); tag.Ch != 0 {
			return "union " + tag.SrcStr()
		}
	}
	// Untagged anonymous types have no C name to refer back to; the printer's
	// rendering stands in and the resulting variant is left for the driver to
	// reject.
	return typ.String()
}

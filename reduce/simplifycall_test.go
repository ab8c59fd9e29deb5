package reduce

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Program {
	t.Helper()

	prog, err := ParseProgram("test.c", []byte(src))
	require.NoError(t, err)
	return prog
}

func applyInstance(t *testing.T, src string, counter int) string {
	t.Helper()

	out, err := (&SimplifyCallExpr{}).Apply(mustParse(t, src), counter)
	require.NoError(t, err)
	return string(out)
}

const structArgSrc = `struct z { int a; };
void foo(int x, int *y, struct z s) {}
int main(void) {
	int i = 0;
	int *p = &i;
	struct z s;
	foo(i, p, s);
	return 0;
}
`

func TestSimplifyCallExprStructArgument(t *testing.T) {
	t.Parallel()

	out := applyInstance(t, structArgSrc, 1)
	// int and pointer arguments become 0, the struct argument becomes a
	// declared temporary; foo returns void so no result term is appended
	assert.Contains(t, out, "(0,0,tmp_var_1);")
	assert.NotContains(t, out, "foo(i, p, s)")
	assert.Contains(t, out, "struct z tmp_var_1;\nint main(void)")
	// the declaration anchors at the enclosing function, not the callee
	assert.NotContains(t, out, "tmp_var_1;\nvoid foo")
}

func TestSimplifyCallExprScalarResult(t *testing.T) {
	t.Parallel()

	src := `int add(int a, int b) { return a + b; }
void use(void) { int r = add(1, 2); }
`
	out := applyInstance(t, src, 1)
	// scalar result appends a trailing 0 term
	assert.Contains(t, out, "int r = (0,0,0);")
	assert.NotContains(t, out, "tmp_var_")
}

func TestSimplifyCallExprStructResult(t *testing.T) {
	t.Parallel()

	src := `struct S { int a; };
struct S make(int x) { struct S s; return s; }
void use(void) { make(1); }
`
	out := applyInstance(t, src, 1)
	assert.Contains(t, out, "(0,tmp_var_1);")
	assert.Contains(t, out, "struct S tmp_var_1;\nvoid use(void)")
}

func TestSimplifyCallExprUnionArgument(t *testing.T) {
	t.Parallel()

	src := `union U { int a; float b; };
void sink(union U u) {}
void use(void) {
	union U u;
	sink(u);
}
`
	out := applyInstance(t, src, 1)
	assert.Contains(t, out, "(tmp_var_1);")
	assert.Contains(t, out, "union U tmp_var_1;\nvoid use(void)")
}

func TestSimplifyCallExprTypedefArgument(t *testing.T) {
	t.Parallel()

	// typedef-named struct types declare through the typedef name, which also
	// covers anonymous structs that only have a typedef name
	src := `typedef struct { int a; } pair_t;
void sink(pair_t p) {}
void use(void) {
	pair_t p;
	sink(p);
}
`
	out := applyInstance(t, src, 1)
	assert.Contains(t, out, "(tmp_var_1);")
	assert.Contains(t, out, "pair_t tmp_var_1;\nvoid use(void)")
	require.NoError(t, CompileCheck("test.c", []byte(out)))
}

func TestSimplifyCallExprDeclarationOrder(t *testing.T) {
	t.Parallel()

	src := `struct S { int a; };
struct S mix(struct S a, int b, struct S c) { return a; }
void use(void) {
	struct S s;
	mix(s, 1, s);
}
`
	out := applyInstance(t, src, 1)
	// argument temporaries are allocated left to right, the result temporary
	// last, and the declarations appear in allocation order
	assert.Contains(t, out, "(tmp_var_1,0,tmp_var_2,tmp_var_3);")
	assert.Contains(t, out,
		"struct S tmp_var_1;\nstruct S tmp_var_2;\nstruct S tmp_var_3;\nvoid use(void)")
}

func TestSimplifyCallExprZeroArguments(t *testing.T) {
	t.Parallel()

	// zero-argument calls are replaced with the empty string, leaving an
	// ill-formed assignment behind; the reduction driver rejects the variant
	src := `int bar(void) { return 3; }
void use(void) { int r = bar(); }
`
	out := applyInstance(t, src, 1)
	assert.Contains(t, out, "int r = ;")
	assert.NotContains(t, out, "bar()")
	assert.NotContains(t, out, "tmp_var_")
}

func TestSimplifyCallExprInstanceSelection(t *testing.T) {
	t.Parallel()

	src := `int f(int x) { return x; }
int g(void) { return f(f(1)); }
int main(void) { return f(2); }
`

	t.Run("count", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 3, (&SimplifyCallExpr{}).InstanceCount(mustParse(t, src)))
	})

	t.Run("outer_call_first", func(t *testing.T) {
		t.Parallel()
		out := applyInstance(t, src, 1)
		assert.Contains(t, out, "int g(void) { return (0,0); }")
	})

	t.Run("nested_call_second", func(t *testing.T) {
		t.Parallel()
		out := applyInstance(t, src, 2)
		assert.Contains(t, out, "int g(void) { return f((0,0)); }")
	})

	t.Run("later_function_third", func(t *testing.T) {
		t.Parallel()
		out := applyInstance(t, src, 3)
		assert.Contains(t, out, "int main(void) { return (0,0); }")
		assert.Contains(t, out, "f(f(1))") // earlier instances untouched
	})

	t.Run("max_instance_exceeded", func(t *testing.T) {
		t.Parallel()
		out, err := (&SimplifyCallExpr{}).Apply(mustParse(t, src), 4)
		require.ErrorIs(t, err, ErrMaxInstance)
		assert.True(t, IsNormalTransformError(err))
		assert.Nil(t, out)
	})
}

func TestSimplifyCallExprSingleCallOutOfRange(t *testing.T) {
	t.Parallel()

	src := `void sink(int a) {}
void use(void) { sink(5); }
`
	out, err := (&SimplifyCallExpr{}).Apply(mustParse(t, src), 2)
	require.ErrorIs(t, err, ErrMaxInstance)
	assert.Nil(t, out)
}

func TestSimplifyCallExprVoidResultTermCount(t *testing.T) {
	t.Parallel()

	src := `void sink(int a) {}
void use(void) { sink(5); }
`
	out := applyInstance(t, src, 1)
	// void result appends nothing: exactly one term for one argument
	assert.Contains(t, out, "(0);")
	assert.NotContains(t, out, "(0,0);")
}

func TestSimplifyCallExprNameSeeding(t *testing.T) {
	t.Parallel()

	src := `struct z { int a; };
int tmp_var_7;
void foo(struct z s) {}
void use(void) {
	struct z s;
	foo(s);
}
`
	out := applyInstance(t, src, 1)
	assert.Contains(t, out, "(tmp_var_8);")
	assert.Contains(t, out, "struct z tmp_var_8;\nvoid use(void)")
}

func TestSimplifyCallExprNamingIdempotence(t *testing.T) {
	t.Parallel()

	src := `struct z { int a; };
void foo(struct z s) {}
void use(void) {
	struct z s;
	foo(s);
	foo(s);
}
`
	first := applyInstance(t, src, 1)
	assert.Contains(t, first, "tmp_var_1")

	// re-running against the edited source re-seeds the scan, so the second
	// invocation must not reuse tmp_var_1
	second := applyInstance(t, first, 1)
	assert.Contains(t, second, "(tmp_var_2);")
	assert.Contains(t, second, "struct z tmp_var_2;")
	assert.Equal(t, 1, strings.Count(second, "struct z tmp_var_1;"))
}

func TestSimplifyCallExprOutputStillParses(t *testing.T) {
	t.Parallel()

	out := applyInstance(t, structArgSrc, 1)
	require.NoError(t, CompileCheck("test.c", []byte(out)))
}

package reduce

import (
	"strconv"
	"strings"

	cc "modernc.org/cc/v4"
)

// TmpVarNamePrefix is the reserved prefix for temporary variables introduced
// by transformations. Identifiers carrying this prefix are assumed to belong
// to the reducer, and new names are always allocated above the highest
// postfix already present in the source.
const TmpVarNamePrefix = "tmp_var_"

// maxNamePostfix returns the highest decimal postfix among identifiers in
// prog that consist of prefix followed by a number, or 0 when none exist.
func maxNamePostfix(prog *Program, prefix string) int {
	var maxPostfix int
	forEachToken(prog.AST.TranslationUnit, func(tok cc.Token) {
		s := tok.SrcStr()
		if !strings.HasPrefix(s, prefix) {
			return
		}
		if n, err := strconv.Atoi(s[len(prefix):]); err == nil && n > maxPostfix {
			maxPostfix = n
		}
	})
	return maxPostfix
}

// nameSynthesizer allocates collision-free temporary variable names for one
// transformation invocation. The seed scan runs once at construction; every
// allocation afterward is a local increment, so names allocated within one
// invocation are pairwise distinct and above anything already in the source.
type nameSynthesizer struct {
	prefix  string
	postfix int
}

func newNameSynthesizer(prog *Program, prefix string) *nameSynthesizer {
	return &nameSynthesizer{prefix: prefix, postfix: maxNamePostfix(prog, prefix) + 1}
}

func (s *nameSynthesizer) allocate() string {
	name := s.prefix + strconv.Itoa(s.postfix)
	s.postfix++
	return name
}

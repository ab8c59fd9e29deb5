package reduce

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	cc "modernc.org/cc/v4"
)

// Program is one parsed C translation unit together with the raw source it
// was parsed from. The AST is read-only for all transformations; every change
// is expressed as a textual edit against Source.
type Program struct {
	// FileName is the name the source was parsed under; AST positions inside
	// the translation unit carry this name.
	FileName string
	// Source is the raw bytes of the translation unit.
	Source []byte
	// AST is the translated unit from the C frontend.
	AST *cc.AST
}

// ParseProgram runs the C frontend over src and returns the parsed program.
// The frontend is configured for the host OS and architecture, matching the
// compiler the reduced reproducer targets in the common case.
func ParseProgram(filename string, src []byte) (*Program, error) {
	cfg, err := cc.NewConfig(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return nil, fmt.Errorf("configure C frontend failed: %w", err)
	}
	sources := []cc.Source{
		{Name: "<predefined>", Value: cfg.Predefined},
		{Name: "<builtin>", Value: cc.Builtin},
		{Name: filename, Value: string(src)},
	}
	ast, err := cc.Translate(cfg, sources)
	if err != nil {
		return nil, fmt.Errorf("translate %s failed: %w", filename, err)
	}
	return &Program{FileName: filename, Source: src, AST: ast}, nil
}

// LoadProgram reads and parses the C file at path.
func LoadProgram(path string) (*Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source failed: %w", err)
	}
	return ParseProgram(filepath.Base(path), src)
}

// CompileCheck reports whether src still passes the C frontend. This is the
// default interestingness oracle for reduction: the variant must remain a
// valid translation unit, runtime behavior is allowed to change.
func CompileCheck(filename string, src []byte) error {
	_, err := ParseProgram(filename, src)
	return err
}

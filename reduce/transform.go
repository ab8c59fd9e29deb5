package reduce

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/go-analyze/bulk"
)

// ErrMaxInstance indicates the requested instance index exceeds the number of
// candidate instances in the program. This is a normal outcome: enumeration
// drivers probe past the end deliberately, and instance-count queries rely on
// it. No edits are performed when it is returned.
var ErrMaxInstance = errors.New("transformation instance index out of range")

// ErrInternal indicates a transformation invariant was violated after a valid
// selection, or the rewrite buffer failed while applying edits. Callers are
// expected to skip the candidate rather than retry.
var ErrInternal = errors.New("transformation internal error")

// IsNormalTransformError returns true if the error is an expected outcome of
// probing instances rather than a failure.
func IsNormalTransformError(err error) bool {
	return errors.Is(err, ErrMaxInstance)
}

// Transformation is one source-to-source reduction pass. Implementations are
// single-use value holders created per invocation through the registry; they
// never mutate the program's AST, only produce edited source text.
type Transformation interface {
	// Apply transforms the counter'th instance (1-based, in source order) and
	// returns the edited source. ErrMaxInstance is returned when counter
	// exceeds the instance count; ErrInternal on invariant violations.
	Apply(prog *Program, counter int) ([]byte, error)
	// InstanceCount reports how many candidate instances exist in prog.
	InstanceCount(prog *Program) int
}

type transformationEntry struct {
	description string
	factory     func() Transformation
}

var (
	registryLock    sync.RWMutex
	transformations = make(map[string]transformationEntry)
)

// RegisterTransformation adds a named transformation to the registry. It is
// intended to be called from package init functions; duplicate names panic.
func RegisterTransformation(name, description string, factory func() Transformation) {
	registryLock.Lock()
	defer registryLock.Unlock()
	if _, dup := transformations[name]; dup {
		panic(fmt.Sprintf("transformation %q registered twice", name))
	}
	transformations[name] = transformationEntry{description: description, factory: factory}
}

// NewTransformation returns a fresh instance of the named transformation.
func NewTransformation(name string) (Transformation, error) {
	registryLock.RLock()
	defer registryLock.RUnlock()
	entry, ok := transformations[name]
	if !ok {
		return nil, fmt.Errorf("unknown transformation %q, available: %v", name, transformationNamesLocked())
	}
	return entry.factory(), nil
}

// TransformationDescription returns the registered description for name, or
// an empty string when the name is unknown.
func TransformationDescription(name string) string {
	registryLock.RLock()
	defer registryLock.RUnlock()
	return transformations[name].description
}

// TransformationNames returns all registered transformation names, sorted.
func TransformationNames() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()
	return transformationNamesLocked()
}

func transformationNamesLocked() []string {
	names := bulk.MapKeysSlice(transformations)
	slices.Sort(names)
	return names
}

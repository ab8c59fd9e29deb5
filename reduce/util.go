package reduce

import (
	"crypto/sha1"
	"runtime"

	"github.com/mtraver/base91"
	"golang.org/x/sync/errgroup"
)

const ErrorLogPrefix = "!! "

// ErrGroupLimitCPU returns an errgroup limited to NumCPU.
func ErrGroupLimitCPU() *errgroup.Group {
	errGroup := &errgroup.Group{}
	errGroup.SetLimit(runtime.NumCPU())
	return errGroup
}

// VariantKey returns a compact content key for variant source bytes, used to
// index verdict caches. Base91 keeps the key short while remaining printable
// for storage backends keyed by string.
func VariantKey(src []byte) string {
	sha := sha1.Sum(src)
	return base91.StdEncoding.EncodeToString(sha[:])
}

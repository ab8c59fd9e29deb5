package reduce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantRecordRoundTrip(t *testing.T) {
	t.Parallel()

	src := []byte("int main(void) { return (0,0); }\n")
	record := NewVariantRecord(src, true)
	assert.Equal(t, len(src), record.Size)

	blob, err := record.MarshalBlob()
	require.NoError(t, err)

	decoded, err := UnmarshalVariantRecord(blob)
	require.NoError(t, err)
	assert.True(t, decoded.Interesting)
	assert.Equal(t, len(src), decoded.Size)

	decodedSrc, err := decoded.DecodeSource()
	require.NoError(t, err)
	assert.Equal(t, src, decodedSrc)
}

func TestUnmarshalVariantRecordError(t *testing.T) {
	t.Parallel()

	_, err := UnmarshalVariantRecord([]byte("not msgpack at all"))
	require.Error(t, err)
}

func TestVariantKey(t *testing.T) {
	t.Parallel()

	a := VariantKey([]byte("int x;"))
	b := VariantKey([]byte("int y;"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, VariantKey([]byte("int x;")), "key must be deterministic")
	assert.NotEmpty(t, a)
}

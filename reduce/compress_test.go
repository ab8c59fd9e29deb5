package reduce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZstdRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{"nil_input", nil},
		{"c_source", []byte("int main(void) { return (0,0); }\n")},
		{"binary_data", []byte{0x00, 0xFF, 0x10, 0x20, 0x7F}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			compressed := ZstdCompress(nil, tt.input)
			out, err := ZstdDecompress(nil, compressed)
			require.NoError(t, err)
			assert.Equal(t, tt.input, out)
		})
	}
}

func TestZstdDecompressError(t *testing.T) {
	t.Parallel()

	_, err := ZstdDecompress(nil, []byte{0x42, 0x43, 0x44})
	require.Error(t, err)
}

func TestSnappyRoundTrip(t *testing.T) {
	t.Parallel()

	input := []byte("struct z tmp_var_1;\nint main(void) { return 0; }\n")
	compressed := SnappyCompress(nil, input)
	out, err := SnappyDecompress(nil, compressed)
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

package cbor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type job struct {
	ID       string            `cbor:"id"`
	Attempts int64             `cbor:"attempts"`
	Labels   map[string]string `cbor:"labels"`
}

func TestDeterministicRoundTrip(t *testing.T) {
	codec, err := NewDeterministicCodec()
	require.NoError(t, err)

	in := job{ID: "job-1", Attempts: 3, Labels: map[string]string{"b": "2", "a": "1"}}

	first, err := codec.MarshalCBOR(in)
	require.NoError(t, err)
	second, err := codec.MarshalCBOR(job{ID: "job-1", Attempts: 3, Labels: map[string]string{"a": "1", "b": "2"}})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var out job
	require.NoError(t, codec.UnmarshalInto(first, &out))
	assert.Equal(t, in, out)
}

func TestUnmarshalRejectsDuplicateKeys(t *testing.T) {
	codec, err := NewDeterministicCodec()
	require.NoError(t, err)

	// {"a": 1, "a": 2}
	dup := []byte{0xa2, 0x61, 0x61, 0x01, 0x61, 0x61, 0x02}
	var out map[string]int
	assert.Error(t, codec.UnmarshalInto(dup, &out))
}

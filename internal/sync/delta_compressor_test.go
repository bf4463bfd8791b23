package sync

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleChanges() []Change {
	return []Change{
		{Data: []byte("first")},
		{Data: bytes.Repeat([]byte{7}, 300)},
		{Data: []byte{}},
	}
}

func TestCompressors(t *testing.T) {
	for name, c := range map[string]DeltaCompressor{
		"passthrough": NewPassthroughCompressor(),
		"gzip":        NewGzipCompressor(),
	} {
		t.Run(name, func(t *testing.T) {
			payload, err := c.Compress(sampleChanges())
			require.NoError(t, err)

			got, err := c.Decompress(payload)
			require.NoError(t, err)
			require.Len(t, got, 3)
			for i, ch := range sampleChanges() {
				assert.Equal(t, ch.Data, got[i].Data)
				assert.Equal(t, ChangeTypeFieldUpdate, got[i].ChangeType)
			}
		})
	}
}

func TestGzipShrinksRepetitiveBatches(t *testing.T) {
	changes := []Change{{Data: bytes.Repeat([]byte{1, 2, 3, 4}, 1000)}}
	raw, err := NewPassthroughCompressor().Compress(changes)
	require.NoError(t, err)
	packed, err := NewGzipCompressor().Compress(changes)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(raw)/4)
}

func TestDecompressCorrupt(t *testing.T) {
	payload, err := NewPassthroughCompressor().Compress(sampleChanges())
	require.NoError(t, err)

	got, err := NewPassthroughCompressor().Decompress(payload[:7])
	assert.ErrorIs(t, err, ErrCorruptBatch)
	assert.Empty(t, got)

	got, err = NewPassthroughCompressor().Decompress(payload[:len(payload)-2])
	assert.ErrorIs(t, err, ErrCorruptBatch)
	assert.Len(t, got, 2)

	_, err = NewGzipCompressor().Decompress([]byte("not gzip"))
	assert.ErrorIs(t, err, ErrCorruptBatch)
}

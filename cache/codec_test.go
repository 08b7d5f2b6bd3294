package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/KOMKZ/go-yogan-articlecache/logger"
)

func codecs(t *testing.T) []Codec {
	t.Helper()
	zstdCodec, err := NewZstdCodec(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = zstdCodec.Close() })
	return []Codec{NewBrotliCodec(nil), zstdCodec}
}

func TestCodec_RoundTrip(t *testing.T) {
	inputs := []string{
		"a",
		"hello world",
		`{"id":7,"title":"Über café ☕","content":"多语言内容"}`,
		strings.Repeat("the quick brown fox jumps over the lazy dog ", 500),
	}

	for _, c := range codecs(t) {
		t.Run(c.Name(), func(t *testing.T) {
			for _, in := range inputs {
				out, err := c.Compress(in)
				require.NoError(t, err)
				require.NotEmpty(t, out)

				back, err := c.Decompress(out)
				require.NoError(t, err)
				assert.Equal(t, in, back)
			}
		})
	}
}

func TestCodec_Empty(t *testing.T) {
	for _, c := range codecs(t) {
		t.Run(c.Name(), func(t *testing.T) {
			out, err := c.Compress("")
			require.NoError(t, err)
			assert.NotNil(t, out)
			assert.Empty(t, out)

			text, err := c.Decompress(nil)
			require.NoError(t, err)
			assert.Equal(t, "", text)

			text, err = c.Decompress([]byte{})
			require.NoError(t, err)
			assert.Equal(t, "", text)
		})
	}
}

func TestCodec_CompressesRepetitiveText(t *testing.T) {
	in := strings.Repeat("article body ", 1000)
	for _, c := range codecs(t) {
		out, err := c.Compress(in)
		require.NoError(t, err)
		assert.Less(t, len(out), len(in)/10, c.Name())
	}
}

func TestCodec_DecompressTruncated(t *testing.T) {
	in := strings.Repeat("truncated payloads must not decode ", 200)
	for _, c := range codecs(t) {
		out, err := c.Compress(in)
		require.NoError(t, err)

		_, err = c.Decompress(out[:len(out)/2])
		require.Error(t, err, c.Name())
		assert.ErrorIs(t, err, ErrDecompress)
	}
}

func TestCompressionRatio(t *testing.T) {
	assert.Equal(t, 4.0, CompressionRatio(1000, 250))
	assert.Equal(t, 0.0, CompressionRatio(1000, 0))
	assert.Equal(t, 0.0, CompressionRatio(0, 0))
	assert.Equal(t, 0.5, CompressionRatio(10, 20))
}

func TestNewCodec(t *testing.T) {
	c, err := NewCodec("", nil)
	require.NoError(t, err)
	assert.Equal(t, "brotli", c.Name())

	c, err = NewCodec("zstd", nil)
	require.NoError(t, err)
	assert.Equal(t, "zstd", c.Name())

	_, err = NewCodec("lz4", nil)
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestCodec_LogsSizes(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	c := NewBrotliCodec(logger.Wrap(zap.New(core)))

	in := strings.Repeat("x", 400)
	out, err := c.Compress(in)
	require.NoError(t, err)

	entries := logs.FilterMessage("payload compressed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "brotli", fields["codec"])
	assert.EqualValues(t, 400, fields["original_size"])
	assert.EqualValues(t, len(out), fields["compressed_size"])
	assert.InDelta(t, CompressionRatio(400, len(out)), fields["ratio"], 1e-9)
}

package cache

import (
	"bytes"
	"io"

	"github.com/KOMKZ/go-yogan-articlecache/logger"
	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// CompressionRatio original/compressed, 0 when compressed is 0
func CompressionRatio(originalSize, compressedSize int) float64 {
	if compressedSize == 0 {
		return 0
	}
	return float64(originalSize) / float64(compressedSize)
}

// NewCodec returns the codec registered under name (brotli by default)
func NewCodec(name string, log *logger.CtxZapLogger) (Codec, error) {
	switch name {
	case "", "brotli":
		return NewBrotliCodec(log), nil
	case "zstd":
		return NewZstdCodec(log)
	default:
		return nil, ErrConfigInvalid.WithMsgf("unknown codec: %s", name)
	}
}

// BrotliCodec brotli at best compression; the second tier is off the hot path
type BrotliCodec struct {
	quality int
	logger  *logger.CtxZapLogger
}

// NewBrotliCodec creates a brotli codec (quality 11)
func NewBrotliCodec(log *logger.CtxZapLogger) *BrotliCodec {
	if log == nil {
		log = logger.Nop()
	}
	return &BrotliCodec{quality: brotli.BestCompression, logger: log}
}

// Name codec name
func (c *BrotliCodec) Name() string {
	return "brotli"
}

// Compress compresses text
func (c *BrotliCodec) Compress(text string) ([]byte, error) {
	if text == "" {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, c.quality)
	if _, err := io.WriteString(w, text); err != nil {
		return nil, ErrCompress.Wrap(err)
	}
	if err := w.Close(); err != nil {
		return nil, ErrCompress.Wrap(err)
	}

	out := buf.Bytes()
	logCompression(c.logger, c.Name(), len(text), len(out))
	return out, nil
}

// Decompress decompresses data
func (c *BrotliCodec) Decompress(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	if err != nil {
		return "", ErrDecompress.Wrap(err)
	}
	return string(out), nil
}

// ZstdCodec zstd at SpeedBestCompression
// Encoder and decoder are shared; EncodeAll / DecodeAll are safe for concurrent use
type ZstdCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *logger.CtxZapLogger
}

// NewZstdCodec creates a zstd codec
func NewZstdCodec(log *logger.CtxZapLogger) (*ZstdCodec, error) {
	if log == nil {
		log = logger.Nop()
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, ErrConfigInvalid.Wrap(err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, ErrConfigInvalid.Wrap(err)
	}
	return &ZstdCodec{encoder: enc, decoder: dec, logger: log}, nil
}

// Name codec name
func (c *ZstdCodec) Name() string {
	return "zstd"
}

// Compress compresses text
func (c *ZstdCodec) Compress(text string) ([]byte, error) {
	if text == "" {
		return []byte{}, nil
	}
	out := c.encoder.EncodeAll([]byte(text), nil)
	logCompression(c.logger, c.Name(), len(text), len(out))
	return out, nil
}

// Decompress decompresses data
func (c *ZstdCodec) Decompress(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	out, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return "", ErrDecompress.Wrap(err)
	}
	return string(out), nil
}

// Close releases encoder and decoder resources
func (c *ZstdCodec) Close() error {
	c.decoder.Close()
	return c.encoder.Close()
}

func logCompression(log *logger.CtxZapLogger, codec string, original, compressed int) {
	log.Debug("payload compressed",
		zap.String("codec", codec),
		zap.Int("original_size", original),
		zap.Int("compressed_size", compressed),
		zap.Float64("ratio", CompressionRatio(original, compressed)))
}

package serialize

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/notargets/DGMesh/errs"
	"github.com/notargets/DGMesh/hierarchy"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the container written around the blob
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	}
	return fmt.Sprintf("unknown(%d)", uint8(c))
}

// ParseCompression maps "none", "zstd" or "lz4" to a Compression
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	}
	return 0, fmt.Errorf("unknown compression %q", s)
}

// Frame magics, as the bytes appear on disk
var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

// MaxDecodedSize bounds the size of a decompressed blob
const MaxDecodedSize = 1 << 30

// Limit checked after decompression; lowered in tests
var maxDecodedSize = MaxDecodedSize

// The encoder and decoder are safe for concurrent use and reused across calls
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("serialize: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxDecodedSize))
	if err != nil {
		panic("serialize: zstd decoder initialization failed: " + err.Error())
	}
}

// EncodeCompressed is Encode wrapped in a zstd or lz4 frame. Decode detects
// the frame from its magic bytes.
func EncodeCompressed(h *hierarchy.Hierarchy, c Compression) ([]byte, error) {
	raw, err := Encode(h)
	if err != nil {
		return nil, err
	}
	switch c {
	case CompressionNone:
		return raw, nil
	case CompressionZstd:
		return zstdEncoder.EncodeAll(raw, nil), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err = zw.Write(raw); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err = zw.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported compression %v", c)
}

func decompress(data []byte) ([]byte, error) {
	var (
		raw []byte
		err error
	)
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		raw, err = zstdDecoder.DecodeAll(data, nil)
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) {
			return nil, errs.Wrap(errs.ErrTooLarge, "zstd frame over %d bytes", MaxDecodedSize)
		}
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
	case bytes.HasPrefix(data, lz4Magic):
		zr := io.LimitReader(lz4.NewReader(bytes.NewReader(data)), int64(maxDecodedSize)+1)
		raw, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
	default:
		return data, nil
	}
	if len(raw) > maxDecodedSize {
		return nil, errs.Wrap(errs.ErrTooLarge, "decompressed blob over %d bytes", maxDecodedSize)
	}
	return raw, nil
}

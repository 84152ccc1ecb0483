// internal/journal/compression.go
package journal

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// compressor zstd-encodes payloads of at least minSize bytes. Smaller
// payloads pass through untouched and decompress recognizes them by the
// missing frame magic.
type compressor struct {
	minSize  int
	encoders sync.Pool
	decoders sync.Pool
}

func newCompressor(minSize, level int) (*compressor, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}
	enc.Close()

	c := &compressor{
		minSize: minSize,
		encoders: sync.Pool{
			New: func() any {
				enc, _ := zstd.NewWriter(nil,
					zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
					zstd.WithEncoderConcurrency(1),
				)
				return enc
			},
		},
		decoders: sync.Pool{
			New: func() any {
				dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
				return dec
			},
		},
	}
	return c, nil
}

func (c *compressor) compress(data []byte) []byte {
	if len(data) < c.minSize {
		return data
	}
	enc := c.encoders.Get().(*zstd.Encoder)
	defer c.encoders.Put(enc)
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2))
}

func (c *compressor) decompress(data []byte) ([]byte, error) {
	if len(data) < len(zstdMagic) || !bytes.Equal(data[:len(zstdMagic)], zstdMagic) {
		return data, nil
	}
	dec := c.decoders.Get().(*zstd.Decoder)
	defer c.decoders.Put(dec)
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing entry: %w", err)
	}
	return out, nil
}

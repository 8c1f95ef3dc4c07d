package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/fixeltrack/internal/hash"
)

// Compression selects the block compression algorithm.
type Compression uint8

const (
	// CompressionNone stores blocks raw.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD (better ratio).
	CompressionZSTD Compression = 2
)

// String implements fmt.Stringer.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression maps a compression name to its value.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("%w: unknown compression %q", ErrUnsupported, name)
	}
}

func (c Compression) valid() bool { return c <= CompressionZSTD }

const (
	blockHeaderSize  = 12
	defaultBlockSize = 1 << 20
	maxBlockSize     = 64 << 20
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) { zstdEncoderPool.Put(enc) }

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) { zstdDecoderPool.Put(dec) }

// compress returns the compressed form of data, or nil if it does not pay off.
func compress(data []byte, c Compression) ([]byte, error) {
	var out []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		out = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		defer putZstdEncoder(enc)
		out = enc.EncodeAll(data, nil)
	default:
		return nil, nil
	}
	// Keep raw when the ratio is poor.
	if len(out) == 0 || float64(len(out)) > float64(len(data))*0.9 {
		return nil, nil
	}
	return out, nil
}

func decompress(data []byte, size uint32, c Compression) ([]byte, error) {
	result := make([]byte, size)
	switch c {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(data, result)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
		}
		if uint32(n) != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return result, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)
		decoded, err := dec.DecodeAll(data, result[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
		if uint32(len(decoded)) != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("%w: compressed block in uncompressed stream", ErrCorrupt)
	}
}

// blockWriter buffers payload bytes and emits them as checksummed blocks.
type blockWriter struct {
	w           io.Writer
	compression Compression
	blockSize   int
	buf         []byte
	written     int64
}

func newBlockWriter(w io.Writer, c Compression, blockSize int) *blockWriter {
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}
	return &blockWriter{
		w:           w,
		compression: c,
		blockSize:   blockSize,
		buf:         make([]byte, 0, blockSize),
	}
}

func (b *blockWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		space := b.blockSize - len(b.buf)
		if space == 0 {
			if err := b.Flush(); err != nil {
				return total, err
			}
			space = b.blockSize
		}
		n := min(space, len(p))
		b.buf = append(b.buf, p[:n]...)
		total += n
		p = p[n:]
	}
	return total, nil
}

// Flush writes the buffered bytes as one block.
func (b *blockWriter) Flush() error {
	if len(b.buf) == 0 {
		return nil
	}
	compressed, err := compress(b.buf, b.compression)
	if err != nil {
		return err
	}

	var hdr [blockHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(len(b.buf)))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(compressed)))
	binary.LittleEndian.PutUint32(hdr[8:], hash.CRC32C(b.buf))

	data := b.buf
	if compressed != nil {
		data = compressed
	}
	if _, err := b.w.Write(hdr[:]); err != nil {
		return err
	}
	n, err := b.w.Write(data)
	if err != nil {
		return err
	}
	b.written += int64(blockHeaderSize + n)
	b.buf = b.buf[:0]
	return nil
}

// blockReader serves the decompressed payload of consecutive blocks.
type blockReader struct {
	r           io.Reader
	compression Compression
	block       []byte
	off         int
}

func newBlockReader(r io.Reader, c Compression) *blockReader {
	return &blockReader{r: r, compression: c}
}

func (b *blockReader) Read(p []byte) (int, error) {
	for b.off == len(b.block) {
		if err := b.next(); err != nil {
			return 0, err
		}
	}
	n := copy(p, b.block[b.off:])
	b.off += n
	return n, nil
}

func (b *blockReader) next() error {
	var hdr [blockHeaderSize]byte
	if _, err := io.ReadFull(b.r, hdr[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("%w: block header: %w", ErrCorrupt, err)
	}
	size := binary.LittleEndian.Uint32(hdr[0:])
	stored := binary.LittleEndian.Uint32(hdr[4:])
	sum := binary.LittleEndian.Uint32(hdr[8:])
	if size > maxBlockSize || stored > maxBlockSize {
		return fmt.Errorf("%w: block of %d bytes", ErrCorrupt, max(size, stored))
	}

	raw := stored
	if raw == 0 {
		raw = size
	}
	data := make([]byte, raw)
	if _, err := io.ReadFull(b.r, data); err != nil {
		return fmt.Errorf("%w: block data: %w", ErrCorrupt, err)
	}
	if stored != 0 {
		var err error
		if data, err = decompress(data, size, b.compression); err != nil {
			return err
		}
	}
	if hash.CRC32C(data) != sum {
		return fmt.Errorf("%w: block checksum mismatch", ErrCorrupt)
	}
	b.block, b.off = data, 0
	return nil
}

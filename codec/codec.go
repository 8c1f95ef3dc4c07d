package codec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/fixeltrack/contribution"
	"github.com/hupe1980/fixeltrack/internal/conv"
)

var (
	// ErrCorrupt is returned when a stream fails structural or checksum validation.
	ErrCorrupt = errors.New("codec: corrupt stream")
	// ErrUnsupported is returned for unknown versions or compression modes.
	ErrUnsupported = errors.New("codec: unsupported")
)

const (
	// Version is the current stream format version.
	Version uint8 = 1

	headerSize = 20
	listHeader = 8

	// maxPrealloc bounds allocations driven by untrusted counts.
	maxPrealloc = 1 << 16
)

var magic = [4]byte{'F', 'X', 'T', 'C'}

// Options configures Encode.
type Options struct {
	Compression Compression
	// BlockSize is the uncompressed payload per block. Zero uses 1 MiB.
	BlockSize int
}

// Encode writes lists, quantized under s, to w.
func Encode(w io.Writer, s contribution.Scale, lists []contribution.List, opts Options) error {
	if !s.Valid() {
		return fmt.Errorf("codec: encode with %w", contribution.ErrInvalidVoxelSize)
	}
	if !opts.Compression.valid() {
		return fmt.Errorf("%w: %s", ErrUnsupported, opts.Compression)
	}
	if opts.BlockSize < 0 || opts.BlockSize > maxBlockSize {
		return fmt.Errorf("codec: block size %d out of range", opts.BlockSize)
	}

	var hdr [headerSize]byte
	copy(hdr[0:4], magic[:])
	hdr[4] = Version
	hdr[5] = byte(opts.Compression)
	binary.LittleEndian.PutUint32(hdr[8:], math.Float32bits(s.Diagonal()))
	binary.LittleEndian.PutUint64(hdr[12:], uint64(len(lists)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	bw := newBlockWriter(w, opts.Compression, opts.BlockSize)
	var scratch [listHeader + binary.MaxVarintLen64]byte
	var rec [4]byte
	for _, l := range lists {
		binary.LittleEndian.PutUint32(scratch[0:], math.Float32bits(l.TotalContribution()))
		binary.LittleEndian.PutUint32(scratch[4:], math.Float32bits(l.TotalLength()))
		n := binary.PutUvarint(scratch[listHeader:], uint64(l.Len()))
		if _, err := bw.Write(scratch[:listHeader+n]); err != nil {
			return err
		}
		for r := range l.All() {
			binary.LittleEndian.PutUint32(rec[:], uint32(r))
			if _, err := bw.Write(rec[:]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// Decode reads a stream written by Encode. Records are returned bit-exact; the
// scale is rebuilt from the stored diagonal.
func Decode(r io.Reader) (contribution.Scale, []contribution.List, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return contribution.Scale{}, nil, fmt.Errorf("%w: header: %w", ErrCorrupt, err)
	}
	if [4]byte(hdr[0:4]) != magic {
		return contribution.Scale{}, nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, hdr[0:4])
	}
	if hdr[4] != Version {
		return contribution.Scale{}, nil, fmt.Errorf("%w: version %d", ErrUnsupported, hdr[4])
	}
	c := Compression(hdr[5])
	if !c.valid() {
		return contribution.Scale{}, nil, fmt.Errorf("%w: %s", ErrUnsupported, c)
	}
	s, err := contribution.ScaleFromDiagonal(math.Float32frombits(binary.LittleEndian.Uint32(hdr[8:])))
	if err != nil {
		return contribution.Scale{}, nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	count, err := conv.Uint64ToInt(binary.LittleEndian.Uint64(hdr[12:]))
	if err != nil {
		return contribution.Scale{}, nil, fmt.Errorf("%w: list count: %w", ErrCorrupt, err)
	}

	br := bufio.NewReader(newBlockReader(r, c))
	lists := make([]contribution.List, 0, min(count, maxPrealloc))
	var records []contribution.Record
	var buf [listHeader]byte
	var rec [4]byte
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return contribution.Scale{}, nil, truncated(i, err)
		}
		tc := math.Float32frombits(binary.LittleEndian.Uint32(buf[0:]))
		tl := math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))
		n, err := binary.ReadUvarint(br)
		if err != nil {
			return contribution.Scale{}, nil, truncated(i, err)
		}
		if n > math.MaxUint32 {
			return contribution.Scale{}, nil, fmt.Errorf("%w: list %d has %d records", ErrCorrupt, i, n)
		}
		records = records[:0]
		for j := uint64(0); j < n; j++ {
			if _, err := io.ReadFull(br, rec[:]); err != nil {
				return contribution.Scale{}, nil, truncated(i, err)
			}
			records = append(records, contribution.Record(binary.LittleEndian.Uint32(rec[:])))
		}
		lists = append(lists, contribution.NewList(records, tc, tl))
	}
	if _, err := br.ReadByte(); err != io.EOF {
		if err == nil {
			return contribution.Scale{}, nil, fmt.Errorf("%w: trailing data", ErrCorrupt)
		}
		return contribution.Scale{}, nil, err
	}
	return s, lists, nil
}

func truncated(list int, err error) error {
	if errors.Is(err, ErrCorrupt) {
		return err
	}
	return fmt.Errorf("%w: list %d: %w", ErrCorrupt, list, err)
}

// Package filecodec reads and writes the versioned on-disk container
// file format: a fixed 128-byte header followed by a kind-specific
// payload.
package filecodec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/natefinch/atomic"

	"github.com/kenorb-dev/bloomline/filter"
)

const (
	magic      = 0xB1008811
	headerSize = 128

	offMagic          = 0
	offKind           = 4
	offSizeBytes      = 5
	offCapacity       = 13
	offErrorRate      = 21
	offWritesObserved = 29
	offWritesMax      = 37
	offReserved       = 45
	reservedLen       = 83
)

var (
	// ErrMagicMismatch is returned when a file's leading 4 bytes do not
	// match the container file magic.
	ErrMagicMismatch = errors.New("filecodec: magic mismatch")
	// ErrUnknownKind is returned when the header's kind discriminant
	// does not match a recognized construction kind.
	ErrUnknownKind = errors.New("filecodec: unknown kind")
	// ErrTruncatedPayload is returned when the file is shorter than the
	// header, or when the payload's length does not match what the header
	// declares.
	ErrTruncatedPayload = errors.New("filecodec: truncated payload")
)

// Write serializes c to path, creating or atomically replacing it. The
// write is all-or-nothing: readers never observe a partially written
// file.
func Write(c filter.Container, path string) error {
	md := c.Metadata()
	cd := md.Construction

	header := make([]byte, headerSize)
	binary.BigEndian.PutUint32(header[offMagic:], magic)
	header[offKind] = byte(cd.Kind)
	binary.LittleEndian.PutUint64(header[offSizeBytes:], cd.SizeBytes)
	binary.LittleEndian.PutUint64(header[offCapacity:], cd.Capacity)
	binary.LittleEndian.PutUint64(header[offErrorRate:], math.Float64bits(cd.ErrorRate))
	binary.LittleEndian.PutUint64(header[offWritesObserved:], md.WritesObserved)
	binary.LittleEndian.PutUint64(header[offWritesMax:], md.WritesMax)
	// header[offReserved:offReserved+reservedLen] is already zero.

	var payload []byte
	switch f := c.(type) {
	case *filter.BloomFilter:
		seeds := f.Seeds()
		bits := f.Bits()
		payload = make([]byte, 32+len(bits))
		binary.LittleEndian.PutUint64(payload[0:8], seeds.K0a)
		binary.LittleEndian.PutUint64(payload[8:16], seeds.K0b)
		binary.LittleEndian.PutUint64(payload[16:24], seeds.K1a)
		binary.LittleEndian.PutUint64(payload[24:32], seeds.K1b)
		copy(payload[32:], bits)
	case *filter.XxhFilter:
		payload = f.Bits()
	default:
		return fmt.Errorf("filecodec: %w: %T", ErrUnknownKind, c)
	}

	buf := make([]byte, 0, headerSize+len(payload))
	buf = append(buf, header...)
	buf = append(buf, payload...)

	return atomic.WriteFile(path, bytes.NewReader(buf))
}

// Read loads and validates a container file, reconstructing the
// appropriate filter.Container variant from the stored kind
// discriminant. Magic is checked before any other field is read.
func Read(path string) (filter.Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("filecodec: read %s: %w", path, err)
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("filecodec: %w: header truncated (%d bytes)", ErrTruncatedPayload, len(data))
	}

	if got := binary.BigEndian.Uint32(data[offMagic:]); got != magic {
		return nil, fmt.Errorf("filecodec: %w: got 0x%08X", ErrMagicMismatch, got)
	}

	kind := filter.Kind(data[offKind])
	cd := filter.ConstructionDetails{
		Kind:      kind,
		SizeBytes: binary.LittleEndian.Uint64(data[offSizeBytes:]),
		Capacity:  binary.LittleEndian.Uint64(data[offCapacity:]),
		ErrorRate: math.Float64frombits(binary.LittleEndian.Uint64(data[offErrorRate:])),
	}
	writesObserved := binary.LittleEndian.Uint64(data[offWritesObserved:])

	payload := data[headerSize:]

	switch kind {
	case filter.KindBloomCapacityAndSize, filter.KindBloomCapacityAndErrorRate:
		if len(payload) < 32 {
			return nil, fmt.Errorf("filecodec: %w: bloom payload too short (%d bytes)", ErrTruncatedPayload, len(payload))
		}
		seeds := filter.HashSeeds{
			K0a: binary.LittleEndian.Uint64(payload[0:8]),
			K0b: binary.LittleEndian.Uint64(payload[8:16]),
			K1a: binary.LittleEndian.Uint64(payload[16:24]),
			K1b: binary.LittleEndian.Uint64(payload[24:32]),
		}
		bits := payload[32:]
		bf, err := filter.LoadBloom(path, cd, writesObserved, seeds, bits)
		if err != nil {
			return nil, fmt.Errorf("filecodec: %w: %v", ErrTruncatedPayload, err)
		}
		return bf, nil
	case filter.KindXxhCapacityAndSize:
		if len(payload) != int(cd.SizeBytes) {
			return nil, fmt.Errorf("filecodec: %w: xxh payload is %d bytes, want %d", ErrTruncatedPayload, len(payload), cd.SizeBytes)
		}
		return filter.LoadXxh(path, cd, writesObserved, payload)
	default:
		return nil, fmt.Errorf("filecodec: %w: %d", ErrUnknownKind, uint8(kind))
	}
}

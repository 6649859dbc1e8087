package filter

import (
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/kenorb-dev/bloomline/bitarray"
)

// defaultKeyBits is the number of fingerprint bits stored per slot,
// in addition to the one occupied-flag bit (slot_bits = 1 + key_bits).
const defaultKeyBits = 20

// probeLimit bounds how many consecutive slots check/check_and_set will
// inspect before giving up.
const probeLimit = 4

// XxhFilter is a compact, single-hash, slotted membership filter. It
// trades false-negative freedom (which BloomFilter guarantees) for a
// smaller footprint: under heavy collision pressure check_and_set can
// fail to insert at all (see probeLimit exhaustion), which the Pipeline
// treats as "not previously seen".
type XxhFilter struct {
	bits     *bitarray.BitArray
	keyBits  uint64
	slotBits uint64
	numSlots uint64
	metadata Metadata
}

// NewXxhFilter builds an XxhFilter with an explicit bit-array size in
// bytes.
func NewXxhFilter(path string, capacity, sizeBytes uint64) *XxhFilter {
	return newXxhFilter(path, SourceMemory, ConstructionDetails{
		Kind:      KindXxhCapacityAndSize,
		Capacity:  capacity,
		SizeBytes: sizeBytes,
	}, 0)
}

// LoadXxh reconstructs an XxhFilter from data read back by filecodec. No
// hash seed is persisted for this variant — the payload is the bit
// array bytes only, matching the file format's Xxh layout.
func LoadXxh(path string, cd ConstructionDetails, writesObserved uint64, bits []byte) (*XxhFilter, error) {
	f := newXxhFilter(path, SourceFile, cd, writesObserved)

	ba, err := bitarray.FromBytes(bits, 8*int(cd.SizeBytes))
	if err != nil {
		return nil, err
	}
	f.bits = ba
	return f, nil
}

func newXxhFilter(path string, source Source, cd ConstructionDetails, writesObserved uint64) *XxhFilter {
	keyBits := uint64(defaultKeyBits)
	slotBits := 1 + keyBits
	numBits := 8 * cd.SizeBytes
	numSlots := numBits / slotBits

	return &XxhFilter{
		bits:     bitarray.New(int(numBits)),
		keyBits:  keyBits,
		slotBits: slotBits,
		numSlots: numSlots,
		metadata: Metadata{
			Path:           path,
			Source:         source,
			Construction:   cd,
			WritesObserved: writesObserved,
			WritesMax:      cd.Capacity,
		},
	}
}

// Bits returns the raw byte-packed bit array, for persistence by
// filecodec.
func (f *XxhFilter) Bits() []byte {
	return f.bits.ToBytes()
}

func (f *XxhFilter) hash(value []byte) (anchor uint64, fingerprint uint64) {
	h := xxhash.Sum64(value)
	fingerprint = h & ((uint64(1) << f.keyBits) - 1)

	if f.numSlots <= 1 {
		return 0, fingerprint
	}
	anchor = uint64((float64(h) / float64(math.MaxUint64)) * float64(f.numSlots-1))
	return anchor, fingerprint
}

// slotOccupied reports whether slot s's occupied flag is set.
func (f *XxhFilter) slotOccupied(s uint64) bool {
	return f.bits.Get(int(s * f.slotBits))
}

// slotFingerprint reads the key_bits fingerprint stored in slot s.
func (f *XxhFilter) slotFingerprint(s uint64) uint64 {
	start := s*f.slotBits + 1
	var value uint64
	for i := uint64(0); i < f.keyBits; i++ {
		value = (value << 1) | boolToBit(f.bits.Get(int(start+i)))
	}
	return value
}

// writeSlot marks slot s occupied and writes the fingerprint bits.
func (f *XxhFilter) writeSlot(s uint64, fingerprint uint64) {
	f.bits.Set(int(s*f.slotBits), true)

	start := s*f.slotBits + 1
	for i := uint64(0); i < f.keyBits; i++ {
		shift := f.keyBits - 1 - i
		bit := (fingerprint>>shift)&1 == 1
		f.bits.Set(int(start+i), bit)
	}
}

func boolToBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Check probes up to probeLimit slots starting at the value's anchor. A
// free slot found before a match is a definite miss; a matching
// fingerprint is a hit; exhausting all probed slots without either is a
// conservative "probably present", consistent with check_and_set's
// probing order.
func (f *XxhFilter) Check(value []byte) bool {
	if f.numSlots == 0 {
		return false
	}
	anchor, fingerprint := f.hash(value)

	for i := uint64(0); i < probeLimit; i++ {
		slot := (anchor + i) % f.numSlots
		if !f.slotOccupied(slot) {
			return false
		}
		if f.slotFingerprint(slot) == fingerprint {
			return true
		}
	}
	return true
}

// CheckAndSet probes up to probeLimit slots starting at the value's
// anchor. A matching occupied slot is a hit, returned without further
// action. The first free slot found gets the fingerprint written and
// writes_observed incremented, returning false. If every probed slot is
// occupied with a non-matching fingerprint, it fails open: no insertion
// happens and the call returns false.
func (f *XxhFilter) CheckAndSet(value []byte) bool {
	if f.numSlots == 0 {
		return false
	}
	anchor, fingerprint := f.hash(value)

	for i := uint64(0); i < probeLimit; i++ {
		slot := (anchor + i) % f.numSlots
		if !f.slotOccupied(slot) {
			f.writeSlot(slot, fingerprint)
			f.metadata.WritesObserved++
			return false
		}
		if f.slotFingerprint(slot) == fingerprint {
			return true
		}
	}
	return false
}

// Set is equivalent to CheckAndSet, discarding the return value, but
// always increments writes_observed exactly once, even when the probe
// finds every slot occupied and the insertion is a no-op. CheckAndSet
// itself only increments on a genuine fresh insertion, so Set captures
// the prior count and restores the invariant after the call.
func (f *XxhFilter) Set(value []byte) {
	before := f.metadata.WritesObserved
	f.CheckAndSet(value)
	f.metadata.WritesObserved = before + 1
}

// IsFull reports whether WritesObserved has reached Capacity.
func (f *XxhFilter) IsFull() bool {
	return f.metadata.WritesObserved >= f.metadata.Construction.Capacity
}

// Usage returns the approximate fill percentage in bits.
func (f *XxhFilter) Usage() float64 {
	total := float64(f.bits.Len())
	if total == 0 {
		return 100
	}
	return 100 * float64(f.metadata.WritesObserved) / total
}

// WriteLevel returns 100*writes_observed/writes_max.
func (f *XxhFilter) WriteLevel() float64 {
	return f.metadata.WriteLevel()
}

// Metadata returns the container's construction metadata.
func (f *XxhFilter) Metadata() *Metadata {
	return &f.metadata
}

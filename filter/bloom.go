package filter

import (
	"crypto/rand"
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/dchest/siphash"

	"github.com/kenorb-dev/bloomline/bitarray"
)

// HashSeeds are the two SipHash key pairs a BloomFilter hashes with.
// (K0a,K0b) produces h1, (K1a,K1b) produces h2. They are generated once
// at construction and MUST be persisted and reloaded verbatim — a
// reloaded filter that reseeded would disagree with itself about every
// previously inserted value.
type HashSeeds struct {
	K0a, K0b uint64
	K1a, K1b uint64
}

// NewHashSeeds draws fresh seeds from crypto/rand. If the system RNG is
// unavailable (practically never, but the error is not ignorable), seeds
// are instead derived deterministically from path so construction can
// still proceed; this is documented in DESIGN.md and is the only case in
// which bloomline falls back to a non-random seed source.
func NewHashSeeds(path string) HashSeeds {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return deterministicHashSeeds(path)
	}
	return HashSeeds{
		K0a: binary.LittleEndian.Uint64(buf[0:8]),
		K0b: binary.LittleEndian.Uint64(buf[8:16]),
		K1a: binary.LittleEndian.Uint64(buf[16:24]),
		K1b: binary.LittleEndian.Uint64(buf[24:32]),
	}
}

func deterministicHashSeeds(path string) HashSeeds {
	base := xxhash.Sum64String(path)
	return HashSeeds{
		K0a: base,
		K0b: base ^ 0x9e3779b97f4a7c15,
		K1a: base ^ 0xc6a4a7935bd1e995,
		K1b: base*2 + 1,
	}
}

// BloomFilter is a classical k-hash Bloom filter over a BitArray.
type BloomFilter struct {
	bits     *bitarray.BitArray
	m        uint64
	k        uint64
	seeds    HashSeeds
	metadata Metadata
}

// NewBloomByErrorRate builds a BloomFilter sized for capacity insertions
// at the given target false-positive rate.
func NewBloomByErrorRate(path string, capacity uint64, errorRate float64) *BloomFilter {
	return newBloomByErrorRate(path, SourceMemory, capacity, errorRate)
}

func newBloomByErrorRate(path string, source Source, capacity uint64, errorRate float64) *BloomFilter {
	m := bloomBitsForErrorRate(capacity, errorRate)
	k := bloomHashCount(m, capacity)
	return newBloomFilter(path, source, ConstructionDetails{
		Kind:      KindBloomCapacityAndErrorRate,
		Capacity:  capacity,
		ErrorRate: errorRate,
	}, m, k, NewHashSeeds(path))
}

// NewBloomBySize builds a BloomFilter with an explicit bit-array size in
// bytes, deriving k from capacity and the resulting m.
func NewBloomBySize(path string, capacity uint64, sizeBytes uint64) *BloomFilter {
	return newBloomBySize(path, SourceMemory, capacity, sizeBytes)
}

func newBloomBySize(path string, source Source, capacity uint64, sizeBytes uint64) *BloomFilter {
	m := 8 * sizeBytes
	k := bloomHashCount(m, capacity)
	return newBloomFilter(path, source, ConstructionDetails{
		Kind:      KindBloomCapacityAndSize,
		Capacity:  capacity,
		SizeBytes: sizeBytes,
	}, m, k, NewHashSeeds(path))
}

// LoadBloom reconstructs a BloomFilter from data read back by filecodec:
// its construction details, previously observed writes, persisted hash
// seeds, and the raw bit-array bytes. The seeds are never regenerated.
func LoadBloom(path string, cd ConstructionDetails, writesObserved uint64, seeds HashSeeds, bits []byte) (*BloomFilter, error) {
	m := bloomM(cd)
	k := bloomHashCount(m, cd.Capacity)

	ba, err := bitarray.FromBytes(bits, int(m))
	if err != nil {
		return nil, err
	}

	bf := &BloomFilter{
		bits:  ba,
		m:     m,
		k:     k,
		seeds: seeds,
		metadata: Metadata{
			Path:           path,
			Source:         SourceFile,
			Construction:   cd,
			WritesObserved: writesObserved,
			WritesMax:      cd.Capacity,
		},
	}
	return bf, nil
}

func bloomM(cd ConstructionDetails) uint64 {
	if cd.Kind == KindBloomCapacityAndErrorRate {
		return bloomBitsForErrorRate(cd.Capacity, cd.ErrorRate)
	}
	return 8 * cd.SizeBytes
}

func bloomBitsForErrorRate(capacity uint64, errorRate float64) uint64 {
	ln2 := math.Ln2
	m := math.Ceil(-float64(capacity) * math.Log(errorRate) / (ln2 * ln2))
	if m < 1 {
		m = 1
	}
	return uint64(m)
}

func bloomHashCount(m, capacity uint64) uint64 {
	if capacity == 0 {
		return 1
	}
	k := math.Round((float64(m) / float64(capacity)) * math.Ln2)
	if k < 1 {
		k = 1
	}
	if k > 64 {
		k = 64
	}
	return uint64(k)
}

func newBloomFilter(path string, source Source, cd ConstructionDetails, m, k uint64, seeds HashSeeds) *BloomFilter {
	return &BloomFilter{
		bits:  bitarray.New(int(m)),
		m:     m,
		k:     k,
		seeds: seeds,
		metadata: Metadata{
			Path:         path,
			Source:       source,
			Construction: cd,
			WritesMax:    cd.Capacity,
		},
	}
}

// Seeds returns the filter's SipHash key pairs, for persistence by
// filecodec.
func (f *BloomFilter) Seeds() HashSeeds {
	return f.seeds
}

// Bits returns the raw byte-packed bit array, for persistence by
// filecodec.
func (f *BloomFilter) Bits() []byte {
	return f.bits.ToBytes()
}

// M returns the number of bits in the underlying array.
func (f *BloomFilter) M() uint64 {
	return f.m
}

// K returns the number of hash functions in use.
func (f *BloomFilter) K() uint64 {
	return f.k
}

func (f *BloomFilter) positions(value []byte) []uint64 {
	h1 := siphash.Hash(f.seeds.K0a, f.seeds.K0b, value)
	h2 := siphash.Hash(f.seeds.K1a, f.seeds.K1b, value)

	positions := make([]uint64, f.k)
	for i := uint64(0); i < f.k; i++ {
		positions[i] = (h1 + i*h2) % f.m
	}
	return positions
}

// Check returns true iff all k bits for value are set.
func (f *BloomFilter) Check(value []byte) bool {
	for _, pos := range f.positions(value) {
		if !f.bits.Get(int(pos)) {
			return false
		}
	}
	return true
}

// Set sets all k bits for value and increments WritesObserved
// unconditionally.
func (f *BloomFilter) Set(value []byte) {
	for _, pos := range f.positions(value) {
		f.bits.Set(int(pos), true)
	}
	f.metadata.WritesObserved++
}

// CheckAndSet computes the conjunction of the pre-set state of all k
// bits (true only if value was "probably present"), always writes all k
// bits, and increments WritesObserved only when the result is false
// (i.e. this was a definite new insertion).
func (f *BloomFilter) CheckAndSet(value []byte) bool {
	positions := f.positions(value)

	hadAllBits := true
	for _, pos := range positions {
		if !f.bits.Get(int(pos)) {
			hadAllBits = false
		}
	}

	for _, pos := range positions {
		f.bits.Set(int(pos), true)
	}

	if !hadAllBits {
		f.metadata.WritesObserved++
	}

	return hadAllBits
}

// IsFull reports whether WritesObserved has reached Capacity.
func (f *BloomFilter) IsFull() bool {
	return f.metadata.WritesObserved >= f.metadata.Construction.Capacity
}

// Usage returns the approximate fill percentage in bits.
func (f *BloomFilter) Usage() float64 {
	if f.m == 0 {
		return 100
	}
	return 100 * float64(f.metadata.WritesObserved) / float64(f.m)
}

// WriteLevel returns 100*writes_observed/writes_max.
func (f *BloomFilter) WriteLevel() float64 {
	return f.metadata.WriteLevel()
}

// Metadata returns the container's construction metadata.
func (f *BloomFilter) Metadata() *Metadata {
	return &f.metadata
}

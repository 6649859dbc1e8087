package bitarray

import "testing"

func TestGetSetRoundTrip(t *testing.T) {
	b := New(17)

	if b.Len() != 17 {
		t.Fatalf("Len() = %d, want 17", b.Len())
	}

	if len(b.ToBytes()) != 3 {
		t.Fatalf("ToBytes() len = %d, want 3", len(b.ToBytes()))
	}

	for i := 0; i < 17; i++ {
		if b.Get(i) {
			t.Fatalf("bit %d should start unset", i)
		}
	}

	b.Set(0, true)
	b.Set(8, true)
	b.Set(16, true)

	for _, i := range []int{0, 8, 16} {
		if !b.Get(i) {
			t.Fatalf("bit %d should be set", i)
		}
	}
	for _, i := range []int{1, 7, 9, 15} {
		if b.Get(i) {
			t.Fatalf("bit %d should remain unset", i)
		}
	}
}

func TestTrailingPaddingBitsAreZero(t *testing.T) {
	b := New(3)
	b.Set(0, true)
	b.Set(1, true)
	b.Set(2, true)

	bs := b.ToBytes()
	if len(bs) != 1 {
		t.Fatalf("len = %d, want 1", len(bs))
	}
	if bs[0] != 0b0000_0111 {
		t.Fatalf("byte = %08b, want 00000111", bs[0])
	}
}

func TestGetOutOfRangePanics(t *testing.T) {
	b := New(4)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on out-of-range Get")
		}
	}()
	b.Get(4)
}

func TestSetOutOfRangePanics(t *testing.T) {
	b := New(4)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on out-of-range Set")
		}
	}()
	b.Set(4, true)
}

func TestFromBytesBadLength(t *testing.T) {
	_, err := FromBytes([]byte{0, 0}, 17)
	if err == nil {
		t.Fatal("expected error for mismatched byte length")
	}
}

func TestFromBytesRoundTrip(t *testing.T) {
	b := New(20)
	b.Set(0, true)
	b.Set(19, true)
	b.Set(10, true)

	encoded := b.ToBytes()
	decoded, err := FromBytes(encoded, 20)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}

	for i := 0; i < 20; i++ {
		if decoded.Get(i) != b.Get(i) {
			t.Fatalf("bit %d mismatch after round trip", i)
		}
	}
}

func TestEmptyBitArray(t *testing.T) {
	b := New(0)
	if b.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", b.Len())
	}
	if len(b.ToBytes()) != 0 {
		t.Fatalf("ToBytes() len = %d, want 0", len(b.ToBytes()))
	}
}

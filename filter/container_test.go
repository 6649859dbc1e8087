package filter

import "testing"

func allKinds(t *testing.T) map[string]Container {
	t.Helper()

	bloomSize, err := New("mem", ConstructionDetails{
		Kind: KindBloomCapacityAndSize, Capacity: 1000, SizeBytes: 4096,
	})
	if err != nil {
		t.Fatalf("New(bloom-by-size): %v", err)
	}

	bloomRate, err := New("mem", ConstructionDetails{
		Kind: KindBloomCapacityAndErrorRate, Capacity: 1000, ErrorRate: 0.01,
	})
	if err != nil {
		t.Fatalf("New(bloom-by-error-rate): %v", err)
	}

	xxh, err := New("mem", ConstructionDetails{
		Kind: KindXxhCapacityAndSize, Capacity: 1000, SizeBytes: 4096,
	})
	if err != nil {
		t.Fatalf("New(xxh): %v", err)
	}

	return map[string]Container{
		"bloom-by-size": bloomSize,
		"bloom-by-rate": bloomRate,
		"xxh":           xxh,
	}
}

func TestContainerCheckAndSetTwiceIsHitSecondTime(t *testing.T) {
	for name, c := range allKinds(t) {
		t.Run(name, func(t *testing.T) {
			if c.CheckAndSet([]byte("x")) {
				t.Fatal("first CheckAndSet reported a pre-existing hit")
			}
			if !c.CheckAndSet([]byte("x")) {
				t.Fatal("second CheckAndSet did not report the prior insertion")
			}
		})
	}
}

func TestContainerSetThenCheck(t *testing.T) {
	for name, c := range allKinds(t) {
		t.Run(name, func(t *testing.T) {
			c.Set([]byte("y"))
			if !c.Check([]byte("y")) {
				t.Fatal("Check missed a value that was Set")
			}
		})
	}
}

func TestContainerUnseenValueIsAMiss(t *testing.T) {
	for name, c := range allKinds(t) {
		t.Run(name, func(t *testing.T) {
			if c.Check([]byte("never seen")) {
				t.Fatal("Check reported a hit on a value never inserted")
			}
		})
	}
}

func TestContainerEmptyValueIsValid(t *testing.T) {
	for name, c := range allKinds(t) {
		t.Run(name, func(t *testing.T) {
			if c.CheckAndSet(nil) {
				t.Fatal("first CheckAndSet(nil) reported a pre-existing hit")
			}
			if !c.Check(nil) {
				t.Fatal("Check(nil) missed a value that was CheckAndSet")
			}
		})
	}
}

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := New("mem", ConstructionDetails{Kind: Kind(99), Capacity: 1})
	if err == nil {
		t.Fatal("expected an error for an unknown construction kind")
	}
}

func TestNewRejectsInvalidConstruction(t *testing.T) {
	_, err := New("mem", ConstructionDetails{Kind: KindBloomCapacityAndSize, Capacity: 0, SizeBytes: 4096})
	if err == nil {
		t.Fatal("expected an error for capacity 0")
	}
}

func TestNewWithSourceMarksFileProvenance(t *testing.T) {
	c, err := NewWithSource("/tmp/container.bin", ConstructionDetails{
		Kind: KindXxhCapacityAndSize, Capacity: 10, SizeBytes: 4096,
	}, SourceFile)
	if err != nil {
		t.Fatalf("NewWithSource: %v", err)
	}
	if c.Metadata().Source != SourceFile {
		t.Fatalf("Source = %v, want SourceFile", c.Metadata().Source)
	}
	if c.Metadata().Path != "/tmp/container.bin" {
		t.Fatalf("Path = %q, want /tmp/container.bin", c.Metadata().Path)
	}
}

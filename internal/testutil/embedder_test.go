package testutil

import (
	"math"
	"testing"
)

func TestDeterministicVector(t *testing.T) {
	a := DeterministicVector("hello", 384)
	b := DeterministicVector("hello", 384)
	c := DeterministicVector("world", 384)

	if len(a) != 384 {
		t.Fatalf("dimension = %d, want 384", len(a))
	}

	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text produced different vectors")
		}
	}

	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical vectors")
	}

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-3 {
		t.Errorf("vector norm = %f, want 1", math.Sqrt(norm))
	}
}

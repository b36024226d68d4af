package rng

import (
	"math"
	"testing"
)

func TestSameSeedSameSequence(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 100; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
		if x, y := a.Normal(5, 2), b.Normal(5, 2); x != y {
			t.Fatalf("normal draw %d differs: %v vs %v", i, x, y)
		}
	}
}

func TestDifferentSeedsDiffer(t *testing.T) {
	a := New(1)
	b := New(2)
	same := 0
	for i := 0; i < 20; i++ {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	if same == 20 {
		t.Error("different seeds produced identical sequences")
	}
}

func TestNormalMoments(t *testing.T) {
	r := New(7)
	const n = 20000
	var sum, sq float64
	for i := 0; i < n; i++ {
		x := r.Normal(8, 1.5)
		sum += x
		sq += x * x
	}
	mean := sum / n
	std := math.Sqrt(sq/n - mean*mean)
	if math.Abs(mean-8) > 0.05 {
		t.Errorf("mean = %v, want ~8", mean)
	}
	if math.Abs(std-1.5) > 0.05 {
		t.Errorf("std = %v, want ~1.5", std)
	}
}

func TestNormalZeroSigma(t *testing.T) {
	r := New(3)
	if got := r.Normal(4, 0); got != 4 {
		t.Errorf("Normal(4, 0) = %v, want 4", got)
	}
}

func TestChooseInRange(t *testing.T) {
	r := New(9)
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		k := r.Choose(4)
		if k < 0 || k >= 4 {
			t.Fatalf("Choose(4) = %d out of range", k)
		}
		seen[k] = true
	}
	if len(seen) != 4 {
		t.Errorf("Choose(4) hit %d distinct values, want 4", len(seen))
	}
}

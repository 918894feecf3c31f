package genome

import (
	"math"
	"math/rand"
	"testing"
)

// ---------- Construction ----------

func TestNewRandom_GenesInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	g := NewRandom(rng)
	for i := Trait(0); i < TraitCount; i++ {
		v := g.Trait(i)
		if v < 0 || v > 1 {
			t.Errorf("trait %d = %f, want [0,1]", i, v)
		}
	}
}

func TestSet_Clamps(t *testing.T) {
	g := New()
	g.Set(ForageRate, 1.7)
	if g.Trait(ForageRate) != 1 {
		t.Errorf("expected clamp to 1, got %f", g.Trait(ForageRate))
	}
	g.Set(ForageRate, -0.3)
	if g.Trait(ForageRate) != 0 {
		t.Errorf("expected clamp to 0, got %f", g.Trait(ForageRate))
	}
}

func TestClone_Independent(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	g := NewRandom(rng)
	c := g.Clone()
	c.Set(Fertility, 0.123)
	if g.Trait(Fertility) == 0.123 && c.Trait(Fertility) == g.Trait(Fertility) {
		t.Error("clone shares gene storage with original")
	}
}

// ---------- Similarity ----------

func TestSimilarity_Identity(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	g := NewRandom(rng)
	if s := Similarity(g, g); math.Abs(s-1) > 1e-9 {
		t.Errorf("self similarity = %f, want 1", s)
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 20; i++ {
		a := NewRandom(rng)
		b := NewRandom(rng)
		if ab, ba := Similarity(a, b), Similarity(b, a); ab != ba {
			t.Fatalf("similarity not symmetric: %f vs %f", ab, ba)
		}
	}
}

func TestSimilarity_Range(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 50; i++ {
		a := NewRandom(rng)
		b := NewRandom(rng)
		s := Similarity(a, b)
		if s < 0 || s > 1 {
			t.Fatalf("similarity = %f, want [0,1]", s)
		}
	}
}

func TestSimilarity_OppositeExtremes(t *testing.T) {
	a := New()
	b := New()
	for i := Trait(0); i < TraitCount; i++ {
		a.Set(i, 0)
		b.Set(i, 1)
	}
	if s := Similarity(a, b); math.Abs(s) > 1e-9 {
		t.Errorf("opposite genomes similarity = %f, want 0", s)
	}
}

// ---------- Crossover ----------

func TestCrossover_Deterministic(t *testing.T) {
	src := rand.New(rand.NewSource(6))
	a := NewRandom(src)
	b := NewRandom(src)

	c1 := Crossover(a, b, rand.New(rand.NewSource(99)))
	c2 := Crossover(a, b, rand.New(rand.NewSource(99)))
	for i := Trait(0); i < TraitCount; i++ {
		if c1.Trait(i) != c2.Trait(i) {
			t.Fatalf("trait %d differs between identically seeded crossovers", i)
		}
	}
}

func TestCrossover_GenesInRange(t *testing.T) {
	src := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		a := NewRandom(src)
		b := NewRandom(src)
		c := Crossover(a, b, src)
		for i := Trait(0); i < TraitCount; i++ {
			v := c.Trait(i)
			if v < 0 || v > 1 {
				t.Fatalf("child trait %d = %f, want [0,1]", i, v)
			}
		}
	}
}

func TestCrossover_ZeroMutationInheritsParentGenes(t *testing.T) {
	a := New()
	b := New()
	for i := Trait(0); i < TraitCount; i++ {
		a.Set(i, 0.2)
		b.Set(i, 0.8)
	}
	a.Set(MutationRate, 0)
	b.Set(MutationRate, 0)

	c := Crossover(a, b, rand.New(rand.NewSource(8)))
	for i := Trait(0); i < TraitCount; i++ {
		if i == MutationRate {
			continue
		}
		v := c.Trait(i)
		if v != 0.2 && v != 0.8 {
			t.Fatalf("trait %d = %f, expected a parent gene with mutation disabled", i, v)
		}
	}
}

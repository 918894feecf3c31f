package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_EmbeddedDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	if cfg.Grid.Rows < 1 || cfg.Grid.Cols < 1 {
		t.Error("defaults have no grid dimensions")
	}
	if cfg.Grid.MaxTileEnergy <= 0 {
		t.Error("defaults have no tile energy cap")
	}
	if cfg.Density.Radius < 1 {
		t.Error("defaults have no density radius")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "grid:\n  rows: 12\n  cols: 34\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading override: %v", err)
	}
	if cfg.Grid.Rows != 12 || cfg.Grid.Cols != 34 {
		t.Errorf("grid = %dx%d, want 12x34", cfg.Grid.Rows, cfg.Grid.Cols)
	}
	// Untouched sections keep their defaults.
	if cfg.Grid.MaxTileEnergy <= 0 {
		t.Error("override wiped the defaulted energy cap")
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"zero tile cap", "grid:\n  max_tile_energy: 0\n"},
		{"negative tile cap", "grid:\n  max_tile_energy: -5\n"},
		{"zero rows", "grid:\n  rows: 0\n"},
		{"zero radius", "density:\n  radius: 0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}

func TestComputeDerived_MinPopulation(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Grid.Rows = 100
	cfg.Grid.Cols = 100
	cfg.Population.MinPopDensity = 0.01
	cfg.Population.MinPopFloor = 4
	cfg.computeDerived()

	if cfg.Derived.TileCount != 10000 {
		t.Errorf("tile count = %d, want 10000", cfg.Derived.TileCount)
	}
	if cfg.Derived.MinPopulation != 100 {
		t.Errorf("min population = %d, want 100", cfg.Derived.MinPopulation)
	}

	// Tiny grids fall back to the absolute floor.
	cfg.Grid.Rows = 5
	cfg.Grid.Cols = 5
	cfg.computeDerived()
	if cfg.Derived.MinPopulation != 4 {
		t.Errorf("min population = %d, want floor of 4", cfg.Derived.MinPopulation)
	}
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Grid.Rows = 17

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("writing: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("reloading: %v", err)
	}
	if back.Grid.Rows != 17 {
		t.Errorf("rows = %d after round trip, want 17", back.Grid.Rows)
	}
}

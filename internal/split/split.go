// Package split builds and validates tile split files: the train/val/test
// partition of imagery tiles that the training script consumes.
package split

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Split file errors.
var (
	ErrNoTiles       = errors.New("no tiles to split")
	ErrDuplicateTile = errors.New("duplicate tile ID")
	ErrOverlap       = errors.New("tile assigned to more than one subset")
	ErrEmptyTrain    = errors.New("train subset must not be empty")
	ErrInvalidRatios = errors.New("split ratios must be non-negative with a positive train share")
)

// Split is the on-disk tile split file, YAML-encoded.
type Split struct {
	Train []string `yaml:"train"`
	Val   []string `yaml:"val"`
	Test  []string `yaml:"test"`
}

// Ratios controls how tiles are allocated by Make. Values are relative
// weights; they do not need to sum to one.
type Ratios struct {
	Train float64
	Val   float64
	Test  float64
}

// DefaultRatios is the conventional 70/15/15 split.
var DefaultRatios = Ratios{Train: 0.7, Val: 0.15, Test: 0.15}

// Validate checks that the ratios describe a usable split.
func (r Ratios) Validate() error {
	if r.Train <= 0 || r.Val < 0 || r.Test < 0 {
		return ErrInvalidRatios
	}
	return nil
}

// Make partitions tiles into train/val/test subsets. The allocation is
// deterministic for a given seed: tiles are sorted, shuffled with the
// seeded source, and assigned by largest-remainder rounding so the
// subsets always partition the input exactly.
func Make(tiles []string, r Ratios, seed int64) (Split, error) {
	if err := r.Validate(); err != nil {
		return Split{}, err
	}
	if len(tiles) == 0 {
		return Split{}, ErrNoTiles
	}

	seen := make(map[string]bool, len(tiles))
	for _, tile := range tiles {
		if seen[tile] {
			return Split{}, fmt.Errorf("%w: %s", ErrDuplicateTile, tile)
		}
		seen[tile] = true
	}

	shuffled := make([]string, len(tiles))
	copy(shuffled, tiles)
	sort.Strings(shuffled)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	counts := allocate(len(shuffled), []float64{r.Train, r.Val, r.Test})

	s := Split{
		Train: shuffled[:counts[0]],
		Val:   shuffled[counts[0] : counts[0]+counts[1]],
		Test:  shuffled[counts[0]+counts[1]:],
	}
	if len(s.Train) == 0 {
		return Split{}, ErrEmptyTrain
	}
	return s, nil
}

// allocate distributes n items across weights using largest-remainder
// rounding. Ties go to the earlier subset, so train wins over val.
func allocate(n int, weights []float64) []int {
	var sum float64
	for _, w := range weights {
		sum += w
	}

	counts := make([]int, len(weights))
	fracs := make([]float64, len(weights))
	assigned := 0
	for i, w := range weights {
		exact := float64(n) * w / sum
		counts[i] = int(math.Floor(exact))
		fracs[i] = exact - float64(counts[i])
		assigned += counts[i]
	}

	for assigned < n {
		best := 0
		for i := 1; i < len(fracs); i++ {
			if fracs[i] > fracs[best] {
				best = i
			}
		}
		counts[best]++
		fracs[best] = -1
		assigned++
	}
	return counts
}

// Validate checks that the split is internally consistent: no duplicate
// tiles, no tile in more than one subset, and a non-empty train set.
func (s Split) Validate() error {
	if len(s.Train) == 0 {
		return ErrEmptyTrain
	}
	seen := make(map[string]string)
	for _, subset := range []struct {
		name  string
		tiles []string
	}{
		{"train", s.Train},
		{"val", s.Val},
		{"test", s.Test},
	} {
		for _, tile := range subset.tiles {
			if prev, ok := seen[tile]; ok {
				if prev == subset.name {
					return fmt.Errorf("%w: %s in %s", ErrDuplicateTile, tile, subset.name)
				}
				return fmt.Errorf("%w: %s in %s and %s", ErrOverlap, tile, prev, subset.name)
			}
			seen[tile] = subset.name
		}
	}
	return nil
}

// Total returns the number of tiles across all subsets.
func (s Split) Total() int {
	return len(s.Train) + len(s.Val) + len(s.Test)
}

// Stats describes a split for reporting.
type Stats struct {
	Train, Val, Test, Total int
	TrainFrac               float64
	ValFrac                 float64
	TestFrac                float64
}

// Stats computes subset sizes and fractions.
func (s Split) Stats() Stats {
	st := Stats{
		Train: len(s.Train),
		Val:   len(s.Val),
		Test:  len(s.Test),
		Total: s.Total(),
	}
	if st.Total > 0 {
		st.TrainFrac = float64(st.Train) / float64(st.Total)
		st.ValFrac = float64(st.Val) / float64(st.Total)
		st.TestFrac = float64(st.Test) / float64(st.Total)
	}
	return st
}

// Load reads a YAML split file.
func Load(path string) (Split, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Split{}, err
	}
	var s Split
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Split{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return s, nil
}

// Save writes the split as YAML.
func Save(path string, s Split) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

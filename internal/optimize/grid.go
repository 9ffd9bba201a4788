// Package optimize sweeps strategy parameters over a grid, running each
// combination on its own engine against one shared dataset.
package optimize

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Grid errors
var (
	ErrInvalidRange = errors.New("invalid parameter range")
	ErrEmptyGrid    = errors.New("parameter grid is empty")
)

// Grid holds candidate values per parameter name.
type Grid struct {
	values map[string][]float64
}

// NewGrid creates an empty grid.
func NewGrid() *Grid {
	return &Grid{values: make(map[string][]float64)}
}

// AddRange adds start, start+step, ... up to and including end.
func (g *Grid) AddRange(name string, start, end, step float64) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidRange)
	case end < start:
		return fmt.Errorf("%w: %s end %g before start %g", ErrInvalidRange, name, end, start)
	case step <= 0 && end != start:
		return fmt.Errorf("%w: %s step must be positive", ErrInvalidRange, name)
	}
	if end == start {
		g.values[name] = []float64{start}
		return nil
	}

	n := int(math.Floor((end-start)/step+1e-9)) + 1
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = roundValue(start + float64(i)*step)
	}
	g.values[name] = vals
	return nil
}

// AddValues adds an explicit value list.
func (g *Grid) AddValues(name string, values ...float64) error {
	if name == "" || len(values) == 0 {
		return fmt.Errorf("%w: %q needs at least one value", ErrInvalidRange, name)
	}
	g.values[name] = append([]float64(nil), values...)
	return nil
}

// Names returns the parameter names in sorted order.
func (g *Grid) Names() []string {
	names := make([]string, 0, len(g.values))
	for name := range g.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Size returns the number of combinations.
func (g *Grid) Size() int {
	if len(g.values) == 0 {
		return 0
	}
	n := 1
	for _, v := range g.values {
		n *= len(v)
	}
	return n
}

// Combinations returns the cartesian product in a stable order: the last
// name in sorted order varies fastest.
func (g *Grid) Combinations() []map[string]float64 {
	names := g.Names()
	if len(names) == 0 {
		return nil
	}

	out := make([]map[string]float64, 0, g.Size())
	idx := make([]int, len(names))
	for {
		combo := make(map[string]float64, len(names))
		for i, name := range names {
			combo[name] = g.values[name][idx[i]]
		}
		out = append(out, combo)

		i := len(names) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(g.values[names[i]]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return out
		}
	}
}

// FormatParams renders params as "k=v, k=v" in key order.
func FormatParams(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.FormatFloat(params[k], 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}

func roundValue(v float64) float64 {
	return math.Round(v*1e10) / 1e10
}

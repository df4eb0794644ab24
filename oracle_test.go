/*
Copyright © 2026 the Regrid authors.
This file is part of Regrid.

Regrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Regrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Regrid.  If not, see <http://www.gnu.org/licenses/>.*/

package regrid

import (
	"context"
	"errors"
	"math"
	"testing"
)

// grid4x4 is a uniform 4×4 grid spanning [0,4]×[0,4].
func grid4x4(t *testing.T) *Grid {
	t.Helper()
	g, err := NewRectilinear(edges(4, 4), edges(4, 4))
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// grid2x2 is a uniform 2×2 grid spanning [0,4]×[0,4], so each of its
// cells exactly covers four cells of grid4x4.
func grid2x2(t *testing.T) *Grid {
	t.Helper()
	g, err := NewRectilinear(edges(2, 4), edges(2, 4))
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestWeights_conservative(t *testing.T) {
	src, dst := grid4x4(t), grid2x2(t)
	var calc GeomCalculator
	m, err := calc.Weights(context.Background(), src, dst, Conservative)
	if err != nil {
		t.Fatal(err)
	}
	if m.NSrc != 16 || m.NTgt != 4 {
		t.Fatalf("matrix shape = (%d, %d), want (4, 16)", m.NTgt, m.NSrc)
	}
	if len(m.Entries) != 16 {
		t.Fatalf("got %d entries, want 16", len(m.Entries))
	}
	for _, e := range m.Entries {
		if math.Abs(e.W-0.25) > 1e-12 {
			t.Errorf("entry %+v: weight should be 0.25", e)
		}
	}
	for tgt, sum := range m.RowSums() {
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("target %d coverage = %g, want 1", tgt, sum)
		}
	}
	if err := m.Validate(); err != nil {
		t.Error(err)
	}
}

func TestWeights_conservativeMasked(t *testing.T) {
	src, dst := grid4x4(t), grid2x2(t)
	mask := make([]bool, src.Len())
	mask[0] = true
	src, err := src.WithMask(mask)
	if err != nil {
		t.Fatal(err)
	}
	var calc GeomCalculator
	m, err := calc.Weights(context.Background(), src, dst, Conservative)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Entries) != 15 {
		t.Fatalf("got %d entries, want 15", len(m.Entries))
	}
	if sum := m.RowSums()[0]; math.Abs(sum-0.75) > 1e-12 {
		t.Errorf("masked target coverage = %g, want 0.75", sum)
	}
}

func TestWeights_conservativePartialCoverage(t *testing.T) {
	src := grid4x4(t)
	// One target cell half inside and half outside the source
	// domain, plus one entirely outside.
	dst, err := NewRectilinear([]float64{2, 6, 10}, []float64{0, 4})
	if err != nil {
		t.Fatal(err)
	}
	var calc GeomCalculator
	m, err := calc.Weights(context.Background(), src, dst, Conservative)
	if err != nil {
		t.Fatal(err)
	}
	sums := m.RowSums()
	if math.Abs(sums[0]-0.5) > 1e-12 {
		t.Errorf("partially covered target coverage = %g, want 0.5", sums[0])
	}
	if sums[1] != 0 {
		t.Errorf("uncovered target coverage = %g, want 0", sums[1])
	}
}

func TestWeights_nearest(t *testing.T) {
	src, dst := grid4x4(t), grid2x2(t)
	var calc GeomCalculator
	m, err := calc.Weights(context.Background(), src, dst, Nearest)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(m.Entries))
	}
	for _, e := range m.Entries {
		if e.W != 1 {
			t.Errorf("entry %+v: weight should be 1", e)
		}
	}
}

func TestWeights_nearestAllMasked(t *testing.T) {
	src, dst := grid4x4(t), grid2x2(t)
	allMasked := make([]bool, src.Len())
	for i := range allMasked {
		allMasked[i] = true
	}
	src, err := src.WithMask(allMasked)
	if err != nil {
		t.Fatal(err)
	}
	var calc GeomCalculator
	if _, err := calc.Weights(context.Background(), src, dst, Nearest); err == nil {
		t.Error("all-masked source should fail")
	}
}

func TestWeights_bilinear(t *testing.T) {
	src, dst := grid4x4(t), grid2x2(t)
	var calc GeomCalculator
	m, err := calc.Weights(context.Background(), src, dst, Bilinear)
	if err != nil {
		t.Fatal(err)
	}
	// Every target center sits centered among 4 source centers.
	if len(m.Entries) != 16 {
		t.Fatalf("got %d entries, want 16", len(m.Entries))
	}
	for _, e := range m.Entries {
		if math.Abs(e.W-0.25) > 1e-12 {
			t.Errorf("entry %+v: weight should be 0.25", e)
		}
	}
}

func TestWeights_unsupported(t *testing.T) {
	grid := grid4x4(t)
	points, err := NewPointCloud([]float64{1, 3}, []float64{1, 3})
	if err != nil {
		t.Fatal(err)
	}
	mesh, err := NewMesh([]float64{0, 4, 4, 0}, []float64{0, 0, 4, 4}, [][]int{{0, 1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}

	var calc GeomCalculator
	tests := []struct {
		name     string
		src, dst *Grid
		method   Method
	}{
		{"conservative from point cloud", points, grid, Conservative},
		{"conservative to point cloud", grid, points, Conservative},
		{"bilinear from mesh", mesh, grid, Bilinear},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := calc.Weights(context.Background(), test.src, test.dst, test.method)
			var werr *WeightError
			if !errors.As(err, &werr) {
				t.Errorf("error = %v, want WeightError", err)
			}
		})
	}

	// Nearest works for all grid classes, including point clouds.
	if _, err := calc.Weights(context.Background(), grid, points, Nearest); err != nil {
		t.Errorf("nearest to point cloud: %v", err)
	}
}

func TestWeights_conservativeMesh(t *testing.T) {
	// Two triangles tiling the unit square.
	src, err := NewMesh([]float64{0, 1, 1, 0}, []float64{0, 0, 1, 1}, [][]int{{0, 1, 2}, {0, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	dst, err := NewRectilinear([]float64{0, 1}, []float64{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	var calc GeomCalculator
	m, err := calc.Weights(context.Background(), src, dst, Conservative)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(m.Entries))
	}
	for _, e := range m.Entries {
		if math.Abs(e.W-0.5) > 1e-12 {
			t.Errorf("entry %+v: weight should be 0.5", e)
		}
	}

	out, err := Regrid(src, dst, Conservative, []float64{2, 4})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(out[0]-3) > 1e-12 {
		t.Errorf("out = %v, want [3]", out)
	}
}

func TestWeights_circularConservative(t *testing.T) {
	// A global-longitude source and a target cell straddling the
	// seam.
	dst, err := NewRectilinear([]float64{-45, 45}, []float64{0, 45})
	if err != nil {
		t.Fatal(err)
	}
	var calc GeomCalculator

	src, err := NewRectilinearCircular(edges(8, 360), []float64{0, 45})
	if err != nil {
		t.Fatal(err)
	}
	m, err := calc.Weights(context.Background(), src, dst, Conservative)
	if err != nil {
		t.Fatal(err)
	}
	if sum := m.RowSums()[0]; math.Abs(sum-1) > 1e-12 {
		t.Errorf("seam target coverage = %g, want 1", sum)
	}
	if err := m.Validate(); err != nil {
		t.Error(err)
	}

	// Without the periodic axis, the half of the target west of the
	// seam has no coverage.
	flat, err := NewRectilinear(edges(8, 360), []float64{0, 45})
	if err != nil {
		t.Fatal(err)
	}
	m, err = calc.Weights(context.Background(), flat, dst, Conservative)
	if err != nil {
		t.Fatal(err)
	}
	if sum := m.RowSums()[0]; math.Abs(sum-0.5) > 1e-12 {
		t.Errorf("seam target coverage without wrap = %g, want 0.5", sum)
	}
}

func TestWeights_circularNearest(t *testing.T) {
	// Source centers at x = 45, 135, 225, 315. The target center at
	// x = -10 is nearer to the cell at 315 across the seam than to
	// the cell at 45.
	src, err := NewRectilinearCircular(edges(4, 360), []float64{0, 90})
	if err != nil {
		t.Fatal(err)
	}
	dst, err := NewRectilinear([]float64{-20, 0}, []float64{0, 90})
	if err != nil {
		t.Fatal(err)
	}
	var calc GeomCalculator
	m, err := calc.Weights(context.Background(), src, dst, Nearest)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Entries) != 1 || m.Entries[0].Src != 3 {
		t.Errorf("entries = %+v, want the cell across the seam (source 3)", m.Entries)
	}
}

func TestWeights_circularBilinear(t *testing.T) {
	// Source centers at x = 45, 135, 225, 315; the target center at
	// x = 0 sits halfway between the last and first centers across
	// the seam.
	src, err := NewRectilinearCircular(edges(4, 360), []float64{0, 90, 180})
	if err != nil {
		t.Fatal(err)
	}
	dst, err := NewRectilinear([]float64{-45, 45}, []float64{45, 135})
	if err != nil {
		t.Fatal(err)
	}
	var calc GeomCalculator
	m, err := calc.Weights(context.Background(), src, dst, Bilinear)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(m.Entries))
	}
	wantSrc := []int{0, 3, 4, 7}
	for i, e := range m.Entries {
		if e.Src != wantSrc[i] || math.Abs(e.W-0.25) > 1e-12 {
			t.Errorf("entry %d = %+v, want source %d with weight 0.25", i, e, wantSrc[i])
		}
	}
}

func TestWeights_degenerateSource(t *testing.T) {
	// A curvilinear source whose bottom row of cells collapses to
	// zero area.
	src, err := NewCurvilinear(
		[][]float64{{0, 2}, {0, 2}, {0, 2}},
		[][]float64{{0, 0}, {0, 0}, {2, 2}})
	if err != nil {
		t.Fatal(err)
	}
	var calc GeomCalculator
	_, err = calc.Weights(context.Background(), src, grid2x2(t), Conservative)
	var werr *WeightError
	if !errors.As(err, &werr) {
		t.Errorf("error = %v, want WeightError", err)
	}

	// Masking the degenerate cell makes the rest of the grid usable.
	masked, err := src.WithMask([]bool{true, false})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := calc.Weights(context.Background(), masked, grid2x2(t), Conservative); err != nil {
		t.Errorf("masked degenerate cell should not fail: %v", err)
	}
}

func TestWeights_degenerate(t *testing.T) {
	src := grid4x4(t)
	// A target cell collapsed to zero area.
	dst, err := NewCurvilinear(
		[][]float64{{0, 2}, {0, 2}},
		[][]float64{{1, 1}, {1, 1}})
	if err != nil {
		t.Fatal(err)
	}
	var calc GeomCalculator
	_, err = calc.Weights(context.Background(), src, dst, Conservative)
	var werr *WeightError
	if !errors.As(err, &werr) {
		t.Errorf("error = %v, want WeightError", err)
	}
}

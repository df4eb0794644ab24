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
	"encoding/gob"
	"fmt"
)

func init() {
	// Matrix instances pass through the requestcache disk layer.
	gob.Register(Matrix{})
}

// Entry is one sparse weight coefficient: the value of target cell
// Tgt receives weight W times the value of source cell Src.
type Entry struct {
	Src, Tgt int
	W        float64
}

// Matrix is a sparse regridding weight matrix with implicit shape
// (NTgt, NSrc). It is immutable once produced by a WeightCalculator.
//
// Weights are destination-area fractions: the total weight entering
// a target cell is the fraction of that cell covered by valid source
// cells, so rows need not sum to 1: a row sum below 1 signals partial
// coverage, and an absent row signals no coverage.
type Matrix struct {
	NSrc, NTgt int
	Entries    []Entry
}

// Validate checks that all entry indices are within the matrix
// bounds.
func (m *Matrix) Validate() error {
	if m.NSrc <= 0 || m.NTgt <= 0 {
		return fmt.Errorf("regrid: weight matrix has invalid shape (%d, %d)", m.NTgt, m.NSrc)
	}
	for _, e := range m.Entries {
		if e.Src < 0 || e.Src >= m.NSrc {
			return fmt.Errorf("regrid: weight matrix source index %d out of range [0,%d)", e.Src, m.NSrc)
		}
		if e.Tgt < 0 || e.Tgt >= m.NTgt {
			return fmt.Errorf("regrid: weight matrix target index %d out of range [0,%d)", e.Tgt, m.NTgt)
		}
	}
	return nil
}

// RowSums returns the total incoming weight for each target cell:
// under destination-area normalization, the fraction of each target
// cell covered by valid source cells.
func (m *Matrix) RowSums() []float64 {
	sums := make([]float64, m.NTgt)
	for _, e := range m.Entries {
		sums[e.Tgt] += e.W
	}
	return sums
}

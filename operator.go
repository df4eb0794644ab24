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
	"math"
	"sync"

	"github.com/ctessum/sparse"
)

func init() {
	// Regridder instances pass through the requestcache disk layer.
	gob.Register(&Regridder{})
}

// DefaultCoverageTol is the default negligible-weight threshold: a
// target cell whose total contributing weight is at or below this
// value is considered uncovered and marked invalid.
const DefaultCoverageTol = 1e-8

// Regridder applies a regridding weight matrix to data arrays. The
// weight matrix and derived state never change after construction;
// the exported settings fields may be adjusted before the operator is
// shared between goroutines. A Regridder is safe for concurrent use
// and can be reused across any number of arrays sharing the same
// source and target grids.
type Regridder struct {
	// SrcKey and DstKey are the identity hashes of the grids the
	// weights were computed for.
	SrcKey, DstKey string

	Method Method
	Norm   Normalization

	// SrcShape and DstShape are the spatial dimension lengths that
	// applied arrays must carry as their trailing axes.
	SrcShape, DstShape []int

	Weights *Matrix

	// CoverageTol is the negligible-weight threshold. Values at or
	// below zero select DefaultCoverageTol.
	CoverageTol float64

	// MDTol is the missing-data tolerance, between 0 and 1. A
	// target cell becomes invalid when the fraction of its covered
	// area contributed by missing source cells exceeds MDTol: 0
	// tolerates no missing data, 1 (the default) only invalidates
	// cells with no valid contributors at all.
	MDTol float64

	// Derived state, rebuilt after gob decoding.
	initOnce sync.Once
	rowptr   []int // CSR offsets by target cell, length nTgt+1
	srcInd   []int
	w        []float64
	cover    []float64 // total geometric weight per target cell
}

// NewRegridder creates a regridding operator for the given grids and
// weight matrix. The matrix shape must match the grid cell counts.
func NewRegridder(src, dst *Grid, method Method, m *Matrix) (*Regridder, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.NSrc != src.Len() || m.NTgt != dst.Len() {
		return nil, fmt.Errorf("regrid: weight matrix shape (%d, %d) does not match grids (%d, %d)",
			m.NTgt, m.NSrc, dst.Len(), src.Len())
	}
	return &Regridder{
		SrcKey:      src.Key(),
		DstKey:      dst.Key(),
		Method:      method,
		Norm:        NormFracArea,
		SrcShape:    src.Shape(),
		DstShape:    dst.Shape(),
		Weights:     m,
		CoverageTol: DefaultCoverageTol,
		MDTol:       1,
	}, nil
}

// fix builds the per-target adjacency and coverage totals. It runs
// once, lazily, so operators restored from serialized form work
// without re-registration.
func (r *Regridder) fix() {
	r.initOnce.Do(func() {
		nTgt := prod(r.DstShape)
		counts := make([]int, nTgt+1)
		for _, e := range r.Weights.Entries {
			counts[e.Tgt+1]++
		}
		r.rowptr = counts
		for t := 0; t < nTgt; t++ {
			r.rowptr[t+1] += r.rowptr[t]
		}
		n := len(r.Weights.Entries)
		r.srcInd = make([]int, n)
		r.w = make([]float64, n)
		next := make([]int, nTgt)
		r.cover = make([]float64, nTgt)
		for _, e := range r.Weights.Entries {
			j := r.rowptr[e.Tgt] + next[e.Tgt]
			next[e.Tgt]++
			r.srcInd[j] = e.Src
			r.w[j] = e.W
			r.cover[e.Tgt] += e.W
		}
	})
}

// clone returns a copy sharing the weight matrix and derived state,
// so the copy's apply-time settings (Norm, CoverageTol, MDTol) can be
// changed without affecting other holders of the original.
func (r *Regridder) clone() *Regridder {
	r.fix()
	c := &Regridder{
		SrcKey:      r.SrcKey,
		DstKey:      r.DstKey,
		Method:      r.Method,
		Norm:        r.Norm,
		SrcShape:    r.SrcShape,
		DstShape:    r.DstShape,
		Weights:     r.Weights,
		CoverageTol: r.CoverageTol,
		MDTol:       r.MDTol,
	}
	c.rowptr, c.srcInd, c.w, c.cover = r.rowptr, r.srcInd, r.w, r.cover
	c.initOnce.Do(func() {})
	return c
}

func (r *Regridder) coverageTol() float64 {
	if r.CoverageTol > 0 {
		return r.CoverageTol
	}
	return DefaultCoverageTol
}

// Coverage returns the fraction of each target cell covered by the
// source grid, ignoring masks and missing data.
func (r *Regridder) Coverage() []float64 {
	r.fix()
	return append([]float64(nil), r.cover...)
}

// Apply regrids data, which must have the source grid's spatial
// shape as its trailing axes; any leading axes (time, level,
// ensemble members) are broadcast unchanged. NaN elements are
// treated as missing data and excluded from the interpolation and
// from the normalization denominator.
//
// The returned value array has the leading axes of data followed by
// the target grid's spatial shape. The returned validity array has
// the same shape, holding 1 where the output is valid and 0 where it
// is not; invalid elements of the value array are set to fill.
// A target cell is invalid when the source grid does not cover it,
// when all of its contributing source cells are missing, or when the
// missing fraction exceeds MDTol.
func (r *Regridder) Apply(data *sparse.DenseArray, fill float64) (*sparse.DenseArray, *sparse.DenseArrayInt, error) {
	r.fix()
	extra, err := r.checkShape(data.Shape)
	if err != nil {
		return nil, nil, err
	}
	nSrc := prod(r.SrcShape)
	nTgt := prod(r.DstShape)
	nExtra := prod(extra)

	out := sparse.ZerosDense(append(append([]int{}, extra...), r.DstShape...)...)
	valid := sparse.ZerosDenseInt(append(append([]int{}, extra...), r.DstShape...)...)

	tol := r.coverageTol()
	// Clamp as the coverage fraction is subject to round-off.
	mdtol := math.Min(math.Max(r.MDTol, tol), 1-tol)

	for k := 0; k < nExtra; k++ {
		slab := data.Elements[k*nSrc : (k+1)*nSrc]
		oSlab := out.Elements[k*nTgt : (k+1)*nTgt]
		vSlab := valid.Elements[k*nTgt : (k+1)*nTgt]
		for t := 0; t < nTgt; t++ {
			var sum, wsum float64
			for j := r.rowptr[t]; j < r.rowptr[t+1]; j++ {
				v := slab[r.srcInd[j]]
				if math.IsNaN(v) {
					continue
				}
				sum += r.w[j] * v
				wsum += r.w[j]
			}
			if wsum <= tol || wsum < r.cover[t]*(1-mdtol) {
				oSlab[t] = fill
				continue
			}
			vSlab[t] = 1
			switch r.Norm {
			case NormDstArea:
				oSlab[t] = sum
			default: // NormFracArea
				oSlab[t] = sum / wsum
			}
		}
	}
	return out, valid, nil
}

// checkShape verifies that the trailing axes of shape match the
// source grid exactly and returns the leading (broadcast) axes.
func (r *Regridder) checkShape(shape []int) ([]int, error) {
	n := len(shape) - len(r.SrcShape)
	if n < 0 {
		return nil, &ShapeError{Want: r.SrcShape, Got: shape}
	}
	for i, d := range r.SrcShape {
		if shape[n+i] != d {
			return nil, &ShapeError{Want: r.SrcShape, Got: shape}
		}
	}
	return shape[:n], nil
}

func prod(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

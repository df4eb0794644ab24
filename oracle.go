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
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// WeightCalculator computes a sparse weight matrix mapping values on
// a source grid to values on a target grid. Implementations must
// either return a complete, valid matrix or an error, never both.
type WeightCalculator interface {
	Weights(ctx context.Context, src, dst *Grid, method Method) (*Matrix, error)
}

// GeomCalculator is the default WeightCalculator, computing weights
// from planar cell geometry. The zero value is ready to use.
//
// Weight computation holds per-call scratch state (spatial indexes
// and partial rows) that is discarded before returning, so
// GeomCalculator serializes concurrent calls; the returned matrices
// are independent of it.
type GeomCalculator struct {
	mu sync.Mutex
}

// Weights implements WeightCalculator. A weight computation is not
// interrupted once started; ctx is only consulted before work
// begins.
func (c *GeomCalculator) Weights(ctx context.Context, src, dst *Grid, method Method) (*Matrix, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows [][]Entry
	var err error
	switch method {
	case Conservative:
		rows, err = conservativeRows(src, dst)
	case Bilinear:
		rows, err = bilinearRows(src, dst)
	case Nearest:
		rows, err = nearestRows(src, dst)
	default:
		return nil, &WeightError{Method: method, Reason: "unknown method"}
	}
	if err != nil {
		return nil, err
	}

	m := &Matrix{NSrc: src.Len(), NTgt: dst.Len()}
	for _, row := range rows {
		m.Entries = append(m.Entries, row...)
	}
	return m, nil
}

// conservativeRows computes first-order area-weighted overlap
// weights, normalized by target cell area.
func conservativeRows(src, dst *Grid) ([][]Entry, error) {
	if src.cells == nil {
		return nil, &WeightError{Method: Conservative, Reason: fmt.Sprintf("%s source grid has no cell bounds", src.class)}
	}
	if dst.cells == nil {
		return nil, &WeightError{Method: Conservative, Reason: fmt.Sprintf("%s target grid has no cell bounds", dst.class)}
	}

	// Overlap fractions are undefined for zero-area cells.
	srcArea := make([]float64, src.Len())
	for i, c := range src.cells {
		if src.Masked(i) {
			continue
		}
		a := c.Area()
		if a <= 0 {
			return nil, &WeightError{Method: Conservative, Reason: fmt.Sprintf("source cell %d is degenerate (area %g)", i, a)}
		}
		srcArea[i] = a
	}

	rows := make([][]Entry, dst.Len())
	nprocs := runtime.GOMAXPROCS(0)
	errChan := make(chan error)
	for procnum := 0; procnum < nprocs; procnum++ {
		go func(procnum int) {
			for t := procnum; t < dst.Len(); t += nprocs {
				if dst.Masked(t) {
					continue
				}
				cell := dst.cells[t]
				if a := cell.Area(); a <= 0 {
					errChan <- &WeightError{Method: Conservative, Reason: fmt.Sprintf("target cell %d is degenerate (area %g)", t, a)}
					return
				}
				tgtArea := dst.Area(t)
				var row []Entry
				for _, sI := range src.index.SearchIntersect(cell.Bounds()) {
					s := sI.(*gridCell)
					if src.Masked(s.i) {
						continue
					}
					a := s.Polygonal.Intersection(cell).Area()
					if a <= 0 {
						continue
					}
					// The overlap fraction of the source cell,
					// scaled by the source-to-target area ratio;
					// without area overrides this is the overlap
					// area over the target area.
					row = append(row, Entry{Src: s.i, Tgt: t, W: a / srcArea[s.i] * src.Area(s.i) / tgtArea})
				}
				// rtree search order is insertion-dependent; sort for
				// a deterministic matrix.
				sort.Slice(row, func(i, j int) bool { return row[i].Src < row[j].Src })
				// A periodic copy of a source cell can overlap the
				// same target; merge per source cell.
				merged := row[:0]
				for _, e := range row {
					if n := len(merged); n > 0 && merged[n-1].Src == e.Src {
						merged[n-1].W += e.W
					} else {
						merged = append(merged, e)
					}
				}
				rows[t] = merged
			}
			errChan <- nil
		}(procnum)
	}
	var err error
	for procnum := 0; procnum < nprocs; procnum++ {
		if e := <-errChan; e != nil && err == nil {
			err = e
		}
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// bilinearRows interpolates each target cell center between the four
// surrounding source cell centers.
func bilinearRows(src, dst *Grid) ([][]Entry, error) {
	if src.class != Rectilinear {
		return nil, &WeightError{Method: Bilinear, Reason: fmt.Sprintf("%s source grid is not supported; a rectilinear source is needed", src.class)}
	}
	nx, ny := len(src.xc), len(src.yc)
	if nx < 2 || ny < 2 {
		return nil, &WeightError{Method: Bilinear, Reason: fmt.Sprintf("source grid is %d×%d; at least 2×2 cells are needed", ny, nx)}
	}

	rows := make([][]Entry, dst.Len())
	for t := 0; t < dst.Len(); t++ {
		if dst.Masked(t) {
			continue
		}
		p := dst.centers[t]
		x := p.X
		if src.circular {
			// Bring the point into one period of the axis.
			x = src.xc[0] + math.Mod(x-src.xc[0], src.period)
			if x < src.xc[0] {
				x += src.period
			}
		}
		ix, tx, ok := locate(src.xc, x)
		ix1 := ix + 1
		if !ok && src.circular && x > src.xc[nx-1] {
			// Between the last and first centers, across the seam.
			ix, ix1 = nx-1, 0
			tx = (x - src.xc[nx-1]) / (src.xc[0] + src.period - src.xc[nx-1])
			ok = true
		}
		if !ok {
			continue // outside the source center hull; no coverage
		}
		iy, ty, ok := locate(src.yc, p.Y)
		if !ok {
			continue
		}
		corners := [4]struct {
			iy, ix int
			w      float64
		}{
			{iy, ix, (1 - tx) * (1 - ty)},
			{iy, ix1, tx * (1 - ty)},
			{iy + 1, ix, (1 - tx) * ty},
			{iy + 1, ix1, tx * ty},
		}
		var row []Entry
		for _, c := range corners {
			s := c.iy*nx + c.ix
			if src.Masked(s) || c.w == 0 {
				continue
			}
			row = append(row, Entry{Src: s, Tgt: t, W: c.w})
		}
		sort.Slice(row, func(i, j int) bool { return row[i].Src < row[j].Src })
		rows[t] = row
	}
	return rows, nil
}

// locate finds i such that c[i] <= v <= c[i+1] and returns the
// fractional position of v within that interval. ok is false when v
// is outside the range of c.
func locate(c []float64, v float64) (i int, frac float64, ok bool) {
	if v < c[0] || v > c[len(c)-1] {
		return 0, 0, false
	}
	i = sort.SearchFloat64s(c, v)
	if i > 0 {
		i--
	}
	if i > len(c)-2 {
		i = len(c) - 2
	}
	return i, (v - c[i]) / (c[i+1] - c[i]), true
}

// centerItem is a spatial-index entry for a cell center.
type centerItem struct {
	geom.Point
	i int
}

// nearestRows assigns each target cell the nearest unmasked source
// cell center with weight 1.
func nearestRows(src, dst *Grid) ([][]Entry, error) {
	centers := rtree.NewTree(25, 50)
	n := 0
	for i, p := range src.centers {
		if src.Masked(i) {
			continue
		}
		centers.Insert(&centerItem{Point: p, i: i})
		if src.circular {
			centers.Insert(&centerItem{Point: geom.Point{X: p.X - src.period, Y: p.Y}, i: i})
			centers.Insert(&centerItem{Point: geom.Point{X: p.X + src.period, Y: p.Y}, i: i})
		}
		n++
	}
	if n == 0 {
		return nil, &WeightError{Method: Nearest, Reason: "all source cells are masked"}
	}

	rows := make([][]Entry, dst.Len())
	nprocs := runtime.GOMAXPROCS(0)
	errChan := make(chan error)
	for procnum := 0; procnum < nprocs; procnum++ {
		go func(procnum int) {
			for t := procnum; t < dst.Len(); t += nprocs {
				if dst.Masked(t) {
					continue
				}
				s := centers.NearestNeighbor(dst.centers[t]).(*centerItem)
				rows[t] = []Entry{{Src: s.i, Tgt: t, W: 1}}
			}
			errChan <- nil
		}(procnum)
	}
	for procnum := 0; procnum < nprocs; procnum++ {
		<-errChan
	}
	return rows, nil
}

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
	"fmt"
	"math"

	"github.com/ctessum/cdf"
)

// WriteWeights persists a regridding operator's weight matrix to w
// as a NetCDF file, keyed by the grid identities and method so a
// later ReadWeights can refuse to load it against different grids.
// Coefficients are stored as unscaled float64, so the round trip is
// bit-identical.
func WriteWeights(w cdf.ReaderWriterAt, r *Regridder) error {
	n := len(r.Weights.Entries)
	if n == 0 {
		return fmt.Errorf("regrid: writing weights: weight matrix is empty")
	}
	if n > math.MaxInt32 || r.Weights.NSrc > math.MaxInt32 || r.Weights.NTgt > math.MaxInt32 {
		return fmt.Errorf("regrid: writing weights: matrix too large for NetCDF encoding")
	}

	h := cdf.NewHeader([]string{"n_entries"}, []int{n})
	h.AddVariable("col", []string{"n_entries"}, []int32{0})
	h.AddVariable("row", []string{"n_entries"}, []int32{0})
	h.AddVariable("S", []string{"n_entries"}, []float64{0})
	h.AddAttribute("", "src_key", r.SrcKey)
	h.AddAttribute("", "dst_key", r.DstKey)
	h.AddAttribute("", "method", r.Method.String())
	h.AddAttribute("", "normalization", r.Norm.String())
	h.AddAttribute("", "src_shape", shapeToInt32(r.SrcShape))
	h.AddAttribute("", "dst_shape", shapeToInt32(r.DstShape))
	h.AddAttribute("", "n_src", []int32{int32(r.Weights.NSrc)})
	h.AddAttribute("", "n_tgt", []int32{int32(r.Weights.NTgt)})
	h.AddAttribute("", "coverage_tol", []float64{r.coverageTol()})
	h.AddAttribute("", "mdtol", []float64{r.MDTol})
	h.Define()
	for _, err := range h.Check() {
		return fmt.Errorf("regrid: writing weights: %v", err)
	}

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("regrid: writing weights: %v", err)
	}
	cols := make([]int32, n)
	rows := make([]int32, n)
	coeffs := make([]float64, n)
	for i, e := range r.Weights.Entries {
		cols[i] = int32(e.Src)
		rows[i] = int32(e.Tgt)
		coeffs[i] = e.W
	}
	for _, v := range []struct {
		name string
		data interface{}
	}{{"col", cols}, {"row", rows}, {"S", coeffs}} {
		if _, err := f.Writer(v.name, []int{0}, []int{n}).Write(v.data); err != nil {
			return fmt.Errorf("regrid: writing weights variable %s: %v", v.name, err)
		}
	}
	return nil
}

// ReadWeights restores a regridding operator from a NetCDF weight
// file previously written by WriteWeights. The stored grid
// identities must match src and dst; a mismatch means the file was
// computed for different geometry or masks and loading it would
// silently corrupt results, so it is refused with a WeightError.
func ReadWeights(rd cdf.ReaderWriterAt, src, dst *Grid) (*Regridder, error) {
	f, err := cdf.Open(rd)
	if err != nil {
		return nil, fmt.Errorf("regrid: reading weights: %v", err)
	}
	methodStr, err := stringAttr(f, "method")
	if err != nil {
		return nil, err
	}
	method, err := ParseMethod(methodStr)
	if err != nil {
		return nil, err
	}
	srcKey, err := stringAttr(f, "src_key")
	if err != nil {
		return nil, err
	}
	dstKey, err := stringAttr(f, "dst_key")
	if err != nil {
		return nil, err
	}
	if srcKey != src.Key() || dstKey != dst.Key() {
		return nil, &WeightError{Method: method, Reason: "weight file was computed for different grid geometry or masks"}
	}

	var cols, rows []int32
	var coeffs []float64
	for _, v := range []struct {
		name string
		data interface{}
	}{{"col", &cols}, {"row", &rows}, {"S", &coeffs}} {
		r := f.Reader(v.name, nil, nil)
		buf := r.Zero(-1)
		if _, err := r.Read(buf); err != nil {
			return nil, fmt.Errorf("regrid: reading weights variable %s: %v", v.name, err)
		}
		switch d := v.data.(type) {
		case *[]int32:
			*d = buf.([]int32)
		case *[]float64:
			*d = buf.([]float64)
		}
	}
	if len(cols) != len(rows) || len(cols) != len(coeffs) {
		return nil, fmt.Errorf("regrid: reading weights: variable lengths disagree (%d, %d, %d)", len(cols), len(rows), len(coeffs))
	}

	m := &Matrix{NSrc: src.Len(), NTgt: dst.Len(), Entries: make([]Entry, len(cols))}
	for i := range cols {
		m.Entries[i] = Entry{Src: int(cols[i]), Tgt: int(rows[i]), W: coeffs[i]}
	}
	r, err := NewRegridder(src, dst, method, m)
	if err != nil {
		return nil, err
	}
	if s, err := stringAttr(f, "normalization"); err == nil {
		if norm, err := ParseNormalization(s); err == nil {
			r.Norm = norm
		}
	}
	if v, ok := f.Header.GetAttribute("", "coverage_tol").([]float64); ok && len(v) == 1 {
		r.CoverageTol = v[0]
	}
	if v, ok := f.Header.GetAttribute("", "mdtol").([]float64); ok && len(v) == 1 {
		r.MDTol = v[0]
	}
	return r, nil
}

func stringAttr(f *cdf.File, name string) (string, error) {
	v, ok := f.Header.GetAttribute("", name).(string)
	if !ok {
		return "", fmt.Errorf("regrid: reading weights: missing %s attribute", name)
	}
	return v, nil
}

func shapeToInt32(shape []int) []int32 {
	o := make([]int32, len(shape))
	for i, d := range shape {
		o[i] = int32(d)
	}
	return o
}

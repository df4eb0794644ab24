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

// Package regrid computes and applies sparse regridding operators
// that transform gridded geophysical field data from one spatial
// discretization to another. It supports structured, curvilinear,
// and unstructured grids, conservative area-weighted, bilinear, and
// nearest-neighbor interpolation, mask-aware application to
// multi-dimensional data arrays, and caching and serialization of
// the computed weight matrices.
package regrid

import (
	"context"
	"math"

	"github.com/ctessum/sparse"
)

// Regrid interpolates the flat data array, with one value per source
// grid cell, onto the target grid in a single shot, without operator
// caching. Target cells not covered by valid source data are NaN in
// the output. For repeated regridding between the same grids, use a
// Factory and keep the returned Regridder instead.
func Regrid(src, dst *Grid, method Method, data []float64) ([]float64, error) {
	var calc GeomCalculator
	m, err := calc.Weights(context.Background(), src, dst, method)
	if err != nil {
		return nil, err
	}
	r, err := NewRegridder(src, dst, method, m)
	if err != nil {
		return nil, err
	}
	in := sparse.ZerosDense(src.Shape()...)
	if len(data) != len(in.Elements) {
		return nil, &ShapeError{Want: src.Shape(), Got: []int{len(data)}}
	}
	in.Elements = data
	out, _, err := r.Apply(in, math.NaN())
	if err != nil {
		return nil, err
	}
	return out.Elements, nil
}

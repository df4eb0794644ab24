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

import "fmt"

// GeometryError is returned when a grid description is malformed or
// inconsistent: missing bounds, non-monotonic coordinates, or
// mismatched ranks. It indicates a caller mistake and is never
// retried.
type GeometryError struct {
	Class  Class
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("regrid: invalid %s grid geometry: %s", e.Class, e.Reason)
}

// WeightError is returned when weight computation fails: degenerate
// geometry, a method that is unsupported for the grid class, or a
// weight file that does not match the grids it is being loaded
// against. No partial weight matrix accompanies a WeightError.
type WeightError struct {
	Method Method
	Reason string
}

func (e *WeightError) Error() string {
	return fmt.Sprintf("regrid: computing %s weights: %s", e.Method, e.Reason)
}

// ShapeError is returned when data passed to Regridder.Apply does not
// match the source grid's cell layout. The operator and any caches
// are unaffected.
type ShapeError struct {
	Want, Got []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("regrid: data spatial shape %v does not match source grid shape %v", e.Got, e.Want)
}

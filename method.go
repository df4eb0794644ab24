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

// Method is an interpolation method for deriving regridding weights.
type Method int

const (
	// Conservative computes first-order area-weighted weights from
	// cell overlap fractions. It requires cell bounds on both grids.
	Conservative Method = iota

	// Bilinear interpolates between the four source cell centers
	// surrounding each target cell center. It requires a structured
	// source grid.
	Bilinear

	// Nearest assigns each target cell the value of the nearest
	// valid source cell center.
	Nearest
)

func (m Method) String() string {
	switch m {
	case Conservative:
		return "conservative"
	case Bilinear:
		return "bilinear"
	case Nearest:
		return "nearest"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseMethod is the inverse of Method.String.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "conservative":
		return Conservative, nil
	case "bilinear":
		return Bilinear, nil
	case "nearest":
		return Nearest, nil
	default:
		return 0, fmt.Errorf("regrid: unknown interpolation method %q", s)
	}
}

// Normalization determines how weighted sums are normalized when
// applying an operator.
type Normalization int

const (
	// NormFracArea divides each target sum by the total weight of
	// its unmasked contributors, so partially covered or partially
	// masked target cells hold the mean over the covered fraction.
	NormFracArea Normalization = iota

	// NormDstArea leaves the raw weighted sum, in which weights are
	// fractions of the full target cell area.
	NormDstArea
)

func (n Normalization) String() string {
	switch n {
	case NormFracArea:
		return "fracarea"
	case NormDstArea:
		return "dstarea"
	default:
		return fmt.Sprintf("unknown(%d)", int(n))
	}
}

// ParseNormalization is the inverse of Normalization.String.
func ParseNormalization(s string) (Normalization, error) {
	switch s {
	case "fracarea":
		return NormFracArea, nil
	case "dstarea":
		return NormDstArea, nil
	default:
		return 0, fmt.Errorf("regrid: unknown normalization type %q", s)
	}
}

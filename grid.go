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

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"

	"github.com/spatialmodel/regrid/internal/hash"
)

func init() {
	gob.Register(geom.Polygon{})
	gob.Register(geom.Point{})
}

// Class is the dimensionality class of a grid.
type Class int

const (
	// Rectilinear is a structured 2-D grid defined by 1-D x and y
	// cell edge coordinates.
	Rectilinear Class = iota

	// Curvilinear is a structured 2-D grid defined by 2-D corner
	// coordinate arrays.
	Curvilinear

	// Mesh is an unstructured grid defined by node coordinates and
	// face-node connectivity.
	Mesh

	// PointCloud is a set of cell centers without cell bounds. It
	// only supports nearest-neighbor regridding.
	PointCloud
)

func (c Class) String() string {
	switch c {
	case Rectilinear:
		return "rectilinear"
	case Curvilinear:
		return "curvilinear"
	case Mesh:
		return "mesh"
	case PointCloud:
		return "pointcloud"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Grid is an immutable geometric description of a source or target
// grid: cell geometry, cell centers, and an optional per-cell
// validity mask. Grids are never modified after construction; any
// change in geometry or mask yields a new Grid with a new Key.
type Grid struct {
	class   Class
	shape   []int
	cells   []geom.Polygonal // nil for PointCloud
	centers []geom.Point
	mask    []bool    // nil means all cells are valid
	areas   []float64 // nil means planar polygon areas

	// Rectilinear cell center coordinates, kept for bilinear
	// weight computation.
	xc, yc []float64

	// Periodic x axis; period is the axis span when circular.
	circular bool
	period   float64

	index *rtree.Rtree
	key   string
}

// gridCell ties a cell polygon to its flattened index so it can be
// recovered from spatial index searches.
type gridCell struct {
	geom.Polygonal
	i int
}

// gridContent is the hashed representation of a grid. Two grids with
// equal content are interchangeable.
type gridContent struct {
	Class    Class
	Shape    []int
	Cells    []geom.Polygonal
	Centers  []geom.Point
	Mask     []bool
	Areas    []float64
	Circular bool
	Period   float64
}

func (g *Grid) finish() *Grid {
	g.key = hash.Key(gridContent{
		Class:    g.class,
		Shape:    g.shape,
		Cells:    g.cells,
		Centers:  g.centers,
		Mask:     g.mask,
		Areas:    g.areas,
		Circular: g.circular,
		Period:   g.period,
	})
	if g.cells != nil {
		g.index = rtree.NewTree(25, 50)
		for i, c := range g.cells {
			g.index.Insert(&gridCell{Polygonal: c, i: i})
			if g.circular {
				// Periodic copies so cells straddling the seam
				// can be found from either side.
				g.index.Insert(&gridCell{Polygonal: translateX(c, -g.period), i: i})
				g.index.Insert(&gridCell{Polygonal: translateX(c, g.period), i: i})
			}
		}
	}
	return g
}

// translateX shifts a polygon along the x axis.
func translateX(p geom.Polygonal, dx float64) geom.Polygon {
	var o geom.Polygon
	for _, poly := range p.Polygons() {
		for _, ring := range poly {
			r := make([]geom.Point, len(ring))
			for i, pt := range ring {
				r[i] = geom.Point{X: pt.X + dx, Y: pt.Y}
			}
			o = append(o, r)
		}
	}
	return o
}

// NewRectilinear creates a structured 2-D grid from strictly
// increasing cell edge coordinates x and y. The grid has
// (len(y)-1)×(len(x)-1) cells in row-major order with x varying
// fastest.
func NewRectilinear(x, y []float64) (*Grid, error) {
	for _, edges := range [2][]float64{x, y} {
		if len(edges) < 2 {
			return nil, &GeometryError{Class: Rectilinear, Reason: "at least 2 cell edge coordinates are needed in each dimension"}
		}
		if !increasing(edges) {
			return nil, &GeometryError{Class: Rectilinear, Reason: "cell edge coordinates must be strictly increasing"}
		}
	}
	nx, ny := len(x)-1, len(y)-1
	g := &Grid{
		class:   Rectilinear,
		shape:   []int{ny, nx},
		cells:   make([]geom.Polygonal, ny*nx),
		centers: make([]geom.Point, ny*nx),
		xc:      make([]float64, nx),
		yc:      make([]float64, ny),
	}
	for ix := 0; ix < nx; ix++ {
		g.xc[ix] = 0.5 * (x[ix] + x[ix+1])
	}
	for iy := 0; iy < ny; iy++ {
		g.yc[iy] = 0.5 * (y[iy] + y[iy+1])
	}
	i := 0
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			g.cells[i] = geom.Polygon{{
				{X: x[ix], Y: y[iy]}, {X: x[ix+1], Y: y[iy]},
				{X: x[ix+1], Y: y[iy+1]}, {X: x[ix], Y: y[iy+1]},
				{X: x[ix], Y: y[iy]}}}
			g.centers[i] = geom.Point{X: g.xc[ix], Y: g.yc[iy]}
			i++
		}
	}
	return g.finish(), nil
}

// NewRectilinearCircular creates a rectilinear grid whose x axis is
// periodic, as with global longitudes: the first and last x edges
// describe the same location one period apart, and cells at either
// end of the axis are neighbors across the seam for all regridding
// methods.
func NewRectilinearCircular(x, y []float64) (*Grid, error) {
	g, err := NewRectilinear(x, y)
	if err != nil {
		return nil, err
	}
	g.circular = true
	g.period = x[len(x)-1] - x[0]
	return g.finish(), nil
}

// NewCurvilinear creates a structured 2-D grid from corner coordinate
// arrays of shape (ny+1)×(nx+1), indexed [row][column].
func NewCurvilinear(xCorner, yCorner [][]float64) (*Grid, error) {
	if len(xCorner) != len(yCorner) {
		return nil, &GeometryError{Class: Curvilinear, Reason: "x and y corner arrays have mismatched ranks"}
	}
	if len(xCorner) < 2 || len(xCorner[0]) < 2 {
		return nil, &GeometryError{Class: Curvilinear, Reason: "at least 2×2 corner coordinates are needed"}
	}
	ncol := len(xCorner[0])
	for i := range xCorner {
		if len(xCorner[i]) != ncol || len(yCorner[i]) != ncol {
			return nil, &GeometryError{Class: Curvilinear, Reason: "corner array rows have unequal lengths"}
		}
	}
	nx, ny := ncol-1, len(xCorner)-1
	g := &Grid{
		class:   Curvilinear,
		shape:   []int{ny, nx},
		cells:   make([]geom.Polygonal, ny*nx),
		centers: make([]geom.Point, ny*nx),
	}
	i := 0
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			g.cells[i] = geom.Polygon{{
				{X: xCorner[iy][ix], Y: yCorner[iy][ix]},
				{X: xCorner[iy][ix+1], Y: yCorner[iy][ix+1]},
				{X: xCorner[iy+1][ix+1], Y: yCorner[iy+1][ix+1]},
				{X: xCorner[iy+1][ix], Y: yCorner[iy+1][ix]},
				{X: xCorner[iy][ix], Y: yCorner[iy][ix]}}}
			g.centers[i] = geom.Point{
				X: 0.25 * (xCorner[iy][ix] + xCorner[iy][ix+1] + xCorner[iy+1][ix+1] + xCorner[iy+1][ix]),
				Y: 0.25 * (yCorner[iy][ix] + yCorner[iy][ix+1] + yCorner[iy+1][ix+1] + yCorner[iy+1][ix]),
			}
			i++
		}
	}
	return g.finish(), nil
}

// NewMesh creates an unstructured grid from node coordinates and
// face-node connectivity. Each face must reference at least 3 nodes.
func NewMesh(nodeX, nodeY []float64, faces [][]int) (*Grid, error) {
	if len(nodeX) != len(nodeY) {
		return nil, &GeometryError{Class: Mesh, Reason: "node x and y coordinates have mismatched lengths"}
	}
	if len(faces) == 0 {
		return nil, &GeometryError{Class: Mesh, Reason: "at least one face is needed"}
	}
	g := &Grid{
		class:   Mesh,
		shape:   []int{len(faces)},
		cells:   make([]geom.Polygonal, len(faces)),
		centers: make([]geom.Point, len(faces)),
	}
	for i, face := range faces {
		if len(face) < 3 {
			return nil, &GeometryError{Class: Mesh, Reason: fmt.Sprintf("face %d has fewer than 3 nodes", i)}
		}
		ring := make([]geom.Point, len(face)+1)
		var cx, cy float64
		for j, n := range face {
			if n < 0 || n >= len(nodeX) {
				return nil, &GeometryError{Class: Mesh, Reason: fmt.Sprintf("face %d references node %d, out of range [0,%d)", i, n, len(nodeX))}
			}
			ring[j] = geom.Point{X: nodeX[n], Y: nodeY[n]}
			cx += nodeX[n]
			cy += nodeY[n]
		}
		ring[len(face)] = ring[0]
		g.cells[i] = geom.Polygon{ring}
		g.centers[i] = geom.Point{X: cx / float64(len(face)), Y: cy / float64(len(face))}
	}
	return g.finish(), nil
}

// NewPointCloud creates a grid of bare cell centers, for example
// station locations. Because it has no cell bounds, only the Nearest
// method can regrid to or from it.
func NewPointCloud(x, y []float64) (*Grid, error) {
	if len(x) != len(y) {
		return nil, &GeometryError{Class: PointCloud, Reason: "x and y coordinates have mismatched lengths"}
	}
	if len(x) == 0 {
		return nil, &GeometryError{Class: PointCloud, Reason: "at least one point is needed"}
	}
	g := &Grid{
		class:   PointCloud,
		shape:   []int{len(x)},
		centers: make([]geom.Point, len(x)),
	}
	for i := range x {
		g.centers[i] = geom.Point{X: x[i], Y: y[i]}
	}
	return g.finish(), nil
}

// WithMask returns a copy of g where cells with mask[i]==true are
// invalid and excluded from regridding. The original grid is
// unchanged; the copy has a new identity Key.
func (g *Grid) WithMask(mask []bool) (*Grid, error) {
	if len(mask) != g.Len() {
		return nil, &GeometryError{Class: g.class, Reason: fmt.Sprintf("mask length %d does not match cell count %d", len(mask), g.Len())}
	}
	o := &Grid{
		class:    g.class,
		shape:    g.shape,
		cells:    g.cells,
		centers:  g.centers,
		mask:     append([]bool(nil), mask...),
		areas:    g.areas,
		xc:       g.xc,
		yc:       g.yc,
		circular: g.circular,
		period:   g.period,
	}
	return o.finish(), nil
}

// WithAreas returns a copy of g whose cell areas are overridden, for
// example with true spherical areas when the coordinates are degrees
// of longitude and latitude. Overlap fractions are still computed
// from the planar cell geometry; the overridden areas scale the
// resulting conservative weights. The original grid is unchanged; the
// copy has a new identity Key.
func (g *Grid) WithAreas(areas []float64) (*Grid, error) {
	if len(areas) != g.Len() {
		return nil, &GeometryError{Class: g.class, Reason: fmt.Sprintf("area list length %d does not match cell count %d", len(areas), g.Len())}
	}
	for i, a := range areas {
		if a <= 0 || math.IsNaN(a) {
			return nil, &GeometryError{Class: g.class, Reason: fmt.Sprintf("cell %d area %g is not positive", i, a)}
		}
	}
	o := &Grid{
		class:    g.class,
		shape:    g.shape,
		cells:    g.cells,
		centers:  g.centers,
		mask:     g.mask,
		areas:    append([]float64(nil), areas...),
		xc:       g.xc,
		yc:       g.yc,
		circular: g.circular,
		period:   g.period,
	}
	return o.finish(), nil
}

// Class returns the grid's dimensionality class.
func (g *Grid) Class() Class { return g.class }

// Shape returns the spatial dimension lengths of the grid: {ny, nx}
// for structured grids, {n} for meshes and point clouds.
func (g *Grid) Shape() []int { return append([]int(nil), g.shape...) }

// Len returns the total number of cells.
func (g *Grid) Len() int { return len(g.centers) }

// Key returns a stable identity hash derived from the grid's
// geometry and mask. Two grids are interchangeable if and only if
// their Keys match.
func (g *Grid) Key() string { return g.key }

// Masked reports whether cell i is masked invalid.
func (g *Grid) Masked(i int) bool { return g.mask != nil && g.mask[i] }

// Circular reports whether the grid's x axis is periodic.
func (g *Grid) Circular() bool { return g.circular }

// Area returns the area of cell i: the override supplied via
// WithAreas when present, otherwise the planar polygon area. Point
// clouds have zero area.
func (g *Grid) Area(i int) float64 {
	if g.areas != nil {
		return g.areas[i]
	}
	if g.cells == nil {
		return 0
	}
	return g.cells[i].Area()
}

// Center returns the center of cell i.
func (g *Grid) Center(i int) geom.Point { return g.centers[i] }

// Cell returns the polygon of cell i, or nil for point clouds.
func (g *Grid) Cell(i int) geom.Polygonal {
	if g.cells == nil {
		return nil
	}
	return g.cells[i]
}

func increasing(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if v[i] <= v[i-1] {
			return false
		}
	}
	return true
}

/*
Copyright © 2025 the vegremap authors.
This file is part of vegremap.

vegremap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

vegremap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with vegremap.  If not, see <http://www.gnu.org/licenses/>.
*/

package vegremap

import (
	"math"

	"github.com/ctessum/sparse"
)

// ActiveTileMask marks the cells where tiles of one input vegetation type
// are active inside a search region.
type ActiveTileMask struct {
	// InputVeg is the 0-based input vegetation index.
	InputVeg int

	// Cells is row-major over (lat, lon), in the same layout as SearchMask.
	Cells []bool

	// Count is the number of true cells.
	Count int
}

// active returns whether a tile with the given fraction is active.
func active(frac, threshold float64) bool {
	return !math.IsNaN(frac) && frac > threshold
}

// ActiveTiles computes, for each input vegetation index in indices, the
// cells inside mask where frac is not missing and exceeds threshold.
// frac must have shape (nVegIn, nLat, nLon). dst holds buffers that are
// reused if they are large enough; the returned slice may alias it.
// The second return value is the total number of active tiles found.
func ActiveTiles(mask *SearchMask, frac *sparse.DenseArray, indices []int, threshold float64, dst []*ActiveTileMask) ([]*ActiveTileMask, int) {
	plane := mask.NLat * mask.NLon
	for len(dst) < len(indices) {
		dst = append(dst, new(ActiveTileMask))
	}
	dst = dst[:len(indices)]
	total := 0
	for i, v := range indices {
		a := dst[i]
		if cap(a.Cells) < plane {
			a.Cells = make([]bool, plane)
		}
		a.Cells = a.Cells[:plane]
		a.InputVeg = v
		a.Count = 0
		f := frac.Elements[v*plane : (v+1)*plane]
		for j, in := range mask.cells {
			a.Cells[j] = in && active(f[j], threshold)
			if a.Cells[j] {
				a.Count++
			}
		}
		total += a.Count
	}
	return dst, total
}

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
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// AreaWeightedSum returns the grid-cell total of the tile variable v
// weighted by the tile fractions frac, summed over active tiles only.
// v and frac must both have shape (nVeg, nLat, nLon); the result has
// shape (nLat, nLon). Missing values of v are skipped. Cells without
// any active tiles are zero.
func AreaWeightedSum(v, frac *sparse.DenseArray, threshold float64) (*sparse.DenseArray, error) {
	if len(frac.Shape) != 3 {
		return nil, fmt.Errorf("%w: fractions must have dimensions (veg, lat, lon) but have shape %v", ErrShape, frac.Shape)
	}
	if !sameShape(v.Shape, frac.Shape) {
		return nil, fmt.Errorf("%w: variable shape %v does not match fraction shape %v", ErrShape, v.Shape, frac.Shape)
	}
	nVeg, nLat, nLon := frac.Shape[0], frac.Shape[1], frac.Shape[2]
	plane := nLat * nLon
	o := sparse.ZerosDense(nLat, nLon)
	vals := make([]float64, 0, nVeg)
	weights := make([]float64, 0, nVeg)
	for c := 0; c < plane; c++ {
		vals, weights = vals[:0], weights[:0]
		for i := 0; i < nVeg; i++ {
			f := frac.Elements[i*plane+c]
			val := v.Elements[i*plane+c]
			if !active(f, threshold) || math.IsNaN(val) {
				continue
			}
			vals = append(vals, val)
			weights = append(weights, f)
		}
		o.Elements[c] = floats.Dot(vals, weights)
	}
	return o, nil
}

// perCell computes the output of each per-cell variable in names
// concurrently, one goroutine per variable.
func perCell(names []string, in map[string]*sparse.DenseArray, inFrac *sparse.DenseArray, p *FillPolicy, threshold float64) (map[string]*sparse.DenseArray, error) {
	results := make([]*sparse.DenseArray, len(names))
	var g errgroup.Group
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			sum, err := AreaWeightedSum(in[name], inFrac, threshold)
			if err != nil {
				return fmt.Errorf("vegremap: per-cell variable %s: %w", name, err)
			}
			results[i] = p.ApplyPerCell(in[name], sum)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	o := make(map[string]*sparse.DenseArray, len(names))
	for i, name := range names {
		o[name] = results[i]
	}
	return o, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

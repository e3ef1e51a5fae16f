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

	"github.com/ctessum/sparse"
)

// TileMask marks tiles over (vegetation type, lat, lon).
type TileMask struct {
	NVeg, NLat, NLon int
	Cells            []bool // row-major over (veg, lat, lon)
}

func newTileMask(nVeg, nLat, nLon int) *TileMask {
	return &TileMask{
		NVeg:  nVeg,
		NLat:  nLat,
		NLon:  nLon,
		Cells: make([]bool, nVeg*nLat*nLon),
	}
}

// At returns whether the tile at (veg, lat, lon) is marked.
func (m *TileMask) At(veg, lat, lon int) bool {
	return m.Cells[(veg*m.NLat+lat)*m.NLon+lon]
}

// Count returns the total number of marked tiles.
func (m *TileMask) Count() int {
	n := 0
	for _, c := range m.Cells {
		if c {
			n++
		}
	}
	return n
}

// CountVeg returns the number of marked tiles of vegetation type veg.
func (m *TileMask) CountVeg(veg int) int {
	plane := m.NLat * m.NLon
	n := 0
	for _, c := range m.Cells[veg*plane : (veg+1)*plane] {
		if c {
			n++
		}
	}
	return n
}

// FillPolicy decides which output tiles get synthesized state (Fill) and
// which are cleared (Empty).
type FillPolicy struct {
	FillAll bool
	Fill    *TileMask
	Empty   *TileMask

	nVegIn int
}

// NewFillPolicy compares the input fractions inFrac, with shape
// (nVegIn, nLat, nLon), to the output fractions outFrac, with shape
// (nVegOut, nLat, nLon).
//
// By default only tiles that are new in the output (not positive in the
// input but positive in the output) are filled, and tiles that are not
// positive in the output are emptied. If fillAll is true, every tile that
// is not positive in the input is filled and nothing is emptied.
// Output types without a corresponding input type count as having
// an input fraction of zero. Missing (NaN) fractions are never filled
// or emptied.
func NewFillPolicy(inFrac, outFrac *sparse.DenseArray, fillAll bool) (*FillPolicy, error) {
	if len(inFrac.Shape) != 3 || len(outFrac.Shape) != 3 {
		return nil, fmt.Errorf("%w: vegetation fractions must have dimensions (veg, lat, lon) but have shapes %v and %v",
			ErrShape, inFrac.Shape, outFrac.Shape)
	}
	if inFrac.Shape[1] != outFrac.Shape[1] || inFrac.Shape[2] != outFrac.Shape[2] {
		return nil, fmt.Errorf("%w: input fraction grid %v does not match output fraction grid %v",
			ErrShape, inFrac.Shape[1:], outFrac.Shape[1:])
	}
	nVegIn, nVegOut := inFrac.Shape[0], outFrac.Shape[0]
	nLat, nLon := outFrac.Shape[1], outFrac.Shape[2]
	plane := nLat * nLon

	p := &FillPolicy{
		FillAll: fillAll,
		Fill:    newTileMask(nVegOut, nLat, nLon),
		Empty:   newTileMask(nVegOut, nLat, nLon),
		nVegIn:  nVegIn,
	}
	for v := 0; v < nVegOut; v++ {
		for c := 0; c < plane; c++ {
			i := v*plane + c
			in := 0.
			if v < nVegIn {
				in = inFrac.Elements[i]
			}
			out := outFrac.Elements[i]
			// NaN compares false below.
			if fillAll {
				p.Fill.Cells[i] = in <= 0
			} else {
				p.Fill.Cells[i] = in <= 0 && out > 0
				p.Empty.Cells[i] = out <= 0
			}
		}
	}
	return p, nil
}

// Disjoint returns whether no tile is marked both for filling
// and for emptying.
func (p *FillPolicy) Disjoint() bool {
	for i, f := range p.Fill.Cells {
		if f && p.Empty.Cells[i] {
			return false
		}
	}
	return true
}

// carryForward returns a (nVegOut, nLat, nLon) copy of the input variable
// v, which has shape (nVegIn, nLat, nLon). Output types without a
// corresponding input type start at zero.
func (p *FillPolicy) carryForward(v *sparse.DenseArray) *sparse.DenseArray {
	o := sparse.ZerosDense(p.Fill.NVeg, p.Fill.NLat, p.Fill.NLon)
	n := p.Fill.NLat * p.Fill.NLon * p.nVegIn
	if len(o.Elements) < n {
		n = len(o.Elements)
	}
	copy(o.Elements[:n], v.Elements[:n])
	return o
}

// empty zeroes the tiles of o that are marked for emptying.
func (p *FillPolicy) empty(o *sparse.DenseArray) {
	for i, e := range p.Empty.Cells {
		if e {
			o.Elements[i] = 0
		}
	}
}

// ApplyPerTile carries the per-tile input variable v forward to the
// output vegetation types and zeroes the tiles marked for emptying. Tiles
// marked for filling are left for the TileResolver.
func (p *FillPolicy) ApplyPerTile(v *sparse.DenseArray) *sparse.DenseArray {
	o := p.carryForward(v)
	p.empty(o)
	return o
}

// ApplyPerCell carries the per-cell input variable v forward to the output
// vegetation types, sets the tiles marked for filling to the grid-cell
// value in cellSum (shape (nLat, nLon)), and zeroes the tiles marked
// for emptying.
func (p *FillPolicy) ApplyPerCell(v, cellSum *sparse.DenseArray) *sparse.DenseArray {
	o := p.carryForward(v)
	plane := p.Fill.NLat * p.Fill.NLon
	for i, f := range p.Fill.Cells {
		if f {
			o.Elements[i] = cellSum.Elements[i%plane]
		}
	}
	p.empty(o)
	return o
}

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
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/ctessum/sparse"
)

// grid returns an array of shape (nVeg, nLat, nLon) that is zero except
// for the given (veg, lat, lon) entries.
func grid(nVeg, nLat, nLon int, vals map[[3]int]float64) *sparse.DenseArray {
	o := sparse.ZerosDense(nVeg, nLat, nLon)
	for k, v := range vals {
		o.Set(v, k[0], k[1], k[2])
	}
	return o
}

// randomFractions returns fractions where about half of the tiles are
// active and a few are missing.
func randomFractions(r *rand.Rand, nVeg, nLat, nLon int) *sparse.DenseArray {
	o := sparse.ZerosDense(nVeg, nLat, nLon)
	for i := range o.Elements {
		switch x := r.Float64(); {
		case x < 0.05:
			o.Elements[i] = math.NaN()
		case x < 0.5:
			o.Elements[i] = r.Float64()
		}
	}
	return o
}

func TestFillPolicyDefault(t *testing.T) {
	nan := math.NaN()
	in := grid(1, 1, 5, map[[3]int]float64{{0, 0, 0}: 0.5, {0, 0, 1}: 0.5, {0, 0, 4}: nan})
	out := grid(1, 1, 5, map[[3]int]float64{{0, 0, 0}: 0.5, {0, 0, 2}: 0.5, {0, 0, 3}: nan, {0, 0, 4}: 0.5})
	p, err := NewFillPolicy(in, out, false)
	if err != nil {
		t.Fatal(err)
	}
	wantFill := []bool{false, false, true, false, false}
	wantEmpty := []bool{false, true, false, false, false}
	for i := range wantFill {
		if p.Fill.At(0, 0, i) != wantFill[i] {
			t.Errorf("fill %d: want %v", i, wantFill[i])
		}
		if p.Empty.At(0, 0, i) != wantEmpty[i] {
			t.Errorf("empty %d: want %v", i, wantEmpty[i])
		}
	}
}

func TestFillPolicyFillAll(t *testing.T) {
	in := grid(1, 1, 4, map[[3]int]float64{{0, 0, 0}: 0.5, {0, 0, 3}: math.NaN()})
	out := grid(1, 1, 4, nil)
	p, err := NewFillPolicy(in, out, true)
	if err != nil {
		t.Fatal(err)
	}
	wantFill := []bool{false, true, true, false}
	for i := range wantFill {
		if p.Fill.At(0, 0, i) != wantFill[i] {
			t.Errorf("fill %d: want %v", i, wantFill[i])
		}
	}
	if c := p.Empty.Count(); c != 0 {
		t.Errorf("fill-all should not empty tiles but empties %d", c)
	}
}

func TestFillPolicyDisjoint(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		in := randomFractions(r, 3, 4, 5)
		out := randomFractions(r, 3, 4, 5)
		for _, fillAll := range []bool{false, true} {
			p, err := NewFillPolicy(in, out, fillAll)
			if err != nil {
				t.Fatal(err)
			}
			if !p.Disjoint() {
				t.Fatalf("trial %d, fillAll=%v: fill and empty overlap", i, fillAll)
			}
		}
	}
}

func TestFillPolicyExtraOutputTypes(t *testing.T) {
	in := grid(1, 1, 2, map[[3]int]float64{{0, 0, 0}: 1})
	out := grid(2, 1, 2, map[[3]int]float64{{0, 0, 0}: 0.5, {1, 0, 0}: 0.5})
	p, err := NewFillPolicy(in, out, false)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Fill.At(1, 0, 0) {
		t.Error("tile of a new vegetation type should be filled")
	}
	if p.Fill.CountVeg(0) != 0 || p.Fill.CountVeg(1) != 1 {
		t.Errorf("fill counts: have %d, %d", p.Fill.CountVeg(0), p.Fill.CountVeg(1))
	}

	v := grid(1, 1, 2, map[[3]int]float64{{0, 0, 0}: 7, {0, 0, 1}: 8})
	o := p.ApplyPerTile(v)
	want := []float64{7, 0, 0, 0}
	for i, w := range want {
		if o.Elements[i] != w {
			t.Errorf("element %d: want %g but have %g", i, w, o.Elements[i])
		}
	}
}

func TestFillPolicyShape(t *testing.T) {
	_, err := NewFillPolicy(sparse.ZerosDense(1, 2, 3), sparse.ZerosDense(1, 3, 2), false)
	if !errors.Is(err, ErrShape) {
		t.Errorf("want shape error but have %v", err)
	}
}

func TestApplyPerCell(t *testing.T) {
	in := grid(2, 1, 2, map[[3]int]float64{{0, 0, 0}: 1, {1, 0, 1}: 1})
	out := grid(2, 1, 2, map[[3]int]float64{{0, 0, 0}: 0.5, {1, 0, 0}: 0.5, {0, 0, 1}: 1})
	p, err := NewFillPolicy(in, out, false)
	if err != nil {
		t.Fatal(err)
	}
	v := grid(2, 1, 2, map[[3]int]float64{{0, 0, 0}: 1, {0, 0, 1}: 2, {1, 0, 0}: 3, {1, 0, 1}: 4})
	cellSum := sparse.ZerosDense(1, 2)
	cellSum.Elements = []float64{10, 20}
	o := p.ApplyPerCell(v, cellSum)
	// veg 0: (0,0) kept, (0,1) filled; veg 1: (0,0) filled, (0,1) emptied.
	want := []float64{1, 20, 10, 0}
	for i, w := range want {
		if o.Elements[i] != w {
			t.Errorf("element %d: want %g but have %g", i, w, o.Elements[i])
		}
	}
}

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
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// writeTemp writes d to a temporary file and returns its path.
func writeTemp(t *testing.T, d *Dataset) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.nc")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Write(f); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDatasetRoundTrip(t *testing.T) {
	d := NewDataset()
	d.Attributes["title"] = "round trip"
	frac := grid(2, 3, 4, map[[3]int]float64{{0, 0, 0}: 0.25, {1, 2, 3}: 0.5, {0, 1, 1}: math.NaN()})
	d.AddVariable(FractionVariable, []string{"veg", "lat", "lon"}, "tile fractions", "1", frac)
	albedo := sparse.ZerosDense(3, 4)
	for i := range albedo.Elements {
		albedo.Elements[i] = float64(i) / 10
	}
	d.AddVariable("ALBEDO", []string{"lat", "lon"}, "albedo", "1", albedo)

	f, err := os.Open(writeTemp(t, d))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	d2, err := LoadDataset(f)
	if err != nil {
		t.Fatal(err)
	}
	if d2.Attributes["title"] != "round trip" {
		t.Errorf("title: have %q", d2.Attributes["title"])
	}
	if len(d2.Variables) != 2 {
		t.Fatalf("want 2 variables but have %v", d2.Names())
	}
	v := d2.Variables[FractionVariable]
	if v.Description != "tile fractions" || v.Units != "1" {
		t.Errorf("metadata: have %q, %q", v.Description, v.Units)
	}
	if len(v.Dims) != 3 || v.Dims[0] != "veg" || v.Dims[2] != "lon" {
		t.Errorf("dims: have %v", v.Dims)
	}
	for i, want := range frac.Elements {
		have := v.Data.Elements[i]
		if math.IsNaN(want) {
			if !math.IsNaN(have) {
				t.Errorf("element %d: want NaN but have %g", i, have)
			}
			continue
		}
		if have != want {
			t.Errorf("element %d: want %g but have %g", i, want, have)
		}
	}
	if !floats.EqualApprox(d2.Variables["ALBEDO"].Data.Elements, albedo.Elements, 1e-6) {
		t.Errorf("ALBEDO: want %v but have %v", albedo.Elements, d2.Variables["ALBEDO"].Data.Elements)
	}
}

func TestDatasetWriteShapeMismatch(t *testing.T) {
	d := NewDataset()
	d.AddVariable("a", []string{"lat", "lon"}, "", "", sparse.ZerosDense(2, 3))
	d.AddVariable("b", []string{"lat", "lon"}, "", "", sparse.ZerosDense(3, 3))
	f, err := os.Create(filepath.Join(t.TempDir(), "bad.nc"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := d.Write(f); !errors.Is(err, ErrShape) {
		t.Errorf("want shape error but have %v", err)
	}
}

func TestLoadVegetationFractions(t *testing.T) {
	series := sparse.ZerosDense(2, 3, 2, 2)
	for i := range series.Elements {
		series.Elements[i] = float64(i) / 100
	}
	d := NewDataset()
	d.AddVariable("fraction", []string{"time", "veg", "lat", "lon"}, "land cover", "1", series)
	d.AddVariable("snapshot", []string{"veg", "lat", "lon"}, "land cover", "1", sparse.ZerosDense(3, 2, 2))
	d.AddVariable("flat", []string{"lat", "lon"}, "", "", sparse.ZerosDense(2, 2))
	path := writeTemp(t, d)

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	frac, err := LoadVegetationFractions(f, "fraction")
	if err != nil {
		t.Fatal(err)
	}
	if len(frac.Shape) != 3 || frac.Shape[0] != 3 || frac.Shape[1] != 2 || frac.Shape[2] != 2 {
		t.Fatalf("shape: have %v", frac.Shape)
	}
	if !floats.EqualApprox(frac.Elements, series.Elements[:12], 1e-6) {
		t.Errorf("want the first time: %v but have %v", series.Elements[:12], frac.Elements)
	}

	if frac, err = LoadVegetationFractions(f, "snapshot"); err != nil {
		t.Error(err)
	} else if len(frac.Shape) != 3 {
		t.Errorf("snapshot shape: have %v", frac.Shape)
	}
	if _, err = LoadVegetationFractions(f, "flat"); !errors.Is(err, ErrShape) {
		t.Errorf("flat: want shape error but have %v", err)
	}
	if _, err = LoadVegetationFractions(f, "missing"); err == nil {
		t.Error("missing: want an error")
	}
}

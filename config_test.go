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
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func intPtr(i int) *int { return &i }

func TestResolveMappingDefaults(t *testing.T) {
	m, s, err := ResolveMapping(4, 3, &MappingConfig{PerCell: []string{}, PerTile: []string{}})
	if err != nil {
		t.Fatal(err)
	}
	want := VegetationMapping{{0}, {1}, {2}, {}}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("mapping: want %v but have %v", want, m)
	}
	wantS := SearchConfig{SearchRadius: 2, LatitudeBand: 8, MinimumPoints: 1, ActiveThreshold: 0}
	if s != wantS {
		t.Errorf("search: want %+v but have %+v", wantS, s)
	}
}

func TestResolveMappingOverride(t *testing.T) {
	c := &MappingConfig{
		VegetationMap: map[int][]int{2: {1, 3}, 4: {2}},
		SearchRadius:  intPtr(0),
		MinimumPoints: intPtr(5),
		PerCell:       []string{"a"},
		PerTile:       []string{"b"},
	}
	m, s, err := ResolveMapping(4, 3, c)
	if err != nil {
		t.Fatal(err)
	}
	want := VegetationMapping{{0}, {0, 2}, {2}, {1}}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("mapping: want %v but have %v", want, m)
	}
	wantS := SearchConfig{SearchRadius: 0, LatitudeBand: 8, MinimumPoints: 5}
	if s != wantS {
		t.Errorf("search: want %+v but have %+v", wantS, s)
	}
}

func TestResolveMappingErrors(t *testing.T) {
	neg := -1
	thresh := 1.5
	for _, test := range []struct {
		name string
		c    *MappingConfig
	}{
		{name: "nil config", c: nil},
		{name: "missing per_cell", c: &MappingConfig{PerTile: []string{}}},
		{name: "missing per_tile", c: &MappingConfig{PerCell: []string{}}},
		{name: "both lists", c: &MappingConfig{PerCell: []string{"x"}, PerTile: []string{"x"}}},
		{name: "output too large", c: &MappingConfig{VegetationMap: map[int][]int{5: {1}}, PerCell: []string{}, PerTile: []string{}}},
		{name: "output zero", c: &MappingConfig{VegetationMap: map[int][]int{0: {1}}, PerCell: []string{}, PerTile: []string{}}},
		{name: "input too large", c: &MappingConfig{VegetationMap: map[int][]int{1: {4}}, PerCell: []string{}, PerTile: []string{}}},
		{name: "input zero", c: &MappingConfig{VegetationMap: map[int][]int{1: {0}}, PerCell: []string{}, PerTile: []string{}}},
		{name: "negative radius", c: &MappingConfig{SearchRadius: &neg, PerCell: []string{}, PerTile: []string{}}},
		{name: "negative band", c: &MappingConfig{LatitudeBand: &neg, PerCell: []string{}, PerTile: []string{}}},
		{name: "zero minimum", c: &MappingConfig{MinimumPoints: intPtr(0), PerCell: []string{}, PerTile: []string{}}},
		{name: "threshold", c: &MappingConfig{ActiveThreshold: &thresh, PerCell: []string{}, PerTile: []string{}}},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, _, err := ResolveMapping(4, 3, test.c)
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("want configuration error but have %v", err)
			}
		})
	}
}

func TestReadMappingConfig(t *testing.T) {
	dir := t.TempDir()
	yamlFile := filepath.Join(dir, "mapping.yaml")
	if err := os.WriteFile(yamlFile, []byte(`vegetation_map:
  2: [1, 3]
search_radius: 3
active_threshold: 1.0e-6
per_cell: []
per_tile:
  - TSOIL
  - CANOPY
`), 0644); err != nil {
		t.Fatal(err)
	}
	tomlFile := filepath.Join(dir, "mapping.toml")
	if err := os.WriteFile(tomlFile, []byte(`search_radius = 3
active_threshold = 1.0e-6
per_cell = []
per_tile = ["TSOIL", "CANOPY"]

[vegetation_map]
"2" = [1, 3]
`), 0644); err != nil {
		t.Fatal(err)
	}

	for _, f := range []string{yamlFile, tomlFile} {
		t.Run(filepath.Ext(f), func(t *testing.T) {
			c, err := ReadMappingConfig(f)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(c.VegetationMap, map[int][]int{2: {1, 3}}) {
				t.Errorf("vegetation_map: have %v", c.VegetationMap)
			}
			if c.SearchRadius == nil || *c.SearchRadius != 3 {
				t.Errorf("search_radius: have %v", c.SearchRadius)
			}
			if c.LatitudeBand != nil || c.MinimumPoints != nil {
				t.Errorf("unset options should be nil")
			}
			if c.ActiveThreshold == nil || *c.ActiveThreshold != 1.0e-6 {
				t.Errorf("active_threshold: have %v", c.ActiveThreshold)
			}
			if c.PerCell == nil || len(c.PerCell) != 0 {
				t.Errorf("per_cell: want empty list but have %#v", c.PerCell)
			}
			if !reflect.DeepEqual(c.PerTile, []string{"TSOIL", "CANOPY"}) {
				t.Errorf("per_tile: have %v", c.PerTile)
			}
		})
	}
}

func TestReadMappingConfigMissingList(t *testing.T) {
	f := filepath.Join(t.TempDir(), "mapping.yml")
	if err := os.WriteFile(f, []byte("per_tile: [TSOIL]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := ReadMappingConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := ResolveMapping(1, 1, c); !errors.Is(err, ErrConfiguration) {
		t.Errorf("want configuration error but have %v", err)
	}
}

func TestReadMappingConfigExtension(t *testing.T) {
	f := filepath.Join(t.TempDir(), "mapping.json")
	if err := os.WriteFile(f, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadMappingConfig(f); err == nil {
		t.Error("want an error for an unsupported extension")
	}
}

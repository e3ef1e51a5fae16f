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
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Default values for the search parameters that are not specified
// in a MappingConfig.
const (
	DefaultSearchRadius  = 2
	DefaultLatitudeBand  = 8
	DefaultMinimumPoints = 1

	// DefaultActiveThreshold is the tile fraction that must be exceeded
	// for a tile to be considered active. Some land-use datasets seed tiles
	// that are expected to become active with a fraction of 1e-6; those
	// tiles count as active unless ActiveThreshold is raised to at least
	// that value.
	DefaultActiveThreshold = 0.0
)

// MappingConfig holds the user-supplied mapping configuration. Optional
// search parameters are pointers so that an absent value can be told apart
// from an explicit zero. PerCell and PerTile are required: a nil list is
// a configuration error, while an empty list is allowed.
type MappingConfig struct {
	// VegetationMap maps 1-based output vegetation types to the 1-based
	// input vegetation types whose active tiles may be used to fill them.
	VegetationMap map[int][]int `yaml:"vegetation_map"`

	SearchRadius    *int     `yaml:"search_radius"`    // Half-width of the radius search block, in grid cells
	LatitudeBand    *int     `yaml:"latitude_band"`    // Half-width of the latitude band search, in grid rows
	MinimumPoints   *int     `yaml:"minimum_points"`   // Number of active tiles required to stop searching
	ActiveThreshold *float64 `yaml:"active_threshold"` // Fraction a tile must exceed to be active

	// PerCell lists the variables filled with the area-weighted
	// grid-cell sum.
	PerCell []string `yaml:"per_cell"`

	// PerTile lists the variables filled from nearby active tiles.
	PerTile []string `yaml:"per_tile"`
}

// tomlMappingConfig is the TOML rendition of MappingConfig. TOML keys are
// always strings, so the vegetation map is converted after decoding.
type tomlMappingConfig struct {
	VegetationMap   map[string][]int `toml:"vegetation_map"`
	SearchRadius    *int             `toml:"search_radius"`
	LatitudeBand    *int             `toml:"latitude_band"`
	MinimumPoints   *int             `toml:"minimum_points"`
	ActiveThreshold *float64         `toml:"active_threshold"`
	PerCell         []string         `toml:"per_cell"`
	PerTile         []string         `toml:"per_tile"`
}

func (t *tomlMappingConfig) mappingConfig() (*MappingConfig, error) {
	c := &MappingConfig{
		SearchRadius:    t.SearchRadius,
		LatitudeBand:    t.LatitudeBand,
		MinimumPoints:   t.MinimumPoints,
		ActiveThreshold: t.ActiveThreshold,
		PerCell:         t.PerCell,
		PerTile:         t.PerTile,
	}
	if t.VegetationMap != nil {
		c.VegetationMap = make(map[int][]int, len(t.VegetationMap))
		for k, v := range t.VegetationMap {
			i, err := strconv.Atoi(strings.TrimSpace(k))
			if err != nil {
				return nil, fmt.Errorf("%w: vegetation_map key %q is not an integer", ErrConfiguration, k)
			}
			c.VegetationMap[i] = v
		}
	}
	return c, nil
}

// ReadMappingConfig reads a mapping configuration from a YAML (.yaml, .yml)
// or TOML (.toml) file.
func ReadMappingConfig(path string) (*MappingConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vegremap: reading mapping configuration: %v", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		c := new(MappingConfig)
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("vegremap: parsing mapping configuration %s: %v", path, err)
		}
		return c, nil
	case ".toml":
		t := new(tomlMappingConfig)
		if _, err := toml.Decode(string(b), t); err != nil {
			return nil, fmt.Errorf("vegremap: parsing mapping configuration %s: %v", path, err)
		}
		return t.mappingConfig()
	default:
		return nil, fmt.Errorf("vegremap: unsupported mapping configuration file extension %q", ext)
	}
}

// SearchConfig holds the resolved search parameters.
type SearchConfig struct {
	SearchRadius    int
	LatitudeBand    int
	MinimumPoints   int
	ActiveThreshold float64
}

// VegetationMapping gives, for each 0-based output vegetation index, the
// ordered 0-based input vegetation indices whose active tiles contribute
// when filling that output type. An empty entry means no input type
// contributes and new tiles of that type are filled with zeros.
type VegetationMapping [][]int

// ResolveMapping builds the vegetation mapping and search configuration
// for nVegOut output and nVegIn input vegetation types. Output type i maps
// to input type i by default, or to nothing if there is no such input
// type. Entries in c.VegetationMap override the default.
func ResolveMapping(nVegOut, nVegIn int, c *MappingConfig) (VegetationMapping, SearchConfig, error) {
	if c == nil {
		return nil, SearchConfig{}, fmt.Errorf("%w: no mapping configuration", ErrConfiguration)
	}
	if err := c.checkVariables(); err != nil {
		return nil, SearchConfig{}, err
	}

	m := make(VegetationMapping, nVegOut)
	for i := range m {
		if i < nVegIn {
			m[i] = []int{i}
		} else {
			m[i] = []int{}
		}
	}

	// Apply overrides in order so the first bad entry is reported consistently.
	outKeys := make([]int, 0, len(c.VegetationMap))
	for k := range c.VegetationMap {
		outKeys = append(outKeys, k)
	}
	sort.Ints(outKeys)
	for _, k := range outKeys {
		if k < 1 || k > nVegOut {
			return nil, SearchConfig{}, fmt.Errorf("%w: vegetation_map output type %d is outside the range [1, %d]",
				ErrConfiguration, k, nVegOut)
		}
		in := c.VegetationMap[k]
		idx := make([]int, len(in))
		for j, v := range in {
			if v < 1 || v > nVegIn {
				return nil, SearchConfig{}, fmt.Errorf("%w: vegetation_map input type %d (for output type %d) is outside the range [1, %d]",
					ErrConfiguration, v, k, nVegIn)
			}
			idx[j] = v - 1
		}
		m[k-1] = idx
	}

	s := SearchConfig{
		SearchRadius:    DefaultSearchRadius,
		LatitudeBand:    DefaultLatitudeBand,
		MinimumPoints:   DefaultMinimumPoints,
		ActiveThreshold: DefaultActiveThreshold,
	}
	if c.SearchRadius != nil {
		s.SearchRadius = *c.SearchRadius
	}
	if c.LatitudeBand != nil {
		s.LatitudeBand = *c.LatitudeBand
	}
	if c.MinimumPoints != nil {
		s.MinimumPoints = *c.MinimumPoints
	}
	if c.ActiveThreshold != nil {
		s.ActiveThreshold = *c.ActiveThreshold
	}
	if s.SearchRadius < 0 {
		return nil, SearchConfig{}, fmt.Errorf("%w: search_radius must not be negative but is %d", ErrConfiguration, s.SearchRadius)
	}
	if s.LatitudeBand < 0 {
		return nil, SearchConfig{}, fmt.Errorf("%w: latitude_band must not be negative but is %d", ErrConfiguration, s.LatitudeBand)
	}
	if s.MinimumPoints < 1 {
		return nil, SearchConfig{}, fmt.Errorf("%w: minimum_points must be at least 1 but is %d", ErrConfiguration, s.MinimumPoints)
	}
	if s.ActiveThreshold < 0 || s.ActiveThreshold >= 1 {
		return nil, SearchConfig{}, fmt.Errorf("%w: active_threshold must be in the range [0, 1) but is %g", ErrConfiguration, s.ActiveThreshold)
	}
	return m, s, nil
}

// checkVariables makes sure that the per_cell and per_tile lists are
// present and that no variable appears in both.
func (c *MappingConfig) checkVariables() error {
	if c.PerCell == nil {
		return fmt.Errorf("%w: the per_cell variable list is missing", ErrConfiguration)
	}
	if c.PerTile == nil {
		return fmt.Errorf("%w: the per_tile variable list is missing", ErrConfiguration)
	}
	cell := make(map[string]bool, len(c.PerCell))
	for _, v := range c.PerCell {
		cell[v] = true
	}
	for _, v := range c.PerTile {
		if cell[v] {
			return fmt.Errorf("%w: variable %q is listed as both per_cell and per_tile", ErrConfiguration, v)
		}
	}
	return nil
}

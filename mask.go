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

import "fmt"

// SearchStage identifies one step of the escalating search for active
// tiles around a grid cell.
type SearchStage int

// The search stages, in the order they are tried.
const (
	StageCell SearchStage = iota
	StageRadius
	StageBand
	StageGlobal
)

func (s SearchStage) String() string {
	switch s {
	case StageCell:
		return "cell"
	case StageRadius:
		return "radius"
	case StageBand:
		return "band"
	case StageGlobal:
		return "global"
	default:
		return fmt.Sprintf("SearchStage(%d)", int(s))
	}
}

// StageSpec gives the parameter of a search stage and the number of
// active tiles it must find for the search to stop there.
type StageSpec struct {
	Stage     SearchStage
	Param     int
	Threshold int
}

// Stages returns the search stages in the order they are tried.
func (c SearchConfig) Stages() []StageSpec {
	return []StageSpec{
		{Stage: StageCell, Threshold: 1},
		{Stage: StageRadius, Param: c.SearchRadius, Threshold: c.MinimumPoints},
		{Stage: StageBand, Param: c.LatitudeBand, Threshold: c.MinimumPoints},
		{Stage: StageGlobal, Threshold: 1},
	}
}

// SearchMask marks the grid cells under consideration during one search.
// Stages only ever add cells to the mask; Reset is the only way to clear
// it. A SearchMask must not be shared between goroutines.
type SearchMask struct {
	NLat, NLon int
	cells      []bool // row-major, index lat*NLon + lon
}

// NewSearchMask returns an empty mask for a grid with the given dimensions.
func NewSearchMask(nLat, nLon int) *SearchMask {
	return &SearchMask{
		NLat:  nLat,
		NLon:  nLon,
		cells: make([]bool, nLat*nLon),
	}
}

// At returns whether the cell at (lat, lon) is marked.
func (m *SearchMask) At(lat, lon int) bool {
	return m.cells[lat*m.NLon+lon]
}

// Count returns the number of marked cells.
func (m *SearchMask) Count() int {
	n := 0
	for _, c := range m.cells {
		if c {
			n++
		}
	}
	return n
}

// Reset unmarks every cell.
func (m *SearchMask) Reset() {
	for i := range m.cells {
		m.cells[i] = false
	}
}

// Cell marks the target cell.
func (m *SearchMask) Cell(lon, lat int) {
	m.cells[lat*m.NLon+lon] = true
}

// Radius marks the square block of cells within radius indices of the
// target. Longitude wraps around the grid; latitude is clamped to
// its edges.
func (m *SearchMask) Radius(radius, lon, lat int) {
	lat0, lat1 := m.latRows(radius, lat)
	if radius > m.NLon {
		radius = m.NLon
	}
	width := 2*radius + 1
	if width > m.NLon {
		width = m.NLon
	}
	for j := lat0; j <= lat1; j++ {
		row := m.cells[j*m.NLon : (j+1)*m.NLon]
		for k := 0; k < width; k++ {
			row[wrap(lon-radius+k, m.NLon)] = true
		}
	}
}

// Band marks every longitude of the latitude rows within band rows of
// the target.
func (m *SearchMask) Band(band, lon, lat int) {
	lat0, lat1 := m.latRows(band, lat)
	for i := lat0 * m.NLon; i < (lat1+1)*m.NLon; i++ {
		m.cells[i] = true
	}
}

// Global marks every cell.
func (m *SearchMask) Global() {
	for i := range m.cells {
		m.cells[i] = true
	}
}

// Extend adds the cells of the given stage to the mask.
func (m *SearchMask) Extend(s StageSpec, lon, lat int) {
	switch s.Stage {
	case StageCell:
		m.Cell(lon, lat)
	case StageRadius:
		m.Radius(s.Param, lon, lat)
	case StageBand:
		m.Band(s.Param, lon, lat)
	case StageGlobal:
		m.Global()
	default:
		panic(fmt.Errorf("vegremap: invalid search stage %v", s.Stage))
	}
}

// latRows returns the first and last latitude rows within d rows of lat.
func (m *SearchMask) latRows(d, lat int) (int, int) {
	if d > m.NLat {
		d = m.NLat
	}
	lat0, lat1 := lat-d, lat+d
	if lat0 < 0 {
		lat0 = 0
	}
	if lat1 > m.NLat-1 {
		lat1 = m.NLat - 1
	}
	return lat0, lat1
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

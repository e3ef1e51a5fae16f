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
	"runtime"
	"sort"
	"sync"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// Match is the result of searching for active tiles around one
// output tile.
type Match struct {
	// Stage is the last search stage that was tried.
	Stage SearchStage

	// PointsFound is the number of active tiles found.
	PointsFound int

	// Masks holds the active tiles found for each contributing input
	// vegetation type.
	Masks []*ActiveTileMask
}

// Mean returns the mean of the input tile variable v, with shape
// (nVegIn, nLat, nLon), over all matched tiles pooled together.
// Missing values are skipped; if there are no values the result is zero.
func (m Match) Mean(v *sparse.DenseArray) float64 {
	var sum float64
	var n int
	for _, a := range m.Masks {
		plane := len(a.Cells)
		vals := v.Elements[a.InputVeg*plane : (a.InputVeg+1)*plane]
		for j, ok := range a.Cells {
			if !ok || math.IsNaN(vals[j]) {
				continue
			}
			sum += vals[j]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// TileResolver finds state for new tiles from nearby active tiles of
// the same or a mapped vegetation type.
type TileResolver struct {
	Mapping VegetationMapping
	Search  SearchConfig

	// Frac holds the input vegetation fractions, with shape
	// (nVegIn, nLat, nLon).
	Frac *sparse.DenseArray

	// Workers is the number of concurrent workers used by Fill.
	// If it is not positive, runtime.GOMAXPROCS(0) is used.
	Workers int

	Log logrus.FieldLogger
}

// Resolve searches for active input tiles that can provide state for the
// output vegetation type outVeg at (lat, lon). The search region grows one
// stage at a time until a stage finds as many active tiles as it requires.
// mask must be empty and is reset before Resolve returns. dst holds
// reusable buffers for the result masks.
func (r *TileResolver) Resolve(outVeg, lat, lon int, mask *SearchMask, dst []*ActiveTileMask) Match {
	defer mask.Reset()
	var m Match
	indices := r.Mapping[outVeg]
	for _, s := range r.Search.Stages() {
		mask.Extend(s, lon, lat)
		m.Masks, m.PointsFound = ActiveTiles(mask, r.Frac, indices, r.Search.ActiveThreshold, dst)
		dst = m.Masks
		m.Stage = s.Stage
		if m.PointsFound >= s.Threshold {
			break
		}
	}
	return m
}

// TileStats summarizes a TileResolver.Fill run.
type TileStats struct {
	// Filled is the number of tiles filled from nearby active tiles.
	Filled int

	// ZeroFilled gives, for each output vegetation type, the number of
	// tiles set to zero because too few active tiles were found.
	ZeroFilled []int

	// Stages gives the number of filled tiles resolved at each
	// search stage.
	Stages map[SearchStage]int
}

func (s *TileStats) add(o *TileStats) {
	s.Filled += o.Filled
	for i, n := range o.ZeroFilled {
		s.ZeroFilled[i] += n
	}
	for k, n := range o.Stages {
		s.Stages[k] += n
	}
}

func newTileStats(nVeg int) *TileStats {
	return &TileStats{
		ZeroFilled: make([]int, nVeg),
		Stages:     make(map[SearchStage]int),
	}
}

// Fill sets every tile that p marks for filling in each output array in
// out, from the input array with the same name in in. Output arrays have
// shape (nVegOut, nLat, nLon) and input arrays have the same shape as
// r.Frac. Tiles are processed concurrently; each worker owns its search
// mask and writes only the tiles assigned to it.
func (r *TileResolver) Fill(p *FillPolicy, in, out map[string]*sparse.DenseArray) *TileStats {
	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	names := make([]string, 0, len(out))
	for name := range out {
		names = append(names, name)
	}
	sort.Strings(names)

	var points []int
	for i, f := range p.Fill.Cells {
		if f {
			points = append(points, i)
		}
	}

	nprocs := r.Workers
	if nprocs <= 0 {
		nprocs = runtime.GOMAXPROCS(0)
	}
	nLat, nLon := p.Fill.NLat, p.Fill.NLon
	plane := nLat * nLon
	stats := make([]*TileStats, nprocs)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			s := newTileStats(p.Fill.NVeg)
			stats[pp] = s
			mask := NewSearchMask(nLat, nLon)
			var buf []*ActiveTileMask
			for ii := pp; ii < len(points); ii += nprocs {
				i := points[ii]
				outVeg, lat, lon := i/plane, (i%plane)/nLon, i%nLon
				m := r.Resolve(outVeg, lat, lon, mask, buf)
				buf = m.Masks
				if m.PointsFound < r.Search.MinimumPoints {
					for _, name := range names {
						out[name].Elements[i] = 0
					}
					s.ZeroFilled[outVeg]++
					log.WithFields(logrus.Fields{
						"veg":         outVeg + 1,
						"lat":         lat,
						"lon":         lon,
						"pointsFound": m.PointsFound,
					}).Debug("too few active tiles found; filling with zero")
					continue
				}
				for _, name := range names {
					out[name].Elements[i] = m.Mean(in[name])
				}
				s.Filled++
				s.Stages[m.Stage]++
			}
		}(pp)
	}
	wg.Wait()

	total := newTileStats(p.Fill.NVeg)
	for _, s := range stats {
		total.add(s)
	}
	for v, n := range total.ZeroFilled {
		if n > 0 {
			log.WithFields(logrus.Fields{
				"veg":   v + 1,
				"tiles": n,
			}).Warn("too few active tiles found for new tiles; they were filled with zero")
		}
	}
	return total
}

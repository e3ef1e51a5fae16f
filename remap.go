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
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Remapper remaps restart datasets onto new vegetation fractions.
type Remapper struct {
	// Log receives progress and warning messages. If it is nil,
	// logrus.StandardLogger() is used.
	Log logrus.FieldLogger

	// Workers is the number of concurrent workers used to fill per-tile
	// variables. If it is not positive, runtime.GOMAXPROCS(0) is used.
	Workers int
}

// Summary describes what a remapping changes.
type Summary struct {
	NVegIn, NVegOut, NLat, NLon int

	// TilesToFill and TilesToEmpty are the total numbers of output tiles
	// marked for filling and emptying.
	TilesToFill, TilesToEmpty int

	// FillByVeg and EmptyByVeg give the numbers of tiles marked for filling
	// and emptying for each output vegetation type.
	FillByVeg, EmptyByVeg []int

	// Mapping and Search are the resolved vegetation mapping and search
	// parameters.
	Mapping VegetationMapping
	Search  SearchConfig

	// Tiles summarizes the per-tile filling. It is nil if no
	// filling was done.
	Tiles *TileStats
}

func (r *Remapper) log() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

// remapRun holds the validated inputs of a remapping.
type remapRun struct {
	inFrac  *sparse.DenseArray
	mapping VegetationMapping
	search  SearchConfig
	policy  *FillPolicy
	summary *Summary
}

// prepare checks the inputs of a remapping and computes the fill policy.
// All configuration and shape errors are detected here.
func (r *Remapper) prepare(in *Dataset, outFrac *sparse.DenseArray, cfg *MappingConfig, fillAll bool) (*remapRun, error) {
	fv, ok := in.Variables[FractionVariable]
	if !ok {
		return nil, fmt.Errorf("vegremap: input dataset has no variable %q", FractionVariable)
	}
	inFrac := fv.Data
	if len(inFrac.Shape) != 3 {
		return nil, fmt.Errorf("%w: input variable %q must have dimensions (veg, lat, lon) but has shape %v",
			ErrShape, FractionVariable, inFrac.Shape)
	}
	if len(outFrac.Shape) != 3 {
		return nil, fmt.Errorf("%w: new vegetation fractions must have dimensions (veg, lat, lon) but have shape %v",
			ErrShape, outFrac.Shape)
	}
	nVegIn, nLat, nLon := inFrac.Shape[0], inFrac.Shape[1], inFrac.Shape[2]
	nVegOut := outFrac.Shape[0]

	mapping, search, err := ResolveMapping(nVegOut, nVegIn, cfg)
	if err != nil {
		return nil, err
	}
	policy, err := NewFillPolicy(inFrac, outFrac, fillAll)
	if err != nil {
		return nil, err
	}

	for _, name := range cfg.PerCell {
		v, ok := in.Variables[name]
		if !ok {
			return nil, fmt.Errorf("vegremap: per-cell variable %q is not in the input dataset", name)
		}
		if !sameShape(v.Data.Shape, inFrac.Shape) && !sameShape(v.Data.Shape, []int{nLat, nLon}) {
			return nil, fmt.Errorf("%w: per-cell variable %q has shape %v but must have shape %v or %v",
				ErrShape, name, v.Data.Shape, inFrac.Shape, []int{nLat, nLon})
		}
	}
	for _, name := range cfg.PerTile {
		v, ok := in.Variables[name]
		if !ok {
			return nil, fmt.Errorf("vegremap: per-tile variable %q is not in the input dataset", name)
		}
		if !sameShape(v.Data.Shape, inFrac.Shape) {
			return nil, fmt.Errorf("%w: per-tile variable %q has shape %v but must have shape %v",
				ErrShape, name, v.Data.Shape, inFrac.Shape)
		}
	}

	s := &Summary{
		NVegIn:       nVegIn,
		NVegOut:      nVegOut,
		NLat:         nLat,
		NLon:         nLon,
		TilesToFill:  policy.Fill.Count(),
		TilesToEmpty: policy.Empty.Count(),
		FillByVeg:    make([]int, nVegOut),
		EmptyByVeg:   make([]int, nVegOut),
		Mapping:      mapping,
		Search:       search,
	}
	for v := 0; v < nVegOut; v++ {
		s.FillByVeg[v] = policy.Fill.CountVeg(v)
		s.EmptyByVeg[v] = policy.Empty.CountVeg(v)
		if len(mapping[v]) == 0 && s.FillByVeg[v] > 0 {
			r.log().WithFields(logrus.Fields{
				"veg":   v + 1,
				"tiles": s.FillByVeg[v],
			}).Warn("no input vegetation type is mapped to this output type; new tiles will be filled with zero")
		}
	}
	return &remapRun{
		inFrac:  inFrac,
		mapping: mapping,
		search:  search,
		policy:  policy,
		summary: s,
	}, nil
}

// Plan checks the inputs of a remapping and reports how many tiles would
// be filled and emptied, without synthesizing any values.
func (r *Remapper) Plan(in *Dataset, outFrac *sparse.DenseArray, cfg *MappingConfig, fillAll bool) (*Summary, error) {
	run, err := r.prepare(in, outFrac, cfg, fillAll)
	if err != nil {
		return nil, err
	}
	return run.summary, nil
}

// Remap returns a new dataset in which the per-cell and per-tile
// variables named in cfg are consistent with the new vegetation
// fractions outFrac, which must have shape (nVegOut, nLat, nLon) on the
// same grid as the input fractions in in. in is not modified.
func (r *Remapper) Remap(in *Dataset, outFrac *sparse.DenseArray, cfg *MappingConfig, fillAll bool) (*Dataset, *Summary, error) {
	run, err := r.prepare(in, outFrac, cfg, fillAll)
	if err != nil {
		return nil, nil, err
	}
	log := r.log()
	s := run.summary
	log.WithFields(logrus.Fields{
		"nVegIn":       s.NVegIn,
		"nVegOut":      s.NVegOut,
		"tilesToFill":  s.TilesToFill,
		"tilesToEmpty": s.TilesToEmpty,
		"fillAll":      fillAll,
	}).Info("remapping vegetation tiles")

	o := NewDataset()
	for k, v := range in.Attributes {
		o.Attributes[k] = v
	}
	addCoordinates(o, s.NVegOut, s.NLat, s.NLon)
	tileDims := []string{"veg", "lat", "lon"}
	fracDesc := in.Variables[FractionVariable]
	o.AddVariable(FractionVariable, tileDims, fracDesc.Description, fracDesc.Units, outFrac.Copy())
	desc, units := fracDesc.Description, fracDesc.Units
	if prev, ok := in.Variables[PreviousFractionVariable]; ok {
		desc, units = prev.Description, prev.Units
	}
	o.AddVariable(PreviousFractionVariable, tileDims, desc, units, outFrac.Copy())

	// Per-cell variables.
	inCell := make(map[string]*sparse.DenseArray)
	var cellNames []string
	for _, name := range cfg.PerCell {
		v := in.Variables[name]
		if len(v.Data.Shape) == 2 {
			o.AddVariable(name, []string{"lat", "lon"}, v.Description, v.Units, v.Data.Copy())
			continue
		}
		cellNames = append(cellNames, name)
		inCell[name] = v.Data
	}
	cells, err := perCell(cellNames, inCell, run.inFrac, run.policy, run.search.ActiveThreshold)
	if err != nil {
		return nil, nil, err
	}
	for name, data := range cells {
		v := in.Variables[name]
		o.AddVariable(name, tileDims, v.Description, v.Units, data)
	}

	// Per-tile variables.
	inTile := make(map[string]*sparse.DenseArray, len(cfg.PerTile))
	outTile := make(map[string]*sparse.DenseArray, len(cfg.PerTile))
	for _, name := range cfg.PerTile {
		v := in.Variables[name]
		inTile[name] = v.Data
		outTile[name] = run.policy.ApplyPerTile(v.Data)
	}
	if len(outTile) > 0 {
		tr := &TileResolver{
			Mapping: run.mapping,
			Search:  run.search,
			Frac:    run.inFrac,
			Workers: r.Workers,
			Log:     log,
		}
		s.Tiles = tr.Fill(run.policy, inTile, outTile)
		log.WithFields(logrus.Fields{
			"filled":      s.Tiles.Filled,
			"cellStage":   s.Tiles.Stages[StageCell],
			"radiusStage": s.Tiles.Stages[StageRadius],
			"bandStage":   s.Tiles.Stages[StageBand],
			"globalStage": s.Tiles.Stages[StageGlobal],
			"variables":   len(outTile),
		}).Info("filled new tiles")
	}
	for name, data := range outTile {
		v := in.Variables[name]
		o.AddVariable(name, tileDims, v.Description, v.Units, data)
	}
	return o, s, nil
}

// addCoordinates adds longitude, latitude, and vegetation type coordinate
// variables to d. Longitudes are evenly spaced starting at 0 and
// excluding 360; latitudes are evenly spaced from -90 to 90 inclusive.
func addCoordinates(d *Dataset, nVeg, nLat, nLon int) {
	lon := sparse.ZerosDense(nLon)
	lonEdges := make([]float64, nLon+1)
	floats.Span(lonEdges, 0, 360)
	copy(lon.Elements, lonEdges[:nLon])
	d.AddVariable("lon", []string{"lon"}, "longitude", "degrees_east", lon)

	lat := sparse.ZerosDense(nLat)
	if nLat > 1 {
		floats.Span(lat.Elements, -90, 90)
	} else {
		lat.Elements[0] = -90
	}
	d.AddVariable("lat", []string{"lat"}, "latitude", "degrees_north", lat)

	veg := sparse.ZerosDense(nVeg)
	for i := range veg.Elements {
		veg.Elements[i] = float64(i + 1)
	}
	d.AddVariable("veg", []string{"veg"}, "vegetation type", "1", veg)
}

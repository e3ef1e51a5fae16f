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
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Variable is a named array in a Dataset.
type Variable struct {
	Dims        []string           // netcdf dimensions for this variable
	Description string             // variable description
	Units       string             // variable units
	Data        *sparse.DenseArray // variable data; missing values are NaN
}

// Dataset holds a set of gridded variables, such as the contents
// of a restart file.
type Dataset struct {
	// Attributes holds global attributes.
	Attributes map[string]string

	// Variables maps variable names to their data.
	Variables map[string]*Variable
}

// NewDataset returns an empty Dataset.
func NewDataset() *Dataset {
	return &Dataset{
		Attributes: make(map[string]string),
		Variables:  make(map[string]*Variable),
	}
}

// AddVariable adds data for a new variable to d, replacing any existing
// variable with the same name.
func (d *Dataset) AddVariable(name string, dims []string, description, units string, data *sparse.DenseArray) {
	if d.Variables == nil {
		d.Variables = make(map[string]*Variable)
	}
	d.Variables[name] = &Variable{
		Dims:        dims,
		Description: description,
		Units:       units,
		Data:        data,
	}
}

// Names returns the sorted variable names.
func (d *Dataset) Names() []string {
	names := make([]string, 0, len(d.Variables))
	for n := range d.Variables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoadDataset reads every numeric variable from a NetCDF classic file.
// Values equal to a variable's _FillValue or missing_value attribute, or
// with magnitude of at least 1e19, are stored as NaN. Only the first
// record of record variables is read.
func LoadDataset(rw cdf.ReaderWriterAt) (*Dataset, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("vegremap: opening dataset: %v", err)
	}
	d := NewDataset()
	for _, a := range f.Header.Attributes("") {
		if s, ok := f.Header.GetAttribute("", a).(string); ok {
			d.Attributes[a] = s
		}
	}
	for _, v := range f.Header.Variables() {
		data, err := readVar(f, v)
		if err != nil {
			return nil, fmt.Errorf("vegremap: reading variable %s: %v", v, err)
		}
		if data == nil {
			continue // Not a numeric array.
		}
		desc := stringAttribute(f, v, "description")
		if desc == "" {
			desc = stringAttribute(f, v, "long_name")
		}
		d.AddVariable(v, f.Header.Dimensions(v), desc, stringAttribute(f, v, "units"), data)
	}
	return d, nil
}

// LoadVegetationFractions reads vegetation fractions from variable varName
// in a NetCDF classic file. The variable may have dimensions
// (veg, lat, lon), or (time, veg, lat, lon), in which case the first time
// is used. Missing values are NaN.
func LoadVegetationFractions(rw cdf.ReaderWriterAt, varName string) (*sparse.DenseArray, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("vegremap: opening vegetation fractions: %v", err)
	}
	lengths := f.Header.Lengths(varName)
	if lengths == nil {
		return nil, fmt.Errorf("vegremap: vegetation fraction file has no variable %q", varName)
	}
	switch len(lengths) {
	case 3:
		if f.Header.IsRecordVariable(varName) {
			return nil, fmt.Errorf("%w: vegetation fraction variable %q has a record dimension but only 3 dimensions",
				ErrShape, varName)
		}
	case 4:
	default:
		return nil, fmt.Errorf("%w: vegetation fraction variable %q must have dimensions (veg, lat, lon) or (time, veg, lat, lon) but has %d dimensions",
			ErrShape, varName, len(lengths))
	}
	data, err := readVar(f, varName)
	if err != nil {
		return nil, fmt.Errorf("vegremap: reading vegetation fractions: %v", err)
	}
	if data == nil {
		return nil, fmt.Errorf("vegremap: vegetation fraction variable %q is not numeric", varName)
	}
	if len(data.Shape) == 4 {
		shape := data.Shape[1:]
		o := sparse.ZerosDense(shape...)
		copy(o.Elements, data.Elements[:len(o.Elements)])
		return o, nil
	}
	return data, nil
}

// readVar reads variable v, converting it to float64 and replacing missing
// values with NaN. For record variables only the first record is read.
// It returns nil if v is a character array or a scalar.
func readVar(f *cdf.File, v string) (*sparse.DenseArray, error) {
	dims := append([]int{}, f.Header.Lengths(v)...)
	if len(dims) == 0 {
		return nil, nil
	}
	var r cdf.Reader
	if f.Header.IsRecordVariable(v) {
		dims[0] = 1
		begin := make([]int, len(dims))
		end := make([]int, len(dims))
		for i, l := range dims {
			end[i] = l - 1
		}
		r = f.Reader(v, begin, end)
	} else {
		r = f.Reader(v, nil, nil)
	}
	n := 1
	for _, l := range dims {
		n *= l
	}
	if n == 0 {
		return nil, nil
	}
	buf := r.Zero(n)
	if _, ok := buf.([]uint8); ok {
		return nil, nil
	}
	if _, err := r.Read(buf); err != nil {
		return nil, err
	}
	data := sparse.ZerosDense(dims...)
	switch b := buf.(type) {
	case []float64:
		copy(data.Elements, b)
	case []float32:
		for i, x := range b {
			data.Elements[i] = float64(x)
		}
	case []int32:
		for i, x := range b {
			data.Elements[i] = float64(x)
		}
	case []int16:
		for i, x := range b {
			data.Elements[i] = float64(x)
		}
	default:
		return nil, fmt.Errorf("unsupported data type %T", buf)
	}

	missing := []float64{}
	for _, a := range []string{"_FillValue", "missing_value"} {
		if m, ok := numericAttribute(f, v, a); ok {
			missing = append(missing, m)
		}
	}
	for i, x := range data.Elements {
		if math.Abs(x) >= fillThreshold {
			data.Elements[i] = math.NaN()
			continue
		}
		for _, m := range missing {
			if x == m {
				data.Elements[i] = math.NaN()
				break
			}
		}
	}
	return data, nil
}

// numericAttribute returns the first value of numeric attribute a of
// variable v.
func numericAttribute(f *cdf.File, v, a string) (float64, bool) {
	switch x := f.Header.GetAttribute(v, a).(type) {
	case []float32:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []float64:
		if len(x) > 0 {
			return x[0], true
		}
	case []int32:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []int16:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	}
	return 0, false
}

func stringAttribute(f *cdf.File, v, a string) string {
	s, _ := f.Header.GetAttribute(v, a).(string)
	return s
}

// Write writes d to w in NetCDF classic format. Dimension lengths are taken
// from the variables that use them. Missing (NaN) values are written
// as FillValue.
func (d *Dataset) Write(w *os.File) error {
	names := d.Names()

	var dims []string
	lengths := make(map[string]int)
	for _, name := range names {
		v := d.Variables[name]
		if len(v.Dims) != len(v.Data.Shape) {
			return fmt.Errorf("%w: variable %s has dimensions %v but shape %v", ErrShape, name, v.Dims, v.Data.Shape)
		}
		for i, dim := range v.Dims {
			l, ok := lengths[dim]
			if !ok {
				dims = append(dims, dim)
				lengths[dim] = v.Data.Shape[i]
			} else if l != v.Data.Shape[i] {
				return fmt.Errorf("%w: dimension %s has length %d for variable %s but %d elsewhere",
					ErrShape, dim, v.Data.Shape[i], name, l)
			}
		}
	}
	dimLengths := make([]int, len(dims))
	for i, dim := range dims {
		dimLengths[i] = lengths[dim]
	}

	h := cdf.NewHeader(dims, dimLengths)

	// Sort the attributes so they write in the same order every time.
	attrs := make([]string, 0, len(d.Attributes))
	for a := range d.Attributes {
		attrs = append(attrs, a)
	}
	sort.Strings(attrs)
	for _, a := range attrs {
		h.AddAttribute("", a, d.Attributes[a])
	}

	for _, name := range names {
		v := d.Variables[name]
		h.AddVariable(name, v.Dims, []float32{0})
		h.AddAttribute(name, "description", v.Description)
		h.AddAttribute(name, "units", v.Units)
		h.AddAttribute(name, "_FillValue", []float32{FillValue})
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return fmt.Errorf("vegremap: creating netcdf file: %v", err)
	}
	for _, name := range names {
		if err = writeNCF(f, name, d.Variables[name].Data); err != nil {
			return fmt.Errorf("vegremap: writing variable %s to netcdf file: %v", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

func writeNCF(f *cdf.File, name string, data *sparse.DenseArray) error {
	// Check that data matches dimensions.
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}

	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		if math.IsNaN(e) {
			data32[i] = FillValue
		} else {
			data32[i] = float32(e)
		}
	}
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	_, err := f.Writer(name, start, end).Write(data32)
	return err
}

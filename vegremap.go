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

// Package vegremap adjusts the tiled state of a land-surface model restart
// so that it is consistent with a new vegetation classification.
//
// Each grid cell of a restart is divided into tiles, one per vegetation
// type, and tile-scale state variables (soil temperature, canopy water,
// snow and so on) only have meaningful values where the corresponding tile
// fraction is non-zero. When the vegetation fractions change, tiles that
// appear need plausible state and tiles that disappear need to be cleared.
// Per-tile variables are filled from the nearest active tiles of a
// compatible vegetation type, found by progressively widening a search
// region around the cell. Per-cell variables are filled with the
// area-weighted grid-cell mean.
package vegremap

import "errors"

// Version gives the version number.
const Version = "0.1.0"

const (
	// FractionVariable is the name of the restart variable that holds the
	// current vegetation tile fractions.
	FractionVariable = "FRACTIONS OF SURFACE TYPES"

	// PreviousFractionVariable is the name of the restart variable that
	// holds the tile fractions of the previous year. It is overwritten with
	// the new fractions so that the model does not treat the change as
	// land-use change.
	PreviousFractionVariable = "PREVIOUS YEAR SURF FRACTIONS (TILES)"

	// FillValue is written to output files in place of missing values.
	FillValue = 1.0e20

	// fillThreshold is the magnitude above which input values are treated
	// as missing when a file does not declare its fill value.
	fillThreshold = 1.0e19
)

var (
	// ErrConfiguration is returned, wrapped, when a mapping configuration
	// is invalid.
	ErrConfiguration = errors.New("vegremap: invalid configuration")

	// ErrShape is returned, wrapped, when array shapes are inconsistent
	// with each other.
	ErrShape = errors.New("vegremap: inconsistent array shape")
)

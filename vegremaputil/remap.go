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

package vegremaputil

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/vegremap"
	"github.com/spatialmodel/vegremap/internal/hash"
	"github.com/spf13/cobra"
)

// inputs holds the loaded inputs of a run.
type inputs struct {
	in      *vegremap.Dataset
	outFrac *sparse.DenseArray
	mapping *vegremap.MappingConfig
}

// loadInputs downloads, if necessary, and reads the restart file, the new
// vegetation fractions, and the mapping configuration named in rc.
func loadInputs(ctx context.Context, rc *RunConfig, log logrus.FieldLogger) (*inputs, error) {
	var err error
	d := new(inputs)

	log.WithField("file", rc.MappingFile).Info("reading mapping configuration")
	mappingFile, err := maybeDownload(ctx, rc.MappingFile, log)
	if err != nil {
		return nil, err
	}
	if d.mapping, err = vegremap.ReadMappingConfig(mappingFile); err != nil {
		return nil, err
	}

	log.WithField("file", rc.InputFile).Info("reading restart file")
	inputFile, err := maybeDownload(ctx, rc.InputFile, log)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(inputFile)
	if err != nil {
		return nil, fmt.Errorf("vegremap: opening restart file: %v", err)
	}
	defer f.Close()
	if d.in, err = vegremap.LoadDataset(f); err != nil {
		return nil, fmt.Errorf("vegremap: reading restart file %s: %w", rc.InputFile, err)
	}

	log.WithFields(logrus.Fields{
		"file":     rc.VegetationMapFile,
		"variable": rc.FractionVariable,
	}).Info("reading new vegetation fractions")
	vegFile, err := maybeDownload(ctx, rc.VegetationMapFile, log)
	if err != nil {
		return nil, err
	}
	g, err := os.Open(vegFile)
	if err != nil {
		return nil, fmt.Errorf("vegremap: opening vegetation map file: %v", err)
	}
	defer g.Close()
	if d.outFrac, err = vegremap.LoadVegetationFractions(g, rc.FractionVariable); err != nil {
		return nil, fmt.Errorf("vegremap: reading vegetation map file %s: %w", rc.VegetationMapFile, err)
	}
	return d, nil
}

// mappingFingerprint is the part of a run's configuration that determines
// how new tiles are filled.
type mappingFingerprint struct {
	Mapping vegremap.VegetationMapping
	Search  vegremap.SearchConfig
	PerCell []string
	PerTile []string
}

// Remap runs a remapping as configured by rc, writing log messages to the
// command's output and to rc.LogFile.
func Remap(ctx context.Context, cmd *cobra.Command, rc *RunConfig) error {
	startTime := time.Now()
	upload := new(uploader)

	logfile, err := os.Create(upload.maybeUpload(rc.LogFile))
	if err != nil {
		return fmt.Errorf("vegremap: problem creating log file: %v", err)
	}
	log := newLogger(io.MultiWriter(cmd.OutOrStderr(), logfile), rc.Verbose)

	if err = remap(ctx, rc, upload, log); err != nil {
		log.WithError(err).Error("remapping failed")
		logfile.Close()
		return err
	}
	log.WithField("duration", time.Since(startTime).String()).Info("remapping complete")
	if err = logfile.Close(); err != nil {
		return fmt.Errorf("vegremap: closing log file: %v", err)
	}
	// The log file is closed by now.
	return upload.uploadOutput(ctx, newLogger(cmd.OutOrStderr(), rc.Verbose))
}

func remap(ctx context.Context, rc *RunConfig, upload *uploader, log *logrus.Logger) error {
	d, err := loadInputs(ctx, rc, log)
	if err != nil {
		return err
	}
	r := &vegremap.Remapper{Log: log, Workers: rc.Workers}
	o, s, err := r.Remap(d.in, d.outFrac, d.mapping, rc.FillAll)
	if err != nil {
		return err
	}
	stampProvenance(o, rc, mappingFingerprint{
		Mapping: s.Mapping,
		Search:  s.Search,
		PerCell: d.mapping.PerCell,
		PerTile: d.mapping.PerTile,
	})

	outputFile := upload.maybeUpload(rc.OutputFile)
	if upload.err != nil {
		return upload.err
	}
	log.WithField("file", rc.OutputFile).Info("writing remapped restart file")
	w, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("vegremap: creating output file: %v", err)
	}
	if err = o.Write(w); err != nil {
		w.Close()
		return err
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("vegremap: closing output file: %v", err)
	}
	return nil
}

// stampProvenance records in the global attributes of o how it was created.
func stampProvenance(o *vegremap.Dataset, rc *RunConfig, fp mappingFingerprint) {
	entry := fmt.Sprintf("%s: vegremap remap -i %s -m %s -c %s -o %s",
		time.Now().UTC().Format(time.RFC3339), rc.InputFile, rc.VegetationMapFile,
		rc.MappingFile, rc.OutputFile)
	if rc.FillAll {
		entry += " --fill-all"
	}
	if h := strings.TrimSpace(o.Attributes["history"]); h != "" {
		entry += "\n" + h
	}
	o.Attributes["history"] = entry
	o.Attributes["vegremap_version"] = vegremap.Version
	o.Attributes["input_file"] = rc.InputFile
	o.Attributes["vegetation_map_file"] = rc.VegetationMapFile
	o.Attributes["mapping_hash"] = hash.Hash(fp)
	o.Attributes["fill_all"] = fmt.Sprint(rc.FillAll)
}

// Plan reports the number of tiles of each output vegetation type that a
// remapping configured by rc would fill and empty.
func Plan(ctx context.Context, cmd *cobra.Command, rc *RunConfig) error {
	log := newLogger(cmd.OutOrStderr(), rc.Verbose)
	d, err := loadInputs(ctx, rc, log)
	if err != nil {
		return err
	}
	r := &vegremap.Remapper{Log: log}
	s, err := r.Plan(d.in, d.outFrac, d.mapping, rc.FillAll)
	if err != nil {
		return err
	}
	return writePlan(cmd.OutOrStdout(), s)
}

// writePlan writes a table of the tiles to fill and empty to w.
func writePlan(w io.Writer, s *vegremap.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "veg\tfill\tempty\t")
	for v := 0; v < s.NVegOut; v++ {
		fmt.Fprintf(tw, "%d\t%d\t%d\t\n", v+1, s.FillByVeg[v], s.EmptyByVeg[v])
	}
	fmt.Fprintf(tw, "total\t%d\t%d\t\n", s.TilesToFill, s.TilesToEmpty)
	return tw.Flush()
}

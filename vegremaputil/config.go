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
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/vegremap/cloud"
	"github.com/spf13/cast"
)

// RunConfig holds the settings for a single remap or plan run.
type RunConfig struct {
	InputFile         string
	OutputFile        string
	VegetationMapFile string
	FractionVariable  string
	MappingFile       string
	LogFile           string
	FillAll           bool
	Verbose           bool
	Workers           int
}

// runConfig reads a RunConfig from cfg. If needOutput is false, the
// output and log file settings are ignored.
func runConfig(cfg *viper.Viper, needOutput bool) (*RunConfig, error) {
	rc := new(RunConfig)
	var err error
	if rc.InputFile, err = checkInputFile("input", cfg.GetString("input")); err != nil {
		return nil, err
	}
	if rc.VegetationMapFile, err = checkInputFile("vegetation_map", cfg.GetString("vegetation_map")); err != nil {
		return nil, err
	}
	if rc.MappingFile, err = checkInputFile("mapping", cfg.GetString("mapping")); err != nil {
		return nil, err
	}
	rc.FractionVariable = cfg.GetString("fraction_variable")
	if rc.FractionVariable == "" {
		return nil, fmt.Errorf("vegremap: the fraction_variable configuration variable must not be empty")
	}
	if rc.FillAll, err = cast.ToBoolE(cfg.Get("fill-all")); err != nil {
		return nil, fmt.Errorf("vegremap: reading fill-all: %v", err)
	}
	if rc.Verbose, err = cast.ToBoolE(cfg.Get("verbose")); err != nil {
		return nil, fmt.Errorf("vegremap: reading verbose: %v", err)
	}
	if !needOutput {
		return rc, nil
	}
	if rc.Workers, err = cast.ToIntE(cfg.Get("workers")); err != nil {
		return nil, fmt.Errorf("vegremap: reading workers: %v", err)
	}
	if rc.OutputFile, err = checkOutputFile(cfg.GetString("output")); err != nil {
		return nil, err
	}
	rc.LogFile = checkLogFile(os.ExpandEnv(cfg.GetString("LogFile")), rc.OutputFile)
	return rc, nil
}

// checkInputFile expands any environment variables in the input file
// path f and makes sure that it has been specified.
func checkInputFile(name, f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("vegremap: you need to specify the %s configuration variable", name)
	}
	return os.ExpandEnv(f), nil
}

// checkOutputFile expands any environment variables in the output file path
// and makes sure that the location it will be written to exists.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`vegremap: you need to specify an output file configuration variable (for example: output="restart_new.nc")`)
	}
	f = os.ExpandEnv(f)
	if cloud.IsBlob(f) {
		url, err := url.Parse(f)
		if err != nil {
			return f, err
		}
		_, err = cloud.OpenBucket(context.TODO(), url.Scheme+"://"+url.Host)
		if err != nil {
			return f, fmt.Errorf("vegremap: error when checking output location: %v", err)
		}
		return f, nil
	}
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("vegremap: the output directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return logFile
}

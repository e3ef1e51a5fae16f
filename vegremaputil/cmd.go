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

// Package vegremaputil contains the command-line interface for vegremap.
package vegremaputil

import (
	"context"
	"fmt"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/vegremap"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to vegremap.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the location of a run configuration file
              holding values for any of the other options.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "verbose",
			usage: `
              verbose specifies whether to log details about every tile
              that could not be filled.`,
			shorthand:  "v",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "input",
			usage: `
              input specifies the path to the NetCDF restart file to be
              remapped. It can be a local path, an http(s) URL, or a blob
              storage location (gs://, s3://, or file://).`,
			shorthand:  "i",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{remapCmd.Flags(), planCmd.Flags()},
		},
		{
			name: "output",
			usage: `
              output specifies the path where the remapped restart file
              should be written. It can be a local path or a blob storage
              location.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{remapCmd.Flags()},
		},
		{
			name: "vegetation_map",
			usage: `
              vegetation_map specifies the path to the NetCDF file holding
              the new vegetation fractions.`,
			shorthand:  "m",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{remapCmd.Flags(), planCmd.Flags()},
		},
		{
			name: "fraction_variable",
			usage: `
              fraction_variable specifies the name of the variable in the
              vegetation_map file that holds the vegetation fractions.`,
			defaultVal: "fraction",
			flagsets:   []*pflag.FlagSet{remapCmd.Flags(), planCmd.Flags()},
		},
		{
			name: "mapping",
			usage: `
              mapping specifies the path to the YAML or TOML mapping
              configuration, which lists the per_cell and per_tile variables
              and optionally the vegetation_map and search parameters.`,
			shorthand:  "c",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{remapCmd.Flags(), planCmd.Flags()},
		},
		{
			name: "fill-all",
			usage: `
              fill-all specifies whether to fill every tile with no input
              fraction, rather than only the tiles that become active in the
              new vegetation fractions. With fill-all, no tiles are emptied.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{remapCmd.Flags(), planCmd.Flags()},
		},
		{
			name: "workers",
			usage: `
              workers specifies the number of concurrent workers used to fill
              per-tile variables. Zero or less means one per processor.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{remapCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile specifies the path to the desired logfile location. It
              can include environment variables. If LogFile is left blank,
              the logfile will be saved in the same location as the output
              file with a .log extension.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{remapCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("VEGREMAP")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(remapCmd)
	Root.AddCommand(planCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("vegremap: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "vegremap",
	Short: "Remap land-surface restart tiles onto new vegetation fractions.",
	Long: `vegremap adjusts the tiled state of a land-surface model restart so that
it is consistent with a new vegetation classification. Tiles that become
active are filled from nearby active tiles of the same or a mapped
vegetation type, and tiles that disappear are cleared.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'VEGREMAP_var' where 'var' is the
name of the variable to be set. File paths are additionally allowed to contain
environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of vegremap.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("vegremap v%s\n", vegremap.Version)
	},
	DisableAutoGenTag: true,
}

// remapCmd is a command that remaps a restart file.
var remapCmd = &cobra.Command{
	Use:   "remap",
	Short: "Remap a restart file onto new vegetation fractions.",
	Long: `remap reads a NetCDF restart file and a file of new vegetation fractions,
fills the per-cell and per-tile variables named in the mapping configuration
for tiles that become active, clears tiles that disappear, and writes the
result to a new NetCDF file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := runConfig(Cfg, true)
		if err != nil {
			return err
		}
		return Remap(context.Background(), cmd, rc)
	},
	DisableAutoGenTag: true,
}

// planCmd is a command that reports what remap would change.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Report which tiles would be filled and emptied.",
	Long: `plan checks the restart file, the new vegetation fractions, and the mapping
configuration, and prints the number of tiles of each output vegetation type
that remap would fill and empty, without writing any files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := runConfig(Cfg, false)
		if err != nil {
			return err
		}
		return Plan(context.Background(), cmd, rc)
	},
	DisableAutoGenTag: true,
}

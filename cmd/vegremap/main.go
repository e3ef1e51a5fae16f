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

// Command vegremap is a command-line interface for remapping land-surface
// restart tiles onto new vegetation fractions.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/vegremap/vegremaputil"
)

func main() {
	if err := vegremaputil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}

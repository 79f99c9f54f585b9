/*
Copyright © 2024 the THAMES authors.
This file is part of THAMES.

THAMES is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

THAMES is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with THAMES.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command thames is a command-line interface for the THAMES cement
// microstructure model.
package main

import (
	"os"

	"github.com/thamesmodel/thames/thamesutil"
)

func main() {
	if err := thamesutil.Root.Execute(); err != nil {
		os.Exit(1)
	}
}

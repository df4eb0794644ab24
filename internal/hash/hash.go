/*
Copyright © 2026 the Regrid authors.
This file is part of Regrid.

Regrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Regrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Regrid.  If not, see <http://www.gnu.org/licenses/>.*/

// Package hash creates stable structural hash keys for Go objects.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// Key returns a hash key built from the structural content of the
// given objects. Two calls with deeply-equal arguments return the
// same key, within and across processes.
func Key(objects ...interface{}) string {
	h := fnv.New128a()
	for _, object := range objects {
		if s, ok := object.(fmt.Stringer); ok {
			fmt.Fprint(h, s.String())
			continue
		}
		e := gob.NewEncoder(h)
		if err := e.Encode(object); err != nil {
			// Not everything is gob-encodable; fall back to a
			// deterministic text rendering.
			printer := spew.ConfigState{
				Indent:                  " ",
				SortKeys:                true,
				DisableMethods:          true,
				SpewKeys:                true,
				DisablePointerAddresses: true,
				DisableCapacities:       true,
			}
			printer.Fprintf(h, "%#v", object)
		}
	}
	b := h.Sum(nil)
	return fmt.Sprintf("%x", b[0:h.Size()])
}

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

package hash

import "testing"

type settings struct {
	Mapping [][]int
	Radius  int
}

func TestHash(t *testing.T) {
	a := Hash(settings{Mapping: [][]int{{0, 1}, {2}}, Radius: 2})
	b := Hash(settings{Mapping: [][]int{{0, 1}, {2}}, Radius: 2})
	c := Hash(settings{Mapping: [][]int{{0}, {1, 2}}, Radius: 2})
	if a != b {
		t.Errorf("equal values should have equal hashes: %s != %s", a, b)
	}
	if a == c {
		t.Errorf("different values should have different hashes: %s", a)
	}
	if len(a) != 32 {
		t.Errorf("want a 128-bit hex hash but have %q", a)
	}
}

func TestHashFallback(t *testing.T) {
	// gob cannot encode channels.
	type withChan struct{ C chan int }
	a := Hash(withChan{})
	if a != Hash(withChan{}) {
		t.Error("fallback hash should be deterministic")
	}
}

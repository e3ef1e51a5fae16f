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

package cloud

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestBlobRoundTrip(t *testing.T) {
	os.Mkdir("testbucket", os.ModePerm)
	defer os.RemoveAll("testbucket")
	ctx := context.Background()

	if err := WriteBlob(ctx, "file://testbucket/restart.nc", strings.NewReader("restart data")); err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	if err := ReadBlob(ctx, "file://testbucket/restart.nc", &b); err != nil {
		t.Fatal(err)
	}
	if have := b.String(); have != "restart data" {
		t.Errorf("want %q but have %q", "restart data", have)
	}
	if err := ReadBlob(ctx, "file://testbucket/missing.nc", &b); !errors.Is(err, ErrNotExist) {
		t.Errorf("reading a missing blob should return ErrNotExist but returned %v", err)
	}
}

func TestOpenBucketErrors(t *testing.T) {
	if _, err := OpenBucket(context.Background(), "ftp://bucket"); err == nil {
		t.Error("want an error for an invalid provider")
	}
	if _, err := OpenBucket(context.Background(), "file://no-such-bucket"); err == nil {
		t.Error("want an error for a missing file bucket directory")
	}
}

func TestIsBlob(t *testing.T) {
	for path, want := range map[string]bool{
		"gs://bucket/file.nc": true,
		"s3://bucket/file.nc": true,
		"file://dir/file.nc":  true,
		"/tmp/file.nc":        false,
		"http://host/file.nc": false,
		"ftp://host/file.nc":  false,
	} {
		if have := IsBlob(path); have != want {
			t.Errorf("%s: want %v but have %v", path, want, have)
		}
	}
}

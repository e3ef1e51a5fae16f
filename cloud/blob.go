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
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/go-cloud/blob"
)

// ErrNotExist is returned by ReadBlob when the requested blob does not exist.
var ErrNotExist = errors.New("cloud: blob does not exist")

// ReadBlob copies the blob at blobURL (for example "gs://bucket/file.nc")
// to w.
func ReadBlob(ctx context.Context, blobURL string, w io.Writer) error {
	bucket, key, err := splitBlobURL(ctx, blobURL)
	if err != nil {
		return err
	}
	r, err := bucket.NewReader(ctx, key)
	if blob.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotExist, blobURL)
	} else if err != nil {
		return fmt.Errorf("cloud: reading blob key %s: %v", key, err)
	}
	defer r.Close()
	if _, err = io.Copy(w, r); err != nil {
		return fmt.Errorf("cloud: reading blob key %s: %v", key, err)
	}
	return nil
}

// WriteBlob copies the contents of r to the blob at blobURL.
func WriteBlob(ctx context.Context, blobURL string, r io.Reader) error {
	bucket, key, err := splitBlobURL(ctx, blobURL)
	if err != nil {
		return err
	}
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("cloud: creating writer for blob %s: %v", key, err)
	}
	if _, err = io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("cloud: copying blob %s: %v", key, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("cloud: writing blob %s: %v", key, err)
	}
	return nil
}

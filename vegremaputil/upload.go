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
	"path"
	"path/filepath"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/vegremap/cloud"
)

type uploader struct {
	// files is a set of file path pairs. The first of each pair
	// is a local file path and the second is a blob storage
	// path where it should be uploaded to.
	files [][2]string
	err   error
	dir   string
}

// uploadOutput copies every file registered by maybeUpload to its
// blob storage location, retrying failed uploads.
func (u *uploader) uploadOutput(ctx context.Context, log logrus.FieldLogger) error {
	if u.err != nil {
		return u.err
	}
	for _, files := range u.files {
		local, blobURL := files[0], files[1]
		err := retry(ctx, log, blobURL, func() error {
			return upload(ctx, local, blobURL)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func upload(ctx context.Context, local, blobURL string) error {
	r, err := os.Open(local)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("vegremap: opening file '%s' for upload: %s", local, err))
	}
	defer r.Close()
	if err := cloud.WriteBlob(ctx, blobURL, r); err != nil {
		return fmt.Errorf("vegremap: uploading file '%s' to '%s': %s", local, blobURL, err)
	}
	return nil
}

// maybeUpload checks whether the given output file path refers to
// a blob storage location. If it does, then a temporary file location
// is returned. The file will then be uploaded to blob storage when
// uploadOutput method is run.
func (u *uploader) maybeUpload(p string) string {
	if u.err != nil {
		return ""
	}
	if !cloud.IsBlob(p) {
		return p
	}
	if u.dir == "" {
		u.dir, u.err = os.MkdirTemp("", "vegremap")
		if u.err != nil {
			return ""
		}
	}
	name := p
	if parsed, err := url.Parse(p); err == nil {
		name = parsed.Path
	}
	local := filepath.Join(u.dir, path.Base(name))
	u.files = append(u.files, [2]string{local, p})
	return local
}

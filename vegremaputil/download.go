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
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/vegremap/cloud"
)

// maybeDownload checks if the input is an existing file locally.
// If not, it checks if the file is an http(s) URL or a blob storage
// location, downloads it into a temporary directory, and
// returns the path to the downloaded file. Other paths are returned
// unchanged so that opening them reports a useful error.
// Failed downloads are retried, with retries logged to log.
func maybeDownload(ctx context.Context, p string, log logrus.FieldLogger) (string, error) {
	// Check if local file exists. If it does, return the given path.
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		return p, nil
	}
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return downloadHTTP(ctx, p, log)
	}
	if cloud.IsBlob(p) {
		return downloadBlob(ctx, p, log)
	}
	return p, nil
}

// downloadHTTP downloads a file from the specified URL and returns
// the path to the downloaded file.
func downloadHTTP(ctx context.Context, p string, log logrus.FieldLogger) (string, error) {
	u, err := url.Parse(p)
	if err != nil {
		return "", fmt.Errorf("vegremap: parsing download url: %v", err)
	}
	fname, err := tempPath(path.Base(u.Path))
	if err != nil {
		return "", err
	}
	err = retry(ctx, log, p, func() error {
		return writeFile(fname, func(w io.Writer) error {
			return getHTTP(ctx, p, w)
		})
	})
	if err != nil {
		return "", err
	}
	return fname, nil
}

// getHTTP copies the body of a GET request for p to w. Client errors
// (4xx responses) are permanent; other failures may be retried.
func getHTTP(ctx context.Context, p string, w io.Writer) error {
	req, err := http.NewRequest(http.MethodGet, p, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("vegremap: preparing download of %s: %v", p, err))
	}
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("vegremap: downloading %s: %v", p, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return backoff.Permanent(fmt.Errorf("vegremap: downloading %s: %s", p, resp.Status))
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vegremap: downloading %s: %s", p, resp.Status)
	}
	if _, err = io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("vegremap: downloading %s: %v", p, err)
	}
	return nil
}

// downloadBlob downloads the specified file from blob storage.
// A missing blob is not retried.
func downloadBlob(ctx context.Context, p string, log logrus.FieldLogger) (string, error) {
	u, err := url.Parse(p)
	if err != nil {
		return "", fmt.Errorf("vegremap: parsing blob url: %v", err)
	}
	fname, err := tempPath(path.Base(u.Path))
	if err != nil {
		return "", err
	}
	err = retry(ctx, log, p, func() error {
		return writeFile(fname, func(w io.Writer) error {
			err := cloud.ReadBlob(ctx, p, w)
			if errors.Is(err, cloud.ErrNotExist) {
				return backoff.Permanent(err)
			}
			return err
		})
	})
	if err != nil {
		return "", err
	}
	return fname, nil
}

// tempPath creates a new temporary directory and returns the path of
// a file called name within it.
func tempPath(name string) (string, error) {
	dir, err := os.MkdirTemp("", "vegremap")
	if err != nil {
		return "", fmt.Errorf("vegremap: failed creating temporary download directory: %v", err)
	}
	if name == "" || name == "/" || name == "." {
		name = "download.nc"
	}
	return filepath.Join(dir, name), nil
}

// writeFile creates or truncates fname and fills it using fill. Errors
// returned by fill are passed through unchanged so that permanent
// failures stop any retries.
func writeFile(fname string, fill func(io.Writer) error) error {
	w, err := os.Create(fname)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("vegremap: failed creating file for download: %v", err))
	}
	if err = fill(w); err != nil {
		w.Close()
		return err
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("vegremap: closing downloaded file: %v", err)
	}
	return nil
}

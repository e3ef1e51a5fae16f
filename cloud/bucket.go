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

// Package cloud provides access to restart and land-cover files kept in
// blob storage.
package cloud

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/google/go-cloud/blob"
	"github.com/google/go-cloud/blob/fileblob"
	"github.com/google/go-cloud/blob/gcsblob"
	"github.com/google/go-cloud/blob/s3blob"
	"github.com/google/go-cloud/gcp"
)

// IsBlob reports whether path is a URL with a supported blob storage
// scheme.
func IsBlob(path string) bool {
	u, err := url.Parse(path)
	if err != nil {
		return false
	}
	_, ok := providers[u.Scheme]
	return ok
}

// providers opens a bucket by name for each supported URL scheme.
var providers = map[string]func(ctx context.Context, name string) (*blob.Bucket, error){
	// A file bucket is a directory relative to the working directory,
	// mainly for testing.
	"file": func(_ context.Context, dir string) (*blob.Bucket, error) {
		return fileblob.NewBucket(dir)
	},
	"gs": gsBucket,
	"s3": s3Bucket,
}

// OpenBucket opens the bucket named by bucketURL, which has the form
// "scheme://bucket". Any path after the bucket name is ignored.
// Supported schemes are file, gs and s3.
func OpenBucket(ctx context.Context, bucketURL string) (*blob.Bucket, error) {
	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("cloud: parsing bucket url %s: %v", bucketURL, err)
	}
	open, ok := providers[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("cloud: unsupported blob storage provider %q", u.Scheme)
	}
	b, err := open(ctx, u.Host)
	if err != nil {
		return nil, fmt.Errorf("cloud: opening %s bucket %s: %v", u.Scheme, u.Host, err)
	}
	return b, nil
}

// splitBlobURL opens the bucket of the blob at blobURL and returns it with
// the key of the blob within the bucket.
func splitBlobURL(ctx context.Context, blobURL string) (*blob.Bucket, string, error) {
	u, err := url.Parse(blobURL)
	if err != nil {
		return nil, "", fmt.Errorf("cloud: parsing blob url %s: %v", blobURL, err)
	}
	bucket, err := OpenBucket(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return nil, "", err
	}
	return bucket, strings.TrimPrefix(u.Path, "/"), nil
}

// gsBucket opens a Google Cloud Storage bucket using application default
// credentials.
func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	client, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, name, client)
}

// defaultS3Region is used when AWS_REGION is unset.
const defaultS3Region = "us-east-2"

// s3Bucket opens an S3 bucket with credentials from AWS_ACCESS_KEY_ID and
// AWS_SECRET_ACCESS_KEY, in the region given by AWS_REGION.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = defaultS3Region
	}
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	})
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, sess, name)
}

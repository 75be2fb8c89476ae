// Copyright 2026 The staffauth Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package storage provides access to the Cloud Storage bucket that holds files uploaded by
// staff members.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"

	"cloud.google.com/go/storage"

	"github.com/college-staff-manager/staffauth/internal"
)

// UploadPrefix is the object name prefix of uploaded files.
const UploadPrefix = "uploads/"

// ErrNotPublic is returned by Upload when the object was stored but could not be made
// publicly readable.
var ErrNotPublic = errors.New("object stored but not made public")

// Client uploads files to the default bucket of the project.
type Client struct {
	client *storage.Client
	bucket string
}

// NewClient creates a new instance of the Storage Client.
//
// This function can only be invoked from within the module. Client applications should
// access the Storage service through staffauth.App.
func NewClient(ctx context.Context, c *internal.StorageConfig) (*Client, error) {
	if c.Bucket == "" {
		return nil, errors.New("bucket name not specified")
	}
	client, err := storage.NewClient(ctx, c.Opts...)
	if err != nil {
		return nil, err
	}
	return &Client{client: client, bucket: c.Bucket}, nil
}

// DefaultBucket returns a handle to the default Cloud Storage bucket.
func (c *Client) DefaultBucket() *storage.BucketHandle {
	return c.client.Bucket(c.bucket)
}

// Upload stores the contents of r as UploadPrefix + name and tries to make the object
// publicly readable.
//
// When the object was stored but could not be made public, for instance on buckets with
// uniform bucket-level access, Upload returns an empty URL and an error wrapping both
// ErrNotPublic and the cause.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader, contentType string) (string, error) {
	object := ObjectName(name)
	if object == "" {
		return "", errors.New("object name must not be empty")
	}
	obj := c.DefaultBucket().Object(object)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("uploading %q: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("uploading %q: %w", object, err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrNotPublic, object, err)
	}
	return PublicURL(c.bucket, object), nil
}

// Close releases the resources held by the client.
func (c *Client) Close() error {
	return c.client.Close()
}

// ObjectName maps an uploaded file name to its object name. Directory components of name
// are dropped.
func ObjectName(name string) string {
	base := path.Base(path.Clean("/" + name))
	if base == "/" || base == "." {
		return ""
	}
	return UploadPrefix + base
}

// PublicURL returns the public URL of an object.
func PublicURL(bucket, object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, (&url.URL{Path: object}).EscapedPath())
}

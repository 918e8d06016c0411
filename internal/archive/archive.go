// Copyright 2015 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package archive uploads a finished trace file to S3 after the Logger has
// closed it. This runs strictly after local close, so it never competes
// with the trace file's single-writer-at-a-time discipline, and it never
// puts anything on the wire during tracing -- only the already-closed
// artifact travels, after the fact.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader pushes closed trace files to a single S3 bucket.
type Uploader struct {
	bucket string
	client *s3.Client
}

// NewUploader loads AWS credentials and region from the default SDK chain
// (environment, shared config, EC2/ECS role) and returns an Uploader bound
// to bucket. Returns an error only if the SDK's own config resolution
// fails; it does not reach the network.
func NewUploader(ctx context.Context, bucket string) (*Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: loading AWS config: %w", err)
	}
	return &Uploader{bucket: bucket, client: s3.NewFromConfig(cfg)}, nil
}

// Upload reads path and stores it under its base name as the S3 object
// key, prefixed with prefix if non-empty. The caller is expected to have
// already closed the trace file (sink.Logger.Close) before calling this.
func (u *Uploader) Upload(ctx context.Context, path, prefix string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("archive: opening %s: %w", path, err)
	}
	defer f.Close()

	key := objectKey(path, prefix)

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("archive: uploading %s to s3://%s/%s: %w", path, u.bucket, key, err)
	}
	return nil
}

// objectKey derives the S3 object key for a closed trace file: its base
// name, optionally nested under prefix.
func objectKey(path, prefix string) string {
	key := filepath.Base(path)
	if prefix != "" {
		key = filepath.ToSlash(filepath.Join(prefix, key))
	}
	return key
}

// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package upload copies the daily files to an S3 bucket.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Environment variables read by FromEnv.
const (
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	EnvBucket          = "BUCKET_NAME"
	EnvRegion          = "AWS_REGION"
)

// ErrNoBucket is returned by FromEnv when BUCKET_NAME is not set.
var ErrNoBucket = errors.New("upload: " + EnvBucket + " not set")

// Uploader copies a local file to key.
type Uploader interface {
	Upload(ctx context.Context, localPath, key string) error
}

// putter is the part of manager.Uploader used here.
type putter interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Uploader uploads to one bucket.
type S3Uploader struct {
	Bucket string
	// Prefix is prepended to every key, like "beacon07/".
	Prefix string
	api    putter
}

// FromEnv builds an S3Uploader from the default AWS configuration chain.
// Static credentials from AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY take
// precedence when both are set.
func FromEnv(ctx context.Context, prefix string) (*S3Uploader, error) {
	bucket := os.Getenv(EnvBucket)
	if bucket == "" {
		return nil, ErrNoBucket
	}
	var opts []func(*config.LoadOptions) error
	id, secret := os.Getenv(EnvAccessKeyID), os.Getenv(EnvSecretAccessKey)
	if id != "" && secret != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(id, secret, "")))
	}
	if region := os.Getenv(EnvRegion); region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("upload: aws config: %w", err)
	}
	return New(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// New returns an S3Uploader using client.
func New(client *s3.Client, bucket, prefix string) *S3Uploader {
	return &S3Uploader{Bucket: bucket, Prefix: prefix, api: manager.NewUploader(client)}
}

// Key returns the object key of localPath.
func (u *S3Uploader) Key(localPath string) string {
	return u.Prefix + filepath.Base(localPath)
}

// Upload implements Uploader. An empty key uses Key(localPath).
func (u *S3Uploader) Upload(ctx context.Context, localPath, key string) error {
	if key == "" {
		key = u.Key(localPath)
	}
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer f.Close()
	_, err = u.api.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("upload: s3://%s/%s: %w", u.Bucket, key, err)
	}
	return nil
}

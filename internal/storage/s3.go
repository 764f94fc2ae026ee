package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3API is the subset of the S3 client used here
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store uploads files to a bucket and serves them from BaseURL
type S3Store struct {
	client  S3API
	Bucket  string
	Prefix  string
	BaseURL string
}

// NewS3Store wraps an S3 client. An empty baseURL defaults to the bucket's virtual-hosted endpoint.
func NewS3Store(client S3API, region, bucket, prefix, baseURL string) *S3Store {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3Store{
		client:  client,
		Bucket:  bucket,
		Prefix:  strings.Trim(prefix, "/"),
		BaseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// NewS3StoreFromRegion loads the default AWS credential chain for region
func NewS3StoreFromRegion(ctx context.Context, region, bucket, prefix, baseURL string) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3Store(s3.NewFromConfig(awsCfg), region, bucket, prefix, baseURL), nil
}

// Save implements MediaStore
func (s *S3Store) Save(ctx context.Context, folder, filename string, r io.Reader) (string, error) {
	name := SafeName(filename)
	key := path.Join(s.Prefix, SafeName(folder), uuid.NewString()+"-"+name)

	// the signer needs a length, so plain readers are buffered
	body, ok := r.(io.ReadSeeker)
	if !ok {
		buf, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("read upload: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	in := &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		in.ContentType = aws.String(ct)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.BaseURL + "/" + key, nil
}

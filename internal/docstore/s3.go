package docstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ebuka-ez/TrackX/pkg/domain"
)

// S3 implements Store against an S3-compatible backend (AWS S3 or MinIO).
// Single bucket; object keys are the hex digests of the documents.
type S3 struct {
	client *s3.Client
	bucket string
}

// S3Config holds explicit construction parameters (mostly for tests). For
// production we rely primarily on environment variables.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string // optional; enables custom endpoint (e.g. MinIO)
	AccessKeyID     string // optional (falls back to default credentials chain)
	SecretAccessKey string // optional
	SessionToken    string // optional
	PathStyle       bool
}

// Environment variables:
//
//	TRACKX_DOCSTORE_DRIVER=s3
//	TRACKX_DOCSTORE_S3_BUCKET=<bucket> (required)
//	TRACKX_DOCSTORE_S3_REGION=<region> (default us-east-1)
//	TRACKX_DOCSTORE_S3_ENDPOINT=<url> (optional, for MinIO)
//	TRACKX_DOCSTORE_S3_PATH_STYLE=true|false (default false)
//	AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)

// NewS3 creates an S3 document store from S3Config.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3{client: client, bucket: cfg.Bucket}, nil
}

// OpenS3FromEnv constructs an S3 document store from process environment.
func OpenS3FromEnv(ctx context.Context) (*S3, error) {
	bucket := os.Getenv("TRACKX_DOCSTORE_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("TRACKX_DOCSTORE_S3_BUCKET required for s3 driver")
	}
	cfg := S3Config{
		Bucket:    bucket,
		Region:    os.Getenv("TRACKX_DOCSTORE_S3_REGION"),
		Endpoint:  os.Getenv("TRACKX_DOCSTORE_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("TRACKX_DOCSTORE_S3_PATH_STYLE"), "true"),
	}
	return NewS3(ctx, cfg)
}

func (s *S3) Driver() Driver { return DriverS3 }

func (s *S3) Put(ctx context.Context, r io.Reader, contentType string) (Info, error) {
	// Content must be buffered to derive the object key.
	b, err := io.ReadAll(r)
	if err != nil {
		return Info{}, err
	}
	digest := domain.HashBytes(b)
	key := digest.String()
	if info, err := s.Stat(ctx, digest); err == nil {
		return info, nil
	}
	input := &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: bytes.NewReader(b)}
	if contentType != "" {
		input.ContentType = &contentType
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return Info{}, err
	}
	return s.Stat(ctx, digest)
}

func (s *S3) Get(ctx context.Context, digest domain.Digest) (Info, io.ReadCloser, error) {
	key := digest.String()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return Info{}, nil, ErrNotFound
	}
	return infoFromObject(digest, out.ContentLength, out.ContentType, out.LastModified), out.Body, nil
}

func (s *S3) Stat(ctx context.Context, digest domain.Digest) (Info, error) {
	key := digest.String()
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return Info{}, ErrNotFound
	}
	return infoFromObject(digest, out.ContentLength, out.ContentType, out.LastModified), nil
}

func (s *S3) Delete(ctx context.Context, digest domain.Digest) (bool, error) {
	key := digest.String()
	if _, err := s.Stat(ctx, digest); err != nil {
		return false, nil
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *S3) List(ctx context.Context) ([]Info, error) {
	var infos []Info
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket, ContinuationToken: token})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			digest, perr := domain.ParseDigest(aws.ToString(obj.Key))
			if perr != nil {
				// Foreign object in the bucket; not one of ours.
				continue
			}
			var size int64
			if obj.Size != nil {
				size = *obj.Size
			}
			infos = append(infos, Info{Digest: digest, Size: size, StoredAt: aws.ToTime(obj.LastModified)})
		}
		if out.IsTruncated != nil && *out.IsTruncated && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Digest.String() < infos[j].Digest.String() })
	return infos, nil
}

func infoFromObject(digest domain.Digest, contentLength *int64, contentType *string, lastModified *time.Time) Info {
	info := Info{Digest: digest}
	if contentLength != nil {
		info.Size = *contentLength
	}
	if contentType != nil {
		info.ContentType = *contentType
	}
	if lastModified != nil {
		info.StoredAt = *lastModified
	} else {
		info.StoredAt = time.Now().UTC()
	}
	return info
}

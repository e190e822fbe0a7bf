package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
)

// TempUploadPrefix is where anonymous uploads land before intake moves them.
const TempUploadPrefix = "temp/"

// ObjectStorage is the bucket holding submission videos and workflow artifacts.
type ObjectStorage interface {
	// Size returns the stored object's size in bytes, or ErrObjectNotFound.
	Size(ctx context.Context, path string) (int64, error)
	// Move copies src to dst and removes src.
	Move(ctx context.Context, src, dst string) error
	Delete(ctx context.Context, paths []string) error
	PublicURL(path string) string
	// PathFromURL maps a public URL of this bucket back to its object path.
	PathFromURL(rawURL string) (string, bool)
	PresignUpload(ctx context.Context, path string, expires time.Duration) (string, error)
}

type s3Storage struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	publicBase    string
	logger        zerolog.Logger
}

// NewS3Storage wraps an S3-compatible bucket. publicBaseURL is the prefix under which objects
// are publicly readable, without the bucket name.
func NewS3Storage(client *s3.Client, bucket, publicBaseURL string, logger zerolog.Logger) ObjectStorage {
	return &s3Storage{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        bucket,
		publicBase:    strings.TrimRight(publicBaseURL, "/"),
		logger:        logger.With().Str("service", "StorageService").Logger(),
	}
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "404":
			return true
		}
	}
	return false
}

func (s *s3Storage) Size(ctx context.Context, path string) (int64, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, ErrObjectNotFound
		}
		s.logger.Error().Err(err).Str("storage_path", path).Msg("Failed to head object")
		return 0, fmt.Errorf("head object %s: %w", path, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *s3Storage) Move(ctx context.Context, src, dst string) error {
	copySource := fmt.Sprintf("%s/%s", s.bucket, src)
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(copySource),
		Key:        aws.String(dst),
	})
	if err != nil {
		if isNotFound(err) {
			return ErrObjectNotFound
		}
		s.logger.Error().Err(err).Str("source", copySource).Str("target", dst).Msg("Failed to copy object")
		return fmt.Errorf("copy object %s to %s: %w", src, dst, err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(src),
	}); err != nil {
		// The copy is in place; a leftover temp object only costs space.
		s.logger.Warn().Err(err).Str("storage_path", src).Msg("Failed to remove source object after copy")
	}
	return nil
}

func (s *s3Storage) Delete(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	objects := make([]types.ObjectIdentifier, 0, len(paths))
	for _, p := range paths {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(p)})
	}
	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("delete objects: %w", err)
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return fmt.Errorf("delete objects: %d failed, first %s: %s", len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
	}
	return nil
}

func (s *s3Storage) PublicURL(path string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBase, s.bucket, strings.TrimLeft(path, "/"))
}

func (s *s3Storage) PathFromURL(rawURL string) (string, bool) {
	prefix := fmt.Sprintf("%s/%s/", s.publicBase, s.bucket)
	if !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(rawURL, prefix)
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	p, err := url.PathUnescape(rest)
	if err != nil || p == "" {
		return "", false
	}
	return p, true
}

func (s *s3Storage) PresignUpload(ctx context.Context, path string, expires time.Duration) (string, error) {
	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		s.logger.Error().Err(err).Str("object_key", path).Msg("Failed to generate presigned PUT URL")
		return "", fmt.Errorf("failed to generate presigned PUT URL: %w", err)
	}
	return req.URL, nil
}

// Package archive uploads a snapshot directory to S3-compatible object
// storage so a clone run survives the operator's workstation.
package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/edvin/mptclone/internal/snapshot"
)

// Uploader copies snapshot artifacts into a bucket under
// agreements/<AGR-ID>/.
type Uploader struct {
	logger zerolog.Logger
	bucket string
	client *s3.Client
}

// NewUploader builds an uploader for an S3-compatible endpoint with static
// credentials. Path-style addressing keeps it working against MinIO and
// Ceph RGW.
func NewUploader(logger zerolog.Logger, endpoint, bucket, accessKey, secretKey string) *Uploader {
	client := s3.New(s3.Options{
		BaseEndpoint: aws.String(endpoint),
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})
	return &Uploader{
		logger: logger.With().Str("component", "archive").Logger(),
		bucket: bucket,
		client: client,
	}
}

// Upload pushes every artifact file of the store to the bucket. Log files
// are not archived. Returns the number of uploaded objects.
func (u *Uploader) Upload(ctx context.Context, store *snapshot.Store, agreementID string) (int, error) {
	files, err := store.Files()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("nothing to archive in %s", store.Dir())
	}

	uploaded := 0
	for _, name := range files {
		key := path.Join("agreements", agreementID, name)
		if err := u.putFile(ctx, filepath.Join(store.Dir(), name), key); err != nil {
			return uploaded, fmt.Errorf("archive %s: %w", name, err)
		}
		u.logger.Debug().Str("bucket", u.bucket).Str("key", key).Msg("artifact archived")
		uploaded++
	}

	u.logger.Info().Str("bucket", u.bucket).Str("agreement", agreementID).Int("objects", uploaded).
		Msg("snapshot archived")
	return uploaded, nil
}

func (u *Uploader) putFile(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	return err
}

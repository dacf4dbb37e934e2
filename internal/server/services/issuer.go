package services

import (
	"context"
	"time"

	sc "github.com/morlov/photofeed/internal/server/config"
	"github.com/morlov/photofeed/internal/server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// maxCapabilityExpiry is the hard ceiling on capability lifetime. Whatever
// the config says, a write capability never outlives one hour.
const maxCapabilityExpiry = time.Hour

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// CapabilityIssuer mints short-lived write-only capabilities scoped to a
// single object-store key.
type CapabilityIssuer interface {
	IssuePutURL(ctx context.Context, objectKey, contentType string, expiry time.Duration) (*models.UploadCapability, error)
}

// S3CapabilityIssuer issues presigned PUT URLs against an S3-compatible
// object store.
type S3CapabilityIssuer struct {
	config *sc.Config
}

func NewS3CapabilityIssuer(config *sc.Config) *S3CapabilityIssuer {
	return &S3CapabilityIssuer{config: config}
}

func (i *S3CapabilityIssuer) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(i.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			i.config.S3RootUser,     // MINIO_ROOT_USER
			i.config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(i.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// IssuePutURL returns a presigned PUT capability for exactly the given key.
// The expiry is clamped to one hour.
func (i *S3CapabilityIssuer) IssuePutURL(ctx context.Context, objectKey, contentType string, expiry time.Duration) (*models.UploadCapability, error) {
	if expiry <= 0 || expiry > maxCapabilityExpiry {
		expiry = maxCapabilityExpiry
	}

	presignClient, err := i.getPresignClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := i.config.S3Bucket

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &objectKey,
		ContentType: &contentType,
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return nil, err
	}

	return &models.UploadCapability{
		ObjectKey: objectKey,
		URL:       req.URL,
		Method:    req.Method,
		ExpiresAt: time.Now().Add(expiry),
	}, nil
}

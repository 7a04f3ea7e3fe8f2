package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"profile-service/internal/config"
	"profile-service/internal/model"
)

type S3Store struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	endpoint      string
	now           func() time.Time
}

func NewS3Store(cfg *config.Config) (*S3Store, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:               cfg.S3Endpoint,
			SigningRegion:     region,
			HostnameImmutable: true,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(
		context.TODO(),
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, "")),
	)

	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return &S3Store{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucketName:    cfg.S3BucketName,
		endpoint:      cfg.S3Endpoint,
		now:           time.Now,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, ownerID uuid.UUID, kind model.ImageKind, r io.Reader, size int64, contentType string) (AssetRef, error) {
	path := fmt.Sprintf("%s/%s-%d.%s", ownerID, kind, s.now().UnixMilli(), ExtensionFor(contentType))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(path),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})

	if err != nil {
		return AssetRef{}, err
	}

	return AssetRef{
		Bucket: s.bucketName,
		Path:   path,
		URL:    s.PublicURL(path),
	}, nil
}

// Delete is idempotent: a missing key counts as success, matching S3's own
// DeleteObject semantics. Only transport or access failures surface.
func (s *S3Store) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(path),
	})

	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return nil
	}

	return err
}

// Stat reads the stored object's metadata without fetching its body.
func (s *S3Store) Stat(ctx context.Context, path string) (int64, string, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(path),
	})

	if err != nil {
		return 0, "", err
	}

	var size int64
	if out.ContentLength != nil {
		size = *out.ContentLength
	}

	return size, aws.ToString(out.ContentType), nil
}

func (s *S3Store) PublicURL(path string) string {
	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucketName, path)
}

func (s *S3Store) RefFromURL(url string) (AssetRef, error) {
	return refFromURL(url, s.bucketName, s.endpoint)
}

// PresignedUploadURL returns a short-lived direct-upload URL for clients
// that stream large files to the store without passing through the API.
func (s *S3Store) PresignedUploadURL(ctx context.Context, path string) (string, error) {
	request, err := s.presignClient.PresignPutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket: aws.String(s.bucketName),
			Key:    aws.String(path),
		},
		func(opts *s3.PresignOptions) {
			opts.Expires = time.Duration(15 * time.Minute)
		},
	)

	if err != nil {
		return "", err
	}

	return request.URL, nil
}

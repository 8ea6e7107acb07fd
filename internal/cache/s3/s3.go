package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3pkg "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cirruslabs/catcache/internal/cache"
	keypkg "github.com/cirruslabs/catcache/internal/key"
)

const contentType = "image/jpeg"

type S3 struct {
	client *s3pkg.Client
	bucket string
	prefix string
}

type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	Prefix          string
}

// New uses the default AWS credential chain.
func New(ctx context.Context, bucket string, prefix string) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	return &S3{
		client: s3pkg.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// NewFromConfig targets a custom S3-compatible endpoint
// and creates the bucket if it doesn't exist yet.
func NewFromConfig(ctx context.Context, config *Config) (*S3, error) {
	awsConfig := aws.Config{
		Region: config.Region,
	}

	if config.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentialsProvider(
			config.AccessKeyID,
			config.AccessKeySecret,
			"",
		)
	}

	s3EndpointURL, err := url.Parse(config.Endpoint)
	if err != nil {
		return nil, err
	}

	client := s3pkg.NewFromConfig(awsConfig, func(options *s3pkg.Options) {
		options.EndpointResolverV2 = &s3EndpointResolver{url: s3EndpointURL}
	})

	_, err = client.CreateBucket(ctx, &s3pkg.CreateBucketInput{
		Bucket: aws.String(config.Bucket),
	})
	if err != nil && !isBucketAlreadyPresent(err) {
		return nil, fmt.Errorf("failed to create bucket %q: %w", config.Bucket, err)
	}

	return &S3{
		client: client,
		bucket: config.Bucket,
		prefix: config.Prefix,
	}, nil
}

func (s3 *S3) Get(ctx context.Context, key string) ([]byte, error) {
	objectKey, err := s3.objectKey(key)
	if err != nil {
		return nil, err
	}

	result, err := s3.client.GetObject(ctx, &s3pkg.GetObjectInput{
		Bucket: aws.String(s3.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, convertErr(err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry %q: %w", key, err)
	}

	return data, nil
}

func (s3 *S3) Put(ctx context.Context, key string, data []byte) error {
	objectKey, err := s3.objectKey(key)
	if err != nil {
		return err
	}

	_, err = s3.client.PutObject(ctx, &s3pkg.PutObjectInput{
		Bucket:        aws.String(s3.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to put cache entry %q: %w", key, err)
	}

	return nil
}

func (s3 *S3) Delete(ctx context.Context, key string) error {
	objectKey, err := s3.objectKey(key)
	if err != nil {
		return err
	}

	// DeleteObject succeeds for missing objects too,
	// so check for the object's existence first
	_, err = s3.client.HeadObject(ctx, &s3pkg.HeadObjectInput{
		Bucket: aws.String(s3.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return convertErr(err)
	}

	_, err = s3.client.DeleteObject(ctx, &s3pkg.DeleteObjectInput{
		Bucket: aws.String(s3.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return convertErr(err)
	}

	return nil
}

func (s3 *S3) objectKey(key string) (string, error) {
	if err := keypkg.Validate(key); err != nil {
		return "", err
	}

	return s3.prefix + key + keypkg.Extension, nil
}

func convertErr(err error) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey

	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return cache.ErrNotFound
	}

	return err
}

func isBucketAlreadyPresent(err error) bool {
	var alreadyOwned *types.BucketAlreadyOwnedByYou
	var alreadyExists *types.BucketAlreadyExists

	return errors.As(err, &alreadyOwned) || errors.As(err, &alreadyExists)
}

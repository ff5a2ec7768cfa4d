package utils

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/inkwell-dev/inkwell/config"
)

var (
	s3Client *s3.Client
	s3Once   sync.Once
	s3Err    error
)

func getS3Client() (*s3.Client, error) {
	s3Once.Do(func() {
		cfg := config.Get()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
		if err != nil {
			s3Err = err
			return
		}
		s3Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.S3BaseEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
				o.UsePathStyle = true
			}
		})
	})
	return s3Client, s3Err
}

// UploadImage stores an uploaded image in the configured bucket and returns
// its public URL.
func UploadImage(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	cfg := config.Get()
	client, err := getS3Client()
	if err != nil {
		return "", fmt.Errorf("storage: init client: %w", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(cfg.S3Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("storage: put object: %w", err)
	}

	if cfg.S3BaseEndpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(cfg.S3BaseEndpoint, "/"), cfg.S3Bucket, key), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", cfg.S3Bucket, cfg.S3Region, key), nil
}

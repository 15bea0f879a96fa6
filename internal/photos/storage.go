package photos

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	awsSession "github.com/aws/aws-sdk-go/aws/session"
	awsS3 "github.com/aws/aws-sdk-go/service/s3"
)

// Storage is an S3-compatible bucket in which photos are kept so that broadcast
// payloads can refer to them by URL
type Storage interface {
	Upload(ctx context.Context, key string, contentType string, data io.ReadSeeker) (string, error)
}

type s3Storage struct {
	s3         *awsS3.S3
	bucketName string
	baseURL    string
}

// NewSpacesStorage connects to a DigitalOcean Spaces bucket (or any S3-compatible
// endpoint served over https at the given origin)
func NewSpacesStorage(accessKeyID, secretKey, endpointOrigin, regionName, bucketName string) (Storage, error) {
	config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(accessKeyID, secretKey, ""),
		Endpoint:         aws.String(fmt.Sprintf("https://%s", endpointOrigin)),
		Region:           aws.String(regionName),
		S3ForcePathStyle: aws.Bool(false),
	}
	return newS3Storage(config, bucketName, fmt.Sprintf("https://%s.%s", bucketName, endpointOrigin))
}

func newS3Storage(config *aws.Config, bucketName, baseURL string) (*s3Storage, error) {
	session, err := awsSession.NewSession(config)
	if err != nil {
		return nil, err
	}
	return &s3Storage{
		s3:         awsS3.New(session),
		bucketName: bucketName,
		baseURL:    baseURL,
	}, nil
}

// Upload stores a publicly-readable object and returns its URL
func (s *s3Storage) Upload(ctx context.Context, key string, contentType string, data io.ReadSeeker) (string, error) {
	_, err := s.s3.PutObjectWithContext(ctx, &awsS3.PutObjectInput{
		Bucket:       aws.String(s.bucketName),
		Key:          aws.String(key),
		Body:         data,
		ACL:          aws.String("public-read"),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", s.baseURL, key), nil
}

package source

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectGetter is the slice of the S3 API the policy source needs.
type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3PolicySource reads the policy text from an S3 object on every call, for
// deployments that distribute the policy file through a bucket.
type S3PolicySource struct {
	client objectGetter
	bucket string
	key    string
}

// S3Options configures the policy bucket client. Endpoint and the static
// credential pair are optional; when unset the SDK's default chain applies,
// which covers instance roles on managed hosts.
type S3Options struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3PolicySource creates a policy source for the given bucket and key.
func NewS3PolicySource(opts S3Options) *S3PolicySource {
	s3opts := s3.Options{Region: opts.Region}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		s3opts.Credentials = credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")
	}
	if opts.Endpoint != "" {
		s3opts.BaseEndpoint = aws.String(opts.Endpoint)
		s3opts.UsePathStyle = true
	}
	return &S3PolicySource{client: s3.New(s3opts), bucket: opts.Bucket, key: opts.Key}
}

// Read returns the current policy text.
func (s *S3PolicySource) Read(ctx context.Context) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return "", fmt.Errorf("get policy object s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("read policy object s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return string(data), nil
}

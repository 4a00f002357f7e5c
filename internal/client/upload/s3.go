package upload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/mediax/internal/client/models"
)

// PutObjectAPI is the part of *s3.Client the S3 provider uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	Folder    string
	AccessKey string
	SecretKey string
}

// S3 puts objects into an S3-compatible bucket (AWS, MinIO). The stored
// object's URL is path-style under Endpoint when one is set.
type S3 struct {
	cfg    S3Config
	client PutObjectAPI
}

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
)

// NewS3 builds a client from cfg. Static keys are used when both are set,
// otherwise the AWS default credential chain applies.
func NewS3(ctx context.Context, cfg S3Config, httpClient *http.Client) (*S3, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	if httpClient != nil {
		opts = append(opts, config.WithHTTPClient(httpClient))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3WithClient(cfg, client), nil
}

func NewS3WithClient(cfg S3Config, client PutObjectAPI) *S3 {
	return &S3{cfg: cfg, client: client}
}

func (s *S3) Name() string { return "s3" }

func (s *S3) Validate() error {
	switch {
	case s.cfg.Bucket == "":
		return &ConfigError{Provider: s.Name(), Field: "bucket"}
	case s.cfg.Region == "":
		return &ConfigError{Provider: s.Name(), Field: "region"}
	}
	return nil
}

func (s *S3) Put(ctx context.Context, t Transfer) (*models.StoredObject, error) {
	key := path.Join(s.cfg.Folder, t.Key)

	in := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   newCountingReader(t.File, t.Progress),
	}
	if t.File.Size > 0 {
		in.ContentLength = aws.Int64(t.File.Size)
	}
	if t.File.ContentType != "" {
		in.ContentType = aws.String(t.File.ContentType)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		te := &TransferError{Provider: s.Name(), Err: err}
		var re *awshttp.ResponseError
		if errors.As(err, &re) {
			te.Status = re.HTTPStatusCode()
		}
		return nil, te
	}

	return &models.StoredObject{SecureURL: s.objectURL(key), PublicID: key}, nil
}

func (s *S3) objectURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.cfg.Endpoint != "" {
		return strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + escaped
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, escaped)
}

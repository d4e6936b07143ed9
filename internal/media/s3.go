package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/google/uuid"
)

type S3Config struct {
	Endpoint       string `koanf:"endpoint"` // vacío = AWS; p.ej. http://minio:9000
	Region         string `koanf:"region"`
	Bucket         string `koanf:"bucket"`
	AccessKey      string `koanf:"access_key"`
	SecretKey      string `koanf:"secret_key"`
	PublicURL      string `koanf:"public_url"` // base pública de los objetos
	ForcePathStyle bool   `koanf:"force_path_style"`
}

type S3Store struct {
	client    s3iface.S3API
	uploader  s3manageriface.UploaderAPI
	bucket    string
	folder    string
	publicURL string
}

func NewS3Store(cfg S3Config, folder string) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("s3: create session: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		if cfg.Endpoint != "" {
			publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	return newS3Store(s3.New(sess), s3manager.NewUploader(sess), cfg.Bucket, folder, publicURL), nil
}

func newS3Store(client s3iface.S3API, uploader s3manageriface.UploaderAPI, bucket, folder, publicURL string) *S3Store {
	return &S3Store{
		client:    client,
		uploader:  uploader,
		bucket:    bucket,
		folder:    folder,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *S3Store) Upload(ctx context.Context, f *File) (string, error) {
	key := objectName(s.folder, uuid.NewString(), f)
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f.Body,
		ContentType: aws.String(f.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3: upload %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}

func (s *S3Store) Delete(ctx context.Context, url string) error {
	key, ok := s.keyFromURL(url)
	if !ok {
		return ErrNotOwned
	}
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3: delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Owns(url string) bool {
	_, ok := s.keyFromURL(url)
	return ok
}

func (s *S3Store) keyFromURL(url string) (string, bool) {
	key, found := strings.CutPrefix(url, s.publicURL+"/")
	if !found || key == "" {
		return "", false
	}
	return key, true
}

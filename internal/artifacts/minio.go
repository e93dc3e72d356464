package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	imageObjectName = "image.png"
	statsObjectName = "stats.json"
)

type MinioOpts func(c *minioConfig)

type minioConfig struct {
	endpoint        string
	bucket          string
	accessKey       string
	secretAccessKey string
	useSSL          bool
}

func newConfig(opts ...MinioOpts) *minioConfig {
	cfg := &minioConfig{
		useSSL: false,
	}

	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

type minioStore struct {
	cfg    *minioConfig
	client *minio.Client
}

var _ Store = (*minioStore)(nil)

func NewMinioStore(ctx context.Context, opts ...MinioOpts) (*minioStore, error) {
	cfg := newConfig(opts...)

	// Initialize minio client object.
	minioClient, err := minio.New(cfg.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.accessKey, cfg.secretAccessKey, ""),
		Secure: cfg.useSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := minioClient.BucketExists(ctx, cfg.bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check artifact bucket: %w", err)
	}
	if !exists {
		if err := minioClient.MakeBucket(ctx, cfg.bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create artifact bucket: %w", err)
		}
	}

	return &minioStore{cfg: cfg, client: minioClient}, nil
}

func (s *minioStore) Put(ctx context.Context, jobID uuid.UUID, artifact Artifact) (string, error) {
	imageKey := fmt.Sprintf("%s/%s", jobID, imageObjectName)
	_, err := s.client.PutObject(ctx, s.cfg.bucket, imageKey,
		bytes.NewReader(artifact.Image), int64(len(artifact.Image)),
		minio.PutObjectOptions{ContentType: "image/png"})
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	if len(artifact.Stats) > 0 {
		data, err := json.Marshal(artifact.Stats)
		if err != nil {
			return "", err
		}
		statsKey := fmt.Sprintf("%s/%s", jobID, statsObjectName)
		_, err = s.client.PutObject(ctx, s.cfg.bucket, statsKey,
			bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: "application/json"})
		if err != nil {
			return "", fmt.Errorf("failed to store stats: %w", err)
		}
	}

	return jobID.String(), nil
}

func (s *minioStore) Get(ctx context.Context, jobID uuid.UUID) (*Artifact, error) {
	imageKey := fmt.Sprintf("%s/%s", jobID, imageObjectName)
	object, err := s.client.GetObject(ctx, s.cfg.bucket, imageKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer object.Close()

	image, err := io.ReadAll(object)
	if err != nil {
		return nil, err
	}

	artifact := &Artifact{Image: image}

	statsKey := fmt.Sprintf("%s/%s", jobID, statsObjectName)
	statsObject, err := s.client.GetObject(ctx, s.cfg.bucket, statsKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer statsObject.Close()

	data, err := io.ReadAll(statsObject)
	if err != nil {
		// stats are optional: walkability artifacts have none
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return artifact, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, &artifact.Stats); err != nil {
		return nil, err
	}

	return artifact, nil
}

func (s *minioStore) Delete(ctx context.Context, jobID uuid.UUID) error {
	for _, name := range []string{imageObjectName, statsObjectName} {
		key := fmt.Sprintf("%s/%s", jobID, name)
		if err := s.client.RemoveObject(ctx, s.cfg.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func WithEndpoint(endpoint string) MinioOpts {
	return func(c *minioConfig) {
		c.endpoint = endpoint
	}
}

func WithBucket(bucket string) MinioOpts {
	return func(c *minioConfig) {
		c.bucket = bucket
	}
}

func WithAccessKey(accessKey string) MinioOpts {
	return func(c *minioConfig) {
		c.accessKey = accessKey
	}
}

func WithSecretKey(secretKey string) MinioOpts {
	return func(c *minioConfig) {
		c.secretAccessKey = secretKey
	}
}

func WithSSL(useSSL bool) MinioOpts {
	return func(c *minioConfig) {
		c.useSSL = useSSL
	}
}

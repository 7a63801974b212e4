package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/openkmj/timjs/config"
)

// MinIOGateway serves self-hosted MinIO deployments.
type MinIOGateway struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	expiry        time.Duration
}

func NewMinIOGateway(cfg config.StorageConfig) (*MinIOGateway, error) {
	if cfg.Endpoint == "" || cfg.BucketName == "" {
		return nil, errors.New("invalid MinIO configuration: endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	publicBase := cfg.PublicBaseURL
	if publicBase == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicBase = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.BucketName)
	}

	expiry := cfg.UploadExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	return &MinIOGateway{
		client:        client,
		bucket:        cfg.BucketName,
		publicBaseURL: publicBase,
		expiry:        expiry,
	}, nil
}

func (g *MinIOGateway) IssueUploadURL(ctx context.Context, fileName, contentType, prefix string, kind UploadKind) (*PresignedUpload, error) {
	key, err := ObjectKey(kind, prefix, fileName)
	if err != nil {
		return nil, err
	}

	policy := minio.NewPostPolicy()
	if err := policy.SetBucket(g.bucket); err != nil {
		return nil, err
	}
	if err := policy.SetKey(key); err != nil {
		return nil, err
	}
	if err := policy.SetExpires(time.Now().UTC().Add(g.expiry)); err != nil {
		return nil, err
	}
	if err := policy.SetContentType(contentType); err != nil {
		return nil, err
	}
	if err := policy.SetContentLengthRange(1, MaxUploadBytes); err != nil {
		return nil, err
	}

	u, fields, err := g.client.PresignedPostPolicy(ctx, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload (key: %s): %w", key, err)
	}
	return &PresignedUpload{URL: u.String(), Fields: fields, Key: key}, nil
}

func (g *MinIOGateway) HeadObject(ctx context.Context, key string) (*ObjectInfo, error) {
	info, err := g.client.StatObject(ctx, g.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to stat object (key: %s): %w", key, err)
	}
	return &ObjectInfo{Size: info.Size, ContentType: info.ContentType}, nil
}

func (g *MinIOGateway) Delete(ctx context.Context, key string) error {
	if err := g.client.RemoveObject(ctx, g.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object (key: %s): %w", key, err)
	}
	return nil
}

func (g *MinIOGateway) PublicURL(key string) string {
	return joinPublicURL(g.publicBaseURL, key)
}

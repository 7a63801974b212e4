package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/openkmj/timjs/config"
)

// S3Gateway serves AWS S3 and S3-compatible providers.
type S3Gateway struct {
	client        *s3.Client
	presigner     *s3.PresignClient
	bucket        string
	publicBaseURL string
	expiry        time.Duration
}

func NewS3Gateway(ctx context.Context, cfg config.StorageConfig) (*S3Gateway, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("invalid S3 configuration: bucket name is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	sdkCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicBase := cfg.PublicBaseURL
	if publicBase == "" {
		if cfg.Endpoint != "" {
			publicBase = fmt.Sprintf("%s/%s", cfg.Endpoint, cfg.BucketName)
		} else {
			publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.BucketName, cfg.Region)
		}
	}

	expiry := cfg.UploadExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	return &S3Gateway{
		client:        client,
		presigner:     s3.NewPresignClient(client),
		bucket:        cfg.BucketName,
		publicBaseURL: publicBase,
		expiry:        expiry,
	}, nil
}

func (g *S3Gateway) IssueUploadURL(ctx context.Context, fileName, contentType, prefix string, kind UploadKind) (*PresignedUpload, error) {
	key, err := ObjectKey(kind, prefix, fileName)
	if err != nil {
		return nil, err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}
	req, err := g.presigner.PresignPostObject(ctx, input, func(o *s3.PresignPostOptions) {
		o.Expires = g.expiry
		o.Conditions = []interface{}{
			map[string]string{"acl": "public-read"},
			[]interface{}{"eq", "$Content-Type", contentType},
			[]interface{}{"content-length-range", 1, MaxUploadBytes},
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload (key: %s): %w", key, err)
	}

	fields := make(map[string]string, len(req.Values)+2)
	for k, v := range req.Values {
		fields[k] = v
	}
	fields["acl"] = "public-read"
	fields["Content-Type"] = contentType

	return &PresignedUpload{URL: req.URL, Fields: fields, Key: key}, nil
}

func (g *S3Gateway) HeadObject(ctx context.Context, key string) (*ObjectInfo, error) {
	out, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to head object (key: %s): %w", key, err)
	}

	info := &ObjectInfo{Size: aws.ToInt64(out.ContentLength), ContentType: aws.ToString(out.ContentType)}
	return info, nil
}

func (g *S3Gateway) Delete(ctx context.Context, key string) error {
	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object (key: %s): %w", key, err)
	}
	return nil
}

func (g *S3Gateway) PublicURL(key string) string {
	return joinPublicURL(g.publicBaseURL, key)
}

func isS3NotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

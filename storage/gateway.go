package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// MaxUploadBytes caps a single presigned upload.
const MaxUploadBytes int64 = 2 << 30

var ErrObjectNotFound = errors.New("object not found in storage")

type UploadKind string

const (
	KindMedia      UploadKind = "media"
	KindMediaThumb UploadKind = "media/thumb"
	KindProfile    UploadKind = "profile"
)

// PresignedUpload is a browser-style POST upload: the client sends Fields as
// multipart form values to URL, with the file last.
type PresignedUpload struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
	Key    string            `json:"key"`
}

type ObjectInfo struct {
	Size        int64
	ContentType string
}

type ObjectStorage interface {
	IssueUploadURL(ctx context.Context, fileName, contentType, prefix string, kind UploadKind) (*PresignedUpload, error)
	// HeadObject returns ErrObjectNotFound when nothing is stored under key.
	HeadObject(ctx context.Context, key string) (*ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

func joinPublicURL(base, key string) string {
	if base == "" || key == "" {
		return ""
	}
	baseURL, err := url.Parse(strings.TrimSuffix(base, "/") + "/")
	if err != nil {
		return ""
	}
	keyURL, err := url.Parse(strings.TrimPrefix(key, "/"))
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(keyURL).String()
}

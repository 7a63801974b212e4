package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ObjectKey builds "<kind>/<prefix>/<random id><ext>", keeping the
// lower-cased extension of fileName.
func ObjectKey(kind UploadKind, prefix, fileName string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("object key prefix is empty")
	}
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate object id: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s%s", kind, prefix, id, strings.ToLower(filepath.Ext(fileName))), nil
}

// KeyBelongs reports whether key was issued for kind under prefix.
func KeyBelongs(key string, kind UploadKind, prefix string) bool {
	rest, ok := strings.CutPrefix(key, string(kind)+"/"+prefix+"/")
	return ok && rest != "" && !strings.Contains(rest, "/")
}

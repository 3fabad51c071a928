// Package blob persists reading evidence images and hands back opaque paths.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned by Open for a path that holds no object.
var ErrNotFound = errors.New("blob not found")

// Store saves and reads back evidence objects. Paths are slash-separated keys.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// KeyLayout is the timestamp layout embedded in evidence keys.
const KeyLayout = "20060102150405"

// Key builds <tenant_code>/<tenant_id>_<meter>_<YYYYMMDDhhmmss>_<filename>.
func Key(tenantCode string, tenantID int64, meter string, at time.Time, filename string) string {
	name := fmt.Sprintf("%d_%s_%s_%s", tenantID, meter, at.UTC().Format(KeyLayout), SanitizeFilename(filename))
	return path.Join(SanitizeFilename(tenantCode), name)
}

// SanitizeFilename strips directories and keeps only [A-Za-z0-9._-].
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}

	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "upload"
	}
	return out
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.HasPrefix(key, "..") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	return nil
}

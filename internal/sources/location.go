package sources

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

const s3Scheme = "s3"

// Location is a parsed source reference.
type Location struct {
	Raw    string
	Bucket string
	Key    string
}

// Remote reports whether the location names an S3 object.
func (l Location) Remote() bool { return l.Bucket != "" }

// Name is the file name the location would have on disk.
func (l Location) Name() string {
	if l.Remote() {
		return path.Base(l.Key)
	}
	return filepath.Base(l.Raw)
}

// Parse splits raw into a local path or an S3 bucket/key pair.
func Parse(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("empty source location")
	}
	if !strings.HasPrefix(strings.ToLower(raw), s3Scheme+"://") {
		return Location{Raw: raw}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("parse source %q: %w", raw, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" || strings.HasSuffix(key, "/") {
		return Location{}, fmt.Errorf("source %q must name an object as s3://bucket/key", raw)
	}
	return Location{Raw: raw, Bucket: u.Host, Key: key}, nil
}

package sources_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"converto/internal/services"
	"converto/internal/sources"
)

type fakeObjects struct {
	bodies map[string]string
	calls  []string
}

func (f *fakeObjects) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(params.Bucket) + "/" + aws.ToString(params.Key)
	f.calls = append(f.calls, key)
	body, ok := f.bodies[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestParse(t *testing.T) {
	loc, err := sources.Parse("s3://media/uploads/cat.png")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if !loc.Remote() || loc.Bucket != "media" || loc.Key != "uploads/cat.png" || loc.Name() != "cat.png" {
		t.Fatalf("unexpected location: %+v", loc)
	}
	local, err := sources.Parse("/tmp/dog.jpg")
	if err != nil || local.Remote() || local.Name() != "dog.jpg" {
		t.Fatalf("unexpected local location: %+v err=%v", local, err)
	}
	for _, bad := range []string{"", "s3://bucket", "s3://bucket/dir/"} {
		if _, err := sources.Parse(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestLocalizeLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	if err := os.WriteFile(path, []byte("12345"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l := sources.NewLocalizer(nil, nil)

	got, err := l.Localize(context.Background(), path, dir)
	if err != nil {
		t.Fatalf("Localize returned error: %v", err)
	}
	if got.Path != path || got.Size != 5 {
		t.Fatalf("unexpected local: %+v", got)
	}
	if l.Size(path) != 5 {
		t.Fatalf("unexpected size")
	}
}

func TestLocalizeRejectsMissingAndEmpty(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.png")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l := sources.NewLocalizer(nil, nil)

	if _, err := l.Localize(context.Background(), filepath.Join(dir, "missing.png"), dir); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := l.Localize(context.Background(), empty, dir); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty file, got %v", err)
	}
	if _, err := l.Localize(context.Background(), dir, dir); err == nil {
		t.Fatal("expected directory to be rejected")
	}
	if l.Size(filepath.Join(dir, "missing.png")) != 0 {
		t.Fatal("missing source should have zero size")
	}
}

func TestLocalizeDownloadsS3Object(t *testing.T) {
	dest := t.TempDir()
	objects := &fakeObjects{bodies: map[string]string{"media/in/cat.png": "pixels"}}
	l := sources.NewLocalizer(objects, nil)

	got, err := l.Localize(context.Background(), "s3://media/in/cat.png", dest)
	if err != nil {
		t.Fatalf("Localize returned error: %v", err)
	}
	if got.Path != filepath.Join(dest, "cat.png") || got.Size != 6 || got.Name != "cat.png" {
		t.Fatalf("unexpected local: %+v", got)
	}
	data, err := os.ReadFile(got.Path)
	if err != nil || string(data) != "pixels" {
		t.Fatalf("unexpected downloaded data %q err=%v", data, err)
	}
	if l.Size("s3://media/in/cat.png") != 0 {
		t.Fatal("remote sizes are not fetched")
	}

	if _, err := l.Localize(context.Background(), "s3://media/in/missing.png", dest); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for missing object, got %v", err)
	}
}

func TestLocalizeS3DisabledIsConfigurationError(t *testing.T) {
	l := sources.NewLocalizer(nil, nil)
	_, err := l.Localize(context.Background(), "s3://media/a.png", t.TempDir())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

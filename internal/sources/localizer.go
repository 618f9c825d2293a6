package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"converto/internal/logging"
	"converto/internal/services"
)

// ObjectGetter is the slice of the S3 client the localizer needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Localizer resolves locations to readable local files.
type Localizer struct {
	objects ObjectGetter
	logger  *slog.Logger
}

// NewLocalizer builds a localizer. objects may be nil when S3 is disabled.
func NewLocalizer(objects ObjectGetter, logger *slog.Logger) *Localizer {
	return &Localizer{objects: objects, logger: logging.NewComponentLogger(logger, "sources")}
}

// Local is a source ready for a tool to read.
type Local struct {
	Path string
	Size int64
	Name string
}

// Localize makes loc available on disk. Remote objects are written into
// destDir. The result always names a non-empty regular file.
func (l *Localizer) Localize(ctx context.Context, raw string, destDir string) (Local, error) {
	loc, err := Parse(raw)
	if err != nil {
		return Local{}, services.Wrap(services.ErrValidation, "sources", "parse", "", err)
	}
	if !loc.Remote() {
		size, err := statNonEmpty(loc.Raw)
		if err != nil {
			return Local{}, err
		}
		return Local{Path: loc.Raw, Size: size, Name: loc.Name()}, nil
	}
	return l.download(ctx, loc, destDir)
}

// Size reports the byte size of a local source, or 0 when it cannot be read.
// Remote sources are not fetched just to be measured.
func (l *Localizer) Size(raw string) int64 {
	loc, err := Parse(raw)
	if err != nil || loc.Remote() {
		return 0
	}
	info, err := os.Stat(loc.Raw)
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	return info.Size()
}

func (l *Localizer) download(ctx context.Context, loc Location, destDir string) (Local, error) {
	if l.objects == nil {
		return Local{}, services.Wrap(services.ErrConfiguration, "sources", "s3", "s3 sources are disabled", nil)
	}
	resp, err := l.objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return Local{}, services.Wrap(services.ErrNotFound, "sources", "s3 get", loc.Raw, err)
	}
	defer resp.Body.Close()

	dest := filepath.Join(destDir, loc.Name())
	out, err := os.Create(dest)
	if err != nil {
		return Local{}, fmt.Errorf("create local copy: %w", err)
	}
	written, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		return Local{}, services.Wrap(services.ErrTransient, "sources", "s3 read", loc.Raw, copyErr)
	}
	if closeErr != nil {
		return Local{}, fmt.Errorf("close local copy: %w", closeErr)
	}
	if written == 0 {
		return Local{}, services.Wrap(services.ErrValidation, "sources", "s3 get", "object is empty: "+loc.Raw, nil)
	}
	l.logger.Debug("source downloaded",
		logging.String(logging.FieldSource, loc.Raw),
		logging.String("path", dest),
		logging.Int64("bytes", written),
	)
	return Local{Path: dest, Size: written, Name: loc.Name()}, nil
}

func statNonEmpty(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, services.Wrap(services.ErrNotFound, "sources", "stat", path, err)
		}
		return 0, services.Wrap(services.ErrValidation, "sources", "stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return 0, services.Wrap(services.ErrValidation, "sources", "stat", "not a regular file: "+path, nil)
	}
	if info.Size() == 0 {
		return 0, services.Wrap(services.ErrValidation, "sources", "stat", "file is empty: "+path, nil)
	}
	return info.Size(), nil
}

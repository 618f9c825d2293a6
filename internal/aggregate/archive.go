package aggregate

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
)

// WriteArchive streams every entry into a deflate-compressed zip on w.
func WriteArchive(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, entry := range entries {
		if err := addEntry(zw, entry); err != nil {
			_ = zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

func addEntry(zw *zip.Writer, entry Entry) error {
	src, err := os.Open(entry.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", entry.Name, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", entry.Name, err)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("header %s: %w", entry.Name, err)
	}
	header.Name = entry.Name
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("add %s: %w", entry.Name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write %s: %w", entry.Name, err)
	}
	return nil
}

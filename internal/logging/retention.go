package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const logDateLayout = "20060102"

// PruneLogs deletes daily converto log files in dir that are more than
// retentionDays old and returns how many were removed. Age comes from the
// date in the file name, falling back to the modification time. Today's
// file is never touched. retentionDays <= 0 disables pruning.
func PruneLogs(logger *slog.Logger, dir string, retentionDays int, now time.Time) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, LogFilePattern))
	if err != nil {
		return 0
	}
	today := now.Format(logDateLayout)
	cutoff := now.AddDate(0, 0, -retentionDays)

	removed := 0
	for _, path := range matches {
		day, ok := logDay(path)
		if ok && day.Format(logDateLayout) == today {
			continue
		}
		if !ok {
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			day = info.ModTime()
		}
		if !day.Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Info("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}

// logDay parses the date out of a converto-YYYYMMDD.log name.
func logDay(path string) (time.Time, bool) {
	name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "converto-"), ".log")
	day, err := time.ParseInLocation(logDateLayout, name, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

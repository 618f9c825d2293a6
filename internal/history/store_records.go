package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"converto/internal/media"
)

const recordColumns = `id, user_id, service_type_id, category, request_id,
	original_file_name, original_file_size, original_file_path,
	output_file_name, output_file_size, output_file_path,
	status, elapsed_ms, input_format, output_format, compression_level,
	error_message, created_at`

// Insert appends rec and returns its id. Records are never updated.
func (s *Store) Insert(ctx context.Context, rec Record) (int64, error) {
	if rec.UserID <= 0 {
		return 0, errors.New("history insert: user id required")
	}
	if rec.Status != StatusCompleted && rec.Status != StatusFailed {
		return 0, fmt.Errorf("history insert: invalid status %q", rec.Status)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	var id int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, `INSERT INTO task_history (
			user_id, service_type_id, category, request_id,
			original_file_name, original_file_size, original_file_path,
			output_file_name, output_file_size, output_file_path,
			status, elapsed_ms, input_format, output_format, compression_level,
			error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.UserID, int64(rec.ServiceType), rec.Category, nullString(rec.RequestID),
			rec.OriginalFileName, rec.OriginalFileSize, rec.OriginalFilePath,
			nullString(rec.OutputFileName), nullSize(rec.OutputFileName, rec.OutputFileSize), nullString(rec.OutputFilePath),
			string(rec.Status), rec.Elapsed.Milliseconds(), nullString(rec.InputFormat), nullString(rec.OutputFormat), nullString(rec.CompressionLevel),
			nullString(rec.ErrorMessage), rec.CreatedAt.UTC().Format(timeLayout),
		)
		if execErr != nil {
			return execErr
		}
		id, execErr = res.LastInsertId()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("insert task history: %w", err)
	}
	return id, nil
}

// ListByUser returns a user's records, newest first.
func (s *Store) ListByUser(ctx context.Context, userID int64, limit int) ([]Record, error) {
	return s.list(ctx, "WHERE user_id = ?", []any{userID}, limit)
}

// ListByService returns records for one service type, newest first.
func (s *Store) ListByService(ctx context.Context, service media.ServiceType, limit int) ([]Record, error) {
	return s.list(ctx, "WHERE service_type_id = ?", []any{int64(service)}, limit)
}

// ListByUserAndService narrows a user's records to one service type.
func (s *Store) ListByUserAndService(ctx context.Context, userID int64, service media.ServiceType, limit int) ([]Record, error) {
	return s.list(ctx, "WHERE user_id = ? AND service_type_id = ?", []any{userID, int64(service)}, limit)
}

// ListAll returns every record, newest first.
func (s *Store) ListAll(ctx context.Context, limit int) ([]Record, error) {
	return s.list(ctx, "", nil, limit)
}

func (s *Store) list(ctx context.Context, where string, args []any, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := "SELECT " + recordColumns + " FROM task_history " + where + " ORDER BY created_at DESC, id DESC LIMIT ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("query task history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task history: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec                                   Record
		service, elapsedMS                    int64
		status, created                       string
		requestID, outName, outPath           sql.NullString
		inFormat, outFormat, level, errorText sql.NullString
		outSize                               sql.NullInt64
	)
	if err := row.Scan(
		&rec.ID, &rec.UserID, &service, &rec.Category, &requestID,
		&rec.OriginalFileName, &rec.OriginalFileSize, &rec.OriginalFilePath,
		&outName, &outSize, &outPath,
		&status, &elapsedMS, &inFormat, &outFormat, &level,
		&errorText, &created,
	); err != nil {
		return Record{}, fmt.Errorf("scan task history: %w", err)
	}
	rec.ServiceType = media.ServiceType(service)
	rec.RequestID = requestID.String
	rec.OutputFileName = outName.String
	rec.OutputFileSize = outSize.Int64
	rec.OutputFilePath = outPath.String
	rec.Status = Status(status)
	rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	rec.InputFormat = inFormat.String
	rec.OutputFormat = outFormat.String
	rec.CompressionLevel = level.String
	rec.ErrorMessage = errorText.String
	if ts, err := time.Parse(timeLayout, created); err == nil {
		rec.CreatedAt = ts
	}
	return rec, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// nullSize stores the output size only alongside an output name.
func nullSize(name string, size int64) sql.NullInt64 {
	return sql.NullInt64{Int64: size, Valid: name != ""}
}

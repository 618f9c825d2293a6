package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"converto/internal/history"
	"converto/internal/media"
	"converto/internal/testsupport"
)

func TestInsertAndListNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.png", "b.png", "c.png"} {
		_, err := store.Insert(ctx, history.Record{
			UserID:           7,
			ServiceType:      media.ServiceConversion,
			Category:         "image",
			OriginalFileName: name,
			OriginalFileSize: 100,
			OriginalFilePath: "/in/" + name,
			OutputFileName:   name + ".jpg",
			OutputFileSize:   40,
			OutputFilePath:   "/out/" + name + ".jpg",
			Status:           history.StatusCompleted,
			Elapsed:          1500 * time.Millisecond,
			InputFormat:      "png",
			OutputFormat:     "jpg",
			CreatedAt:        base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Insert %s: %v", name, err)
		}
	}

	records, err := store.ListByUser(ctx, 7, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].OriginalFileName != "c.png" || records[2].OriginalFileName != "a.png" {
		t.Fatalf("unexpected order: %s ... %s", records[0].OriginalFileName, records[2].OriginalFileName)
	}
	if records[0].Elapsed != 1500*time.Millisecond {
		t.Fatalf("elapsed = %v", records[0].Elapsed)
	}
	if !records[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("created_at = %v", records[0].CreatedAt)
	}

	limited, err := store.ListAll(ctx, 2)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected limit 2, got %d", len(limited))
	}
}

func TestFailedRecordStoresNullOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	id, err := store.Insert(ctx, history.Record{
		UserID:           3,
		ServiceType:      media.ServiceCompression,
		Category:         "compress",
		OriginalFileName: "clip.mp4",
		OriginalFilePath: "/in/clip.mp4",
		Status:           history.StatusFailed,
		CompressionLevel: "high",
		ErrorMessage:     "ffmpeg exited 1",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	db, err := sql.Open("sqlite", cfg.HistoryDBPath())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer db.Close()
	var name sql.NullString
	var size sql.NullInt64
	if err := db.QueryRow("SELECT output_file_name, output_file_size FROM task_history WHERE id = ?", id).Scan(&name, &size); err != nil {
		t.Fatalf("query: %v", err)
	}
	if name.Valid || size.Valid {
		t.Fatalf("expected NULL output columns, got %v %v", name, size)
	}

	records, err := store.ListByService(ctx, media.ServiceCompression, 10)
	if err != nil {
		t.Fatalf("ListByService: %v", err)
	}
	if len(records) != 1 || records[0].Status != history.StatusFailed || records[0].CompressionLevel != "high" {
		t.Fatalf("unexpected records: %+v", records)
	}
	if records[0].ErrorMessage != "ffmpeg exited 1" {
		t.Fatalf("error message = %q", records[0].ErrorMessage)
	}
}

func TestListFilters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	insert := func(user int64, service media.ServiceType) {
		t.Helper()
		if _, err := store.Insert(ctx, history.Record{
			UserID: user, ServiceType: service, Category: "image",
			OriginalFileName: "f", OriginalFilePath: "/f", Status: history.StatusCompleted,
		}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	insert(1, media.ServiceConversion)
	insert(1, media.ServiceBackgroundRemoval)
	insert(2, media.ServiceBackgroundRemoval)

	byService, err := store.ListByService(ctx, media.ServiceBackgroundRemoval, 0)
	if err != nil || len(byService) != 2 {
		t.Fatalf("ListByService = %d, %v", len(byService), err)
	}
	both, err := store.ListByUserAndService(ctx, 1, media.ServiceBackgroundRemoval, 0)
	if err != nil || len(both) != 1 {
		t.Fatalf("ListByUserAndService = %d, %v", len(both), err)
	}
	none, err := store.ListByUser(ctx, 99, 0)
	if err != nil || len(none) != 0 {
		t.Fatalf("ListByUser(99) = %d, %v", len(none), err)
	}
}

func TestInsertRejectsInvalidRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := store.Insert(ctx, history.Record{Status: history.StatusCompleted}); err == nil {
		t.Fatal("expected error for missing user id")
	}
	if _, err := store.Insert(ctx, history.Record{UserID: 1, Status: "pending"}); err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := history.Open(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Insert(context.Background(), history.Record{
		UserID: 1, ServiceType: media.ServiceConversion, Category: "image",
		OriginalFileName: "a", OriginalFilePath: "/a", Status: history.StatusCompleted,
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	records, err := reopened.ListAll(context.Background(), 0)
	if err != nil || len(records) != 1 {
		t.Fatalf("ListAll after reopen = %d, %v", len(records), err)
	}
}

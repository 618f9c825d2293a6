package history

import (
	"encoding/json"
	"time"

	"converto/internal/media"
)

// Status is the terminal state of a recorded task.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is one persisted task. Output fields are empty for failed tasks
// and stored as NULL.
type Record struct {
	ID               int64             `json:"id"`
	UserID           int64             `json:"user_id"`
	ServiceType      media.ServiceType `json:"service_type_id"`
	Category         string            `json:"category"`
	RequestID        string            `json:"request_id,omitempty"`
	OriginalFileName string            `json:"original_file_name"`
	OriginalFileSize int64             `json:"original_file_size"`
	OriginalFilePath string            `json:"original_file_path"`
	OutputFileName   string            `json:"output_file_name,omitempty"`
	OutputFileSize   int64             `json:"output_file_size,omitempty"`
	OutputFilePath   string            `json:"output_file_path,omitempty"`
	Status           Status            `json:"status"`
	Elapsed          time.Duration     `json:"-"`
	InputFormat      string            `json:"input_format,omitempty"`
	OutputFormat     string            `json:"output_format,omitempty"`
	CompressionLevel string            `json:"compression_level,omitempty"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// recordJSON carries Elapsed as whole milliseconds, matching the stored column.
type recordJSON struct {
	plainRecord
	ElapsedMS int64 `json:"elapsed_ms"`
}

type plainRecord Record

// MarshalJSON encodes Elapsed as elapsed_ms.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{plainRecord: plainRecord(r), ElapsedMS: r.Elapsed.Milliseconds()})
}

// UnmarshalJSON decodes elapsed_ms back into Elapsed.
func (r *Record) UnmarshalJSON(data []byte) error {
	var aux recordJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Record(aux.plainRecord)
	r.Elapsed = time.Duration(aux.ElapsedMS) * time.Millisecond
	return nil
}

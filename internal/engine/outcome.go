package engine

import "time"

// Outcome is the immutable result of attempting one item.
type Outcome struct {
	Index        int
	Source       string
	SourceName   string
	Output       string
	OutputSize   int64
	OriginalSize int64
	Success      bool
	Elapsed      time.Duration
	InputFormat  string
	OutputFormat string
	Width        int
	Height       int
	// Err explains a failed outcome; nil on success.
	Err error
}

// Partition splits outcomes by their success flag, preserving order.
func Partition(outcomes []Outcome) (succeeded, failed []Outcome) {
	for _, o := range outcomes {
		if o.Success {
			succeeded = append(succeeded, o)
		} else {
			failed = append(failed, o)
		}
	}
	return succeeded, failed
}

package output

import (
	"errors"
	"strings"
)

// ErrNoSegments is matched by NoSegmentsError.
var ErrNoSegments = errors.New("no segments")

// NoSegmentsError is returned by SuccessRate when nothing was processed.
type NoSegmentsError struct{}

func (NoSegmentsError) Error() string { return ErrNoSegments.Error() }

// Is makes errors.Is(err, ErrNoSegments) work.
func (NoSegmentsError) Is(target error) bool { return target == ErrNoSegments }

// Statistics summarizes one run.
type Statistics struct {
	Total       int
	Transcribed int
	Skipped     int
	Words       int
}

// ComputeStatistics derives statistics from the records and the non-empty texts.
func ComputeStatistics(records []SegmentRecord, fullText []string) Statistics {
	return Statistics{
		Total:       len(records),
		Transcribed: len(fullText),
		Skipped:     len(records) - len(fullText),
		Words:       len(strings.Fields(strings.Join(fullText, " "))),
	}
}

// SuccessRate returns the share of transcribed segments in percent.
func (s Statistics) SuccessRate() (float64, error) {
	if s.Total == 0 {
		return 0, &NoSegmentsError{}
	}
	return float64(s.Transcribed) / float64(s.Total) * 100, nil
}

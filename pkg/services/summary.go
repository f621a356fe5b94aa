package services

import "github.com/kerbaras/towebp/pkg/converter"

// FileOutcome is what a worker hands back to the aggregator for one file.
type FileOutcome struct {
	Result converter.Result
	// Removed is set when the source was deleted after a successful conversion.
	Removed bool
	// RemoveErr records a failed deletion. It never turns a successful
	// conversion into a failure.
	RemoveErr error
}

// BatchSummary aggregates the outcome of a batch run.
type BatchSummary struct {
	Discovered   int
	Skipped      int
	Succeeded    int
	Failed       int
	Removed      int
	RemoveFailed int

	// OriginalBytes sums the sources of every attempted file.
	OriginalBytes int64
	// EncodedBytes sums the outputs of successful conversions only.
	EncodedBytes int64

	Canceled bool
}

// Eligible returns the number of files that were meant to be converted.
func (s *BatchSummary) Eligible() int {
	return s.Discovered - s.Skipped
}

// Processed returns the number of files that were actually attempted.
func (s *BatchSummary) Processed() int {
	return s.Succeeded + s.Failed
}

// Add folds one file outcome into the totals.
func (s *BatchSummary) Add(o FileOutcome) {
	s.OriginalBytes += o.Result.OriginalSize
	if o.Result.Success() {
		s.Succeeded++
		s.EncodedBytes += o.Result.EncodedSize
	} else {
		s.Failed++
	}

	if o.Removed {
		s.Removed++
	}
	if o.RemoveErr != nil {
		s.RemoveFailed++
	}
}

// Ratio returns the aggregate size reduction in percent. ok is false when
// no original bytes were seen.
func (s *BatchSummary) Ratio() (pct float64, ok bool) {
	if s.OriginalBytes == 0 {
		return 0, false
	}
	return converter.CompressionRatio(s.OriginalBytes, s.EncodedBytes), true
}

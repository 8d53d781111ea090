// Package pipeline defines core types shared across the crawl pipeline.
package pipeline

import "time"

// Target is one catalog URL awaiting processing. A target is consumed
// exactly once by a worker and never re-enqueued automatically.
type Target string

// DocumentStatus tags the result of a fetch attempt.
type DocumentStatus string

// Document status values produced by a Fetcher.
const (
	DocumentOK             DocumentStatus = "ok"
	DocumentEmpty          DocumentStatus = "empty"
	DocumentTransportError DocumentStatus = "transport_error"
)

// RawDocument is the payload retrieved for one Target. It is owned
// exclusively by the worker that fetched it.
type RawDocument struct {
	Target     Target
	Status     DocumentStatus
	StatusCode int
	Body       []byte
	Reason     string
	Duration   time.Duration
}

// ProductRecord is one extracted catalog listing. Both fields are trimmed
// of surrounding whitespace; identity is derived downstream via StorageKey.
type ProductRecord struct {
	Title string
	Price string
}

// OutcomeStatus tags the result of extracting a RawDocument.
type OutcomeStatus string

// Outcome status values produced by an Extractor.
const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeEmpty   OutcomeStatus = "empty"
	OutcomeError   OutcomeStatus = "error"
)

// Outcome is a tagged extraction result. Records is populated only when
// Status is OutcomeSuccess, Reason only when Status is OutcomeError.
type Outcome struct {
	Status  OutcomeStatus
	Records []ProductRecord
	Reason  string
}

// Success wraps records in a successful Outcome, preserving document order.
func Success(records []ProductRecord) Outcome {
	return Outcome{Status: OutcomeSuccess, Records: records}
}

// Empty reports a parsed document with no matching product nodes.
func Empty() Outcome {
	return Outcome{Status: OutcomeEmpty}
}

// Errorf reports an extraction failure with a human-readable reason.
func Errorf(reason string) Outcome {
	return Outcome{Status: OutcomeError, Reason: reason}
}

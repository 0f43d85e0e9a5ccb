// Package upload transfers a finalized media payload to the remote draft
// storage endpoint and classifies the outcome.
//
// The pipeline performs no retries: every terminal outcome — success,
// application rejection, transport failure, or abort — is reported back to
// the owning session, and recovery is a new user-initiated capture.
package upload

import (
	"context"
	"strconv"
)

// Outcome classifies the terminal result of one upload attempt.
type Outcome int

const (
	// OutcomeSuccess means the payload was stored in the draft area.
	OutcomeSuccess Outcome = iota

	// OutcomeFetchError means the finalized payload could not be
	// retrieved from its source; nothing was sent.
	OutcomeFetchError

	// OutcomeApplicationError means the transport succeeded but the
	// server rejected the content with an embedded error code.
	OutcomeApplicationError

	// OutcomeTransportError means the HTTP exchange itself failed
	// (non-success status or network error).
	OutcomeTransportError

	// OutcomeAborted means the transfer was cancelled by the user or
	// environment rather than by a failure.
	OutcomeAborted
)

// String returns the human-readable name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFetchError:
		return "fetch_error"
	case OutcomeApplicationError:
		return "application_error"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Destination identifies where in the remote repository the payload lands.
// Immutable; supplied at session creation.
type Destination struct {
	// RepositoryID selects the upload repository.
	RepositoryID int64

	// DraftItemID is the staging identifier for the in-progress upload.
	DraftItemID int64

	// ContextID is the server-side context the draft area belongs to.
	ContextID int64

	// MaxUploadBytes is the configured maximum payload size in bytes.
	// −1 means unbounded. Enforced by the session at capture time, not
	// by the pipeline.
	MaxUploadBytes int64
}

// Bounded reports whether the destination carries a finite size limit.
func (d Destination) Bounded() bool { return d.MaxUploadBytes >= 0 }

// Source supplies the finalized payload bytes for one upload attempt.
// Retrieval may fail — for example when the payload lives behind a preview
// URL that can no longer be resolved — in which case the pipeline reports
// [OutcomeFetchError] without sending anything.
type Source interface {
	// Fetch returns the payload bytes and their media type.
	Fetch(ctx context.Context) (data []byte, mimeType string, err error)
}

// BytesSource is a [Source] over an in-memory payload.
type BytesSource struct {
	// Data is the payload.
	Data []byte

	// MimeType is the payload media type.
	MimeType string
}

// Fetch implements [Source].
func (s BytesSource) Fetch(context.Context) ([]byte, string, error) {
	return s.Data, s.MimeType, nil
}

// Request describes one upload attempt.
type Request struct {
	// Source supplies the payload bytes.
	Source Source

	// Filename is the destination filename within the draft area.
	Filename string

	// Destination identifies the target draft area.
	Destination Destination
}

// Result is the classified terminal outcome of one upload attempt.
type Result struct {
	// Outcome is the classification.
	Outcome Outcome

	// HTTPStatus is the response status code, when a response was
	// received. Zero otherwise. 404 is the distinguished transport
	// failure for a missing endpoint.
	HTTPStatus int

	// ErrorCode is the application error code embedded in an otherwise
	// successful response. Set only for [OutcomeApplicationError].
	ErrorCode string

	// BytesTotal is the payload size that was to be transferred.
	BytesTotal int64

	// Err is the underlying error, when any.
	Err error
}

// Success reports whether the upload stored the payload.
func (r Result) Success() bool { return r.Outcome == OutcomeSuccess }

// String summarises the result for logging.
func (r Result) String() string {
	s := r.Outcome.String()
	if r.HTTPStatus != 0 {
		s += " (http " + strconv.Itoa(r.HTTPStatus) + ")"
	}
	if r.ErrorCode != "" {
		s += " [" + r.ErrorCode + "]"
	}
	return s
}

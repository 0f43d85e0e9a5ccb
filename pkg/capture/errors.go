package capture

import "errors"

// ErrPermissionDenied is returned by [Device.Acquire] when the user or
// platform refused access to the requested capture source.
var ErrPermissionDenied = errors.New("capture: permission denied")

// ErrNotFound is returned by [Device.Acquire] when no capture source
// matching the constraints exists.
var ErrNotFound = errors.New("capture: no matching device")

// FailureReason is the normalized reason string surfaced to the
// presentation layer when device acquisition fails. The session controller
// maps underlying error categories onto these fixed values so that the UI
// can pick a localized message without inspecting raw errors.
type FailureReason string

const (
	// ReasonPermission indicates the user or platform denied access.
	ReasonPermission FailureReason = "permission"

	// ReasonNotFound indicates no matching capture source exists.
	ReasonNotFound FailureReason = "notfound"

	// ReasonUnknown is the generic fallback for unclassified failures.
	ReasonUnknown FailureReason = "unknown"
)

// ReasonForError maps err onto a [FailureReason]. Unrecognised error
// categories map to [ReasonUnknown].
func ReasonForError(err error) FailureReason {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return ReasonPermission
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound
	default:
		return ReasonUnknown
	}
}

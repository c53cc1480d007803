package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Collaborator layers (staging
// channel, master store) return these wrapped so callers can decide whether a
// failure is fatal for the run or locally recoverable.
//
// - ErrUnavailable: collaborator unreachable; fatal at startup.
// - ErrNotFound: lookup missed (identifier cache, dossier snapshot).
// - ErrConflict: store rejected a row (constraint violation); recovered per
//   row, never aborts a batch.
var (
	ErrUnavailable = errors.New("unavailable")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
)

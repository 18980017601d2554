package engine

import (
	"errors"
	"fmt"
)

// ErrUnknownJob is returned by TriggerNow for a name that was never
// registered.
var ErrUnknownJob = errors.New("unknown job")

// DuplicateJobError reports a job-name conflict at registration time.
// Registration conflicts are a wiring bug, so callers treat this as fatal
// at startup.
type DuplicateJobError struct {
	Name string
}

func (e *DuplicateJobError) Error() string {
	return fmt.Sprintf("job %q already registered", e.Name)
}

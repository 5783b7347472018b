// Package export implements the export publish pipeline: planning,
// staging, collision preflight, atomic publishing, sidecar guarding,
// manifest finalization, and rollback.
package export

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRunActive is returned when a run is started while another one holds
// the run-ownership token.
var ErrRunActive = errors.New("another export run is active")

// ValidationError reports an invalid option combination. It fails the run
// before any filesystem work happens.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "invalid export options: " + e.Msg
}

// EmptyArtifactError means a renderer produced nothing. That is a
// programming defect in the renderer, never a recoverable condition.
type EmptyArtifactError struct {
	Kind string
	Path string
}

func (e *EmptyArtifactError) Error() string {
	return fmt.Sprintf("renderer produced empty artifact %s at %s", e.Kind, e.Path)
}

// OutputExistsError is the recoverable decision point: the destination
// already holds files this run would produce and overwrite was not
// authorized. The caller decides replace / keep-both / cancel.
type OutputExistsError struct {
	Collisions []Collision
}

func (e *OutputExistsError) Error() string {
	names := make([]string, len(e.Collisions))
	for i, c := range e.Collisions {
		names[i] = c.Name
	}
	return fmt.Sprintf("destination already contains: %s", strings.Join(names, ", "))
}

// AsOutputExists unwraps err into an OutputExistsError when possible.
func AsOutputExists(err error) (*OutputExistsError, bool) {
	var oe *OutputExistsError
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

// SuffixArtifactsError means the destination holds ambiguous stray files
// ("copy N" style) next to the intended names. A plain replace would be
// ambiguous; the folder must be cleaned or keep-both chosen.
type SuffixArtifactsError struct {
	Names []string
}

func (e *SuffixArtifactsError) Error() string {
	return fmt.Sprintf("destination contains ambiguous suffix artifacts: %s", strings.Join(e.Names, ", "))
}

// PublishCollisionError reports a duplicate publish attempt to the same
// destination within one run. That is an internal consistency bug, not a
// user-facing condition.
type PublishCollisionError struct {
	Destination string
}

func (e *PublishCollisionError) Error() string {
	return "duplicate publish attempt for destination " + e.Destination
}

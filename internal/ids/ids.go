package ids

import "github.com/segmentio/ksuid"

// New returns a k-sortable unique id. Jobs, media items and audit events all
// share the same id space so log lines sort chronologically.
func New() string {
	return ksuid.New().String()
}

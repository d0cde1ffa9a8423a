// Package ids mints submission identifiers at the intake boundary. Ids are
// ULIDs so they sort by arrival time, which keeps broker partitions and
// downstream logs roughly chronological.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/navikt/omsorgspenger-mottak/internal/submission"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewSubmissionID returns a fresh, time-sortable submission id. Assigned once
// per inbound request, before the pipeline runs.
func NewSubmissionID() submission.SubmissionID {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return submission.SubmissionID(id.String())
}

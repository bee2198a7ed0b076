package synclog

import "time"

// Sync run types.
const (
	TypeCompetitions = "competitions"
	TypeMatches      = "matches"
	TypeLive         = "live"
	TypeFull         = "full"
	TypeCleanup      = "cleanup"
)

// Run outcomes. Partial means some items failed while the run kept going.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

type Entry struct {
	ID         int64
	Type       string
	Status     string
	Created    int
	Updated    int
	Processed  int
	Message    string
	StartedAt  time.Time
	FinishedAt time.Time
}

func (e Entry) Duration() time.Duration {
	if e.FinishedAt.IsZero() || e.StartedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

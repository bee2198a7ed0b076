package competition

import "time"

// Competition is a league/tournament discovered from the data provider.
// Discovery never auto-activates a competition: sync stays opt-in so the
// provider quota is spent only on competitions an operator enabled.
type Competition struct {
	ID           int64
	ExternalID   int64
	Name         string
	Country      string
	Code         string
	LogoURL      string
	IsActive     bool
	SyncEnabled  bool
	LastSyncedAt *time.Time
}

func (c Competition) Syncable() bool {
	return c.IsActive && c.SyncEnabled
}

package postgres

import (
	"database/sql"
	"time"

	"github.com/danuandrian/matchvote/internal/domain/competition"
)

type competitionTableModel struct {
	ID           int64        `db:"id"`
	ExternalID   int64        `db:"external_id"`
	Name         string       `db:"name"`
	Country      string       `db:"country"`
	Code         string       `db:"code"`
	LogoURL      string       `db:"logo_url"`
	IsActive     bool         `db:"is_active"`
	SyncEnabled  bool         `db:"sync_enabled"`
	LastSyncedAt sql.NullTime `db:"last_synced_at"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

func (m competitionTableModel) toDomain() competition.Competition {
	return competition.Competition{
		ID:           m.ID,
		ExternalID:   m.ExternalID,
		Name:         m.Name,
		Country:      m.Country,
		Code:         m.Code,
		LogoURL:      m.LogoURL,
		IsActive:     m.IsActive,
		SyncEnabled:  m.SyncEnabled,
		LastSyncedAt: nullTimeToPtr(m.LastSyncedAt),
	}
}

type competitionInsertModel struct {
	ExternalID int64  `db:"external_id"`
	Name       string `db:"name"`
	Country    string `db:"country"`
	Code       string `db:"code"`
	LogoURL    string `db:"logo_url"`
}

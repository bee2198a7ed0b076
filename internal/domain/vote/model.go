package vote

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Surfaces are the two placements a ballot can be cast from. Votes are
// scoped per surface, so the same voter may vote once on each.
const (
	SurfaceHomepage = "homepage"
	SurfaceDetails  = "details"
)

func ValidSurface(surface string) bool {
	return surface == SurfaceHomepage || surface == SurfaceDetails
}

// Option kinds: basic options show on every surface, detailed options only
// on the match details page.
const (
	OptionBasic    = "basic"
	OptionDetailed = "detailed"
)

// CategoryKeyOther is the built-in free-slot category. It cannot be deleted
// and its key cannot be reassigned.
const CategoryKeyOther = "other"

// VoterIdentity identifies who cast a ballot: either an authenticated user
// or a guest tracked by a browser identifier.
type VoterIdentity struct {
	UserID    int64
	BrowserID string
}

func (v VoterIdentity) IsGuest() bool { return v.UserID == 0 }

// Key renders the stored voter key. The prefix keeps user and guest
// namespaces from colliding.
func (v VoterIdentity) Key() string {
	if v.UserID != 0 {
		return fmt.Sprintf("user:%d", v.UserID)
	}
	return "guest:" + v.BrowserID
}

func (v VoterIdentity) Valid() bool {
	return v.UserID != 0 || strings.TrimSpace(v.BrowserID) != ""
}

type Category struct {
	ID        int64
	Key       string
	Name      string
	IsActive  bool
	SortOrder int
	CreatedAt time.Time
}

// Protected reports whether the category is built-in and must survive
// deletes and key changes.
func (c Category) Protected() bool { return c.Key == CategoryKeyOther }

type Option struct {
	ID         int64
	CategoryID int64
	// MatchID scopes a custom option to a single match. Nil means the
	// option is a standard one offered on every match.
	MatchID   *int64
	Label     string
	Kind      string
	SortOrder int
	IsActive  bool
	// VotesCount is a denormalized counter maintained inside the cast
	// transaction; results computation does not trust it and recounts.
	VotesCount int
	CreatedAt  time.Time
}

// AppliesToMatch reports whether the option is offered on the given match.
func (o Option) AppliesToMatch(matchID int64) bool {
	return o.MatchID == nil || *o.MatchID == matchID
}

type Vote struct {
	ID         int64
	MatchID    int64
	CategoryID int64
	OptionID   int64
	VoterKey   string
	Surface    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type OptionResult struct {
	OptionID   int64   `json:"optionId"`
	Label      string  `json:"label"`
	Kind       string  `json:"kind"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

type CategoryResults struct {
	CategoryID int64          `json:"categoryId"`
	Key        string         `json:"key"`
	Name       string         `json:"name"`
	TotalVotes int            `json:"totalVotes"`
	Options    []OptionResult `json:"options"`
}

// ComputePercentages fills each option's share of the total, rounded to one
// decimal place. A zero total leaves every percentage at zero instead of
// dividing by zero.
func ComputePercentages(options []OptionResult) []OptionResult {
	total := 0
	for _, o := range options {
		total += o.Votes
	}
	for i := range options {
		if total == 0 {
			options[i].Percentage = 0
			continue
		}
		pct := float64(options[i].Votes) * 100 / float64(total)
		options[i].Percentage = math.Round(pct*10) / 10
	}
	return options
}

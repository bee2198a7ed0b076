package memory

import (
	"github.com/danuandrian/matchvote/internal/domain/vote"
)

// Default category IDs used by the seed data. They match the rows the
// initial migration inserts so dev mode behaves like a seeded database.
const (
	CategoryIDMatchWinner = 1
	CategoryIDBestPlayer  = 2
	CategoryIDMatchRating = 3
	CategoryIDOther       = 4
)

func SeedVoteCategories() []vote.Category {
	return []vote.Category{
		{ID: CategoryIDMatchWinner, Key: "match_winner", Name: "Match Winner", IsActive: true, SortOrder: 1},
		{ID: CategoryIDBestPlayer, Key: "best_player", Name: "Best Player", IsActive: true, SortOrder: 2},
		{ID: CategoryIDMatchRating, Key: "match_rating", Name: "Match Rating", IsActive: true, SortOrder: 3},
		{ID: CategoryIDOther, Key: vote.CategoryKeyOther, Name: "Other", IsActive: true, SortOrder: 99},
	}
}

func SeedVoteOptions() []vote.Option {
	return []vote.Option{
		{ID: 1, CategoryID: CategoryIDMatchWinner, Label: "Home Win", Kind: vote.OptionBasic, SortOrder: 1, IsActive: true},
		{ID: 2, CategoryID: CategoryIDMatchWinner, Label: "Draw", Kind: vote.OptionBasic, SortOrder: 2, IsActive: true},
		{ID: 3, CategoryID: CategoryIDMatchWinner, Label: "Away Win", Kind: vote.OptionBasic, SortOrder: 3, IsActive: true},
		{ID: 4, CategoryID: CategoryIDMatchRating, Label: "Excellent", Kind: vote.OptionDetailed, SortOrder: 1, IsActive: true},
		{ID: 5, CategoryID: CategoryIDMatchRating, Label: "Good", Kind: vote.OptionDetailed, SortOrder: 2, IsActive: true},
		{ID: 6, CategoryID: CategoryIDMatchRating, Label: "Average", Kind: vote.OptionDetailed, SortOrder: 3, IsActive: true},
		{ID: 7, CategoryID: CategoryIDMatchRating, Label: "Poor", Kind: vote.OptionDetailed, SortOrder: 4, IsActive: true},
	}
}

package team

// Team is a club record kept in sync with the data provider.
type Team struct {
	ID         int64
	ExternalID int64
	Name       string
	LogoURL    string
}

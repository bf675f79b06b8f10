package service

// Config defines dispatcher-related settings.
type Config struct {
	// AwayModePauseSeconds is the serializing pause between away-mode calls.
	// Zero or negative keeps the one-second default.
	AwayModePauseSeconds int `json:"away_mode_pause_seconds"`
}

package domain

import "fmt"

// Settings are the user preferences kept next to the category lists.
type Settings struct {
	DailySummary         bool `json:"dailySummary" validate:"-"`
	UnproductiveAlert    bool `json:"unproductiveAlert" validate:"-"`
	TimeThresholdMinutes int  `json:"timeThreshold" validate:"gte=1,lte=1440"`
	ProductivityTarget   int  `json:"productivityTarget" validate:"gte=0,lte=100"`
}

// DefaultSettings mirrors a fresh install.
func DefaultSettings() Settings {
	return Settings{
		DailySummary:         true,
		UnproductiveAlert:    false,
		TimeThresholdMinutes: 15,
		ProductivityTarget:   70,
	}
}

// Check enforces value ranges independent of the transport layer.
func (s Settings) Check() error {
	if s.TimeThresholdMinutes < 1 || s.TimeThresholdMinutes > 24*60 {
		return fmt.Errorf("%w: time threshold %d out of range", ErrInvalidSettings, s.TimeThresholdMinutes)
	}
	if s.ProductivityTarget < 0 || s.ProductivityTarget > 100 {
		return fmt.Errorf("%w: productivity target %d out of range", ErrInvalidSettings, s.ProductivityTarget)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
	_ "time/tzdata" // bot.timezone must resolve on hosts without zoneinfo

	"github.com/go-playground/validator/v10"
)

// ErrValidation wraps every configuration validation failure.
var ErrValidation = errors.New("validation error")

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// IsAdmin reports whether userID is in the admin allowlist.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.Telegram.AdminIDs, userID)
}

// Location returns the time zone used in admin replies, falling back to UTC
// when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Bot.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

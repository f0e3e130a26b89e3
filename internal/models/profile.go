// ABOUTME: Profile represents a user's onboarding answers and identity
// ABOUTME: Persisted in the users table, keyed by the external (Telegram) user id
package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Intake answer bounds
const (
	MinAge    = 1
	MaxAge    = 120
	MaxWeight = 500.0 // kg, exclusive lower bound is 0
	MaxHeight = 300.0 // cm, exclusive lower bound is 0
)

// Profile holds identity and intake answers for one user
type Profile struct {
	ID          string    `json:"id"`
	ExternalID  string    `json:"external_id"`
	DisplayName string    `json:"display_name"`
	Username    string    `json:"username,omitempty"`
	Contact     string    `json:"contact"`
	Age         int       `json:"age"`
	Weight      float64   `json:"weight"`
	Height      float64   `json:"height"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidAge reports whether age is within the accepted range
func ValidAge(age int) bool {
	return age >= MinAge && age <= MaxAge
}

// ValidWeight reports whether weight is within (0, MaxWeight]
func ValidWeight(w float64) bool {
	return w > 0 && w <= MaxWeight
}

// ValidHeight reports whether height is within (0, MaxHeight]
func ValidHeight(h float64) bool {
	return h > 0 && h <= MaxHeight
}

// Complete reports whether every intake field is present and in range
func (p *Profile) Complete() bool {
	return p.Validate() == nil
}

// Validate checks identity and intake fields
func (p *Profile) Validate() error {
	if p.ExternalID == "" {
		return errors.New("external id cannot be empty")
	}
	if p.Contact == "" {
		return errors.New("contact cannot be empty")
	}
	if !ValidAge(p.Age) {
		return fmt.Errorf("age %d out of range [%d,%d]", p.Age, MinAge, MaxAge)
	}
	if !ValidWeight(p.Weight) {
		return fmt.Errorf("weight %g out of range (0,%g]", p.Weight, MaxWeight)
	}
	if !ValidHeight(p.Height) {
		return fmt.Errorf("height %g out of range (0,%g]", p.Height, MaxHeight)
	}
	return nil
}

// Summary renders the profile as "Key: value" lines for the assistant
func (p *Profile) Summary() string {
	var b strings.Builder
	line := func(key, value string) {
		if value == "" {
			return
		}
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteByte('\n')
	}

	line("Name", p.DisplayName)
	line("Contact", p.Contact)
	line("Age", strconv.Itoa(p.Age))
	line("Weight", strconv.FormatFloat(p.Weight, 'f', -1, 64))
	line("Height", strconv.FormatFloat(p.Height, 'f', -1, 64))

	return strings.TrimSuffix(b.String(), "\n")
}

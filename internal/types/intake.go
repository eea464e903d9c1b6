// Package types provides type definitions for structured data used throughout the fitness-coach system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Experience levels recognised by the template store
const (
	ExperienceBeginner     = "beginner"
	ExperienceIntermediate = "intermediate"
	ExperienceAdvanced     = "advanced"
)

// IntakeProfile holds the normalized user attributes collected during onboarding.
// It is consumed read-only by the generation pipeline.
type IntakeProfile struct {
	Sex            string   `json:"sex,omitempty" validate:"omitempty,oneof=male female other"`
	Age            int      `json:"age,omitempty" validate:"omitempty,min=13,max=100"`
	Goal           string   `json:"goal" validate:"required,min=1"`
	DaysAvailable  int      `json:"daysAvailable" validate:"required,min=1,max=7"`
	Experience     string   `json:"experience,omitempty"`
	TimePerSession int      `json:"timePerSession,omitempty" validate:"omitempty,min=10,max=240"`
	Equipment      []string `json:"equipment,omitempty"`
	Preferences    []string `json:"preferences,omitempty"`
	Injuries       string   `json:"injuries,omitempty"`
}

// Validate validates the IntakeProfile using the validator.
func (p *IntakeProfile) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// ExperienceLevel returns the lower-cased, trimmed experience string
func (p *IntakeProfile) ExperienceLevel() string {
	return strings.ToLower(strings.TrimSpace(p.Experience))
}

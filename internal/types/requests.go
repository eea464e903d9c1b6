package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Generation modes accepted on the WebSocket transport
const (
	ModeGenerate = "generate"
	ModeModify   = "modify"
)

// GenerateRequest is the body of a streaming generation request.
// The intake profile may be sent as intakeData or profile.
type GenerateRequest struct {
	UserID     uuid.UUID      `json:"userId" validate:"required"`
	IntakeData *IntakeProfile `json:"intakeData,omitempty"`
	Profile    *IntakeProfile `json:"profile,omitempty"`
	Context    string         `json:"context,omitempty" validate:"max=4000"`
}

// IntakeProfile returns whichever profile field was supplied, preferring intakeData
func (r *GenerateRequest) IntakeProfile() *IntakeProfile {
	if r.IntakeData != nil {
		return r.IntakeData
	}
	return r.Profile
}

// Validate checks the request and its profile
func (r *GenerateRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return err
	}
	profile := r.IntakeProfile()
	if profile == nil {
		return fmt.Errorf("intakeData or profile is required")
	}
	return profile.Validate()
}

// ModifyRequest is the body of a streaming modification request
type ModifyRequest struct {
	UserID              uuid.UUID      `json:"userId" validate:"required"`
	CurrentProgram      Program        `json:"currentProgram"`
	ModificationRequest string         `json:"modificationRequest" validate:"required,min=1,max=4000"`
	IntakeData          *IntakeProfile `json:"intakeData,omitempty"`
	Profile             *IntakeProfile `json:"profile,omitempty"`
	Context             string         `json:"context,omitempty" validate:"max=4000"`
}

// IntakeProfile returns whichever profile field was supplied, preferring intakeData
func (r *ModifyRequest) IntakeProfile() *IntakeProfile {
	if r.IntakeData != nil {
		return r.IntakeData
	}
	return r.Profile
}

// Validate checks the request, its profile and that the current program has phases
func (r *ModifyRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return err
	}
	profile := r.IntakeProfile()
	if profile == nil {
		return fmt.Errorf("intakeData or profile is required")
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	if r.CurrentProgram.ID == nil && len(r.CurrentProgram.Phases) == 0 {
		return fmt.Errorf("currentProgram must have an id or phases")
	}
	return nil
}

// StreamRequest is the first message on the WebSocket transport. Mode selects
// which of the embedded request shapes is used.
type StreamRequest struct {
	Mode string `json:"mode"`
	ModifyRequest
}

// Validate checks the request shape selected by Mode
func (r *StreamRequest) Validate() error {
	switch r.Mode {
	case ModeGenerate:
		return r.GenerateRequest().Validate()
	case ModeModify:
		return r.ModifyRequest.Validate()
	default:
		return fmt.Errorf("mode must be %q or %q", ModeGenerate, ModeModify)
	}
}

// GenerateRequest converts a generate-mode stream request
func (r *StreamRequest) GenerateRequest() *GenerateRequest {
	return &GenerateRequest{
		UserID:     r.UserID,
		IntakeData: r.IntakeData,
		Profile:    r.Profile,
		Context:    r.Context,
	}
}

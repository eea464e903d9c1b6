package server

import (
	"context"

	"github.com/google/uuid"
)

// AccessChecker decides whether a user may start a generation run.
// Billing tiers and similar policy live behind this boundary.
type AccessChecker interface {
	CanGenerate(ctx context.Context, userID uuid.UUID) (bool, error)
}

// AccessFunc adapts a function to AccessChecker
type AccessFunc func(ctx context.Context, userID uuid.UUID) (bool, error)

// CanGenerate calls f
func (f AccessFunc) CanGenerate(ctx context.Context, userID uuid.UUID) (bool, error) {
	return f(ctx, userID)
}

// AllowAll grants generation to every user
var AllowAll AccessChecker = AccessFunc(func(context.Context, uuid.UUID) (bool, error) {
	return true, nil
})

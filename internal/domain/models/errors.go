package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pricing engine. All of them are converted into a
// deterministic outcome (fallback price or skip) at the orchestrator; none
// abort a batch.
var (
	// ErrInsufficientData signals fewer than the minimum history rows for
	// training. Routes to the fallback heuristic.
	ErrInsufficientData = errors.New("insufficient sales history for training")

	// ErrModelNotTrained signals prediction attempted before a successful
	// train. Internal misuse; routes to the fallback heuristic.
	ErrModelNotTrained = errors.New("demand model not trained")

	// ErrExternalService signals a competitor-price fetch failure. Degrades
	// to an empty price map, never fatal.
	ErrExternalService = errors.New("competitor price service unavailable")

	// ErrInvalidProduct signals missing or malformed product attributes.
	// The product is skipped for the cycle; the batch continues.
	ErrInvalidProduct = errors.New("invalid product attributes")
)

// OptimizationError wraps any failure inside the price grid search.
type OptimizationError struct {
	ProductID string
	Err       error
}

func (e *OptimizationError) Error() string {
	return fmt.Sprintf("price optimization failed for %s: %v", e.ProductID, e.Err)
}

func (e *OptimizationError) Unwrap() error { return e.Err }

// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors.
var (
	ErrSlotsPerEpochTooLow  = errors.New("slots per epoch is too low")
	ErrFrontierSizeTooLow   = errors.New("transition frontier size is too low")
	ErrStreamingTimeoutZero = errors.New("streaming rpc timeout must be positive")
	ErrStreamWindowTooLow   = errors.New("default stream window is too low")
)

// ValidationError reports one violated constraint.
type ValidationError struct {
	Field      string
	Value      any
	Constraint string
	Severity   string // "error" or "warning"
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s=%v violates constraint: %s", ve.Severity, ve.Field, ve.Value, ve.Constraint)
}

// ValidationResult collects every violation found, rather than
// failing fast on the first one.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
	Valid    bool
}

// Validate runs every constraint against cfg and returns a plain error
// wrapping the first-class ErrXxx sentinels when invalid.
func Validate(cfg Config) error {
	result := ValidateDetailed(cfg)
	if result.Valid {
		return nil
	}
	sentinels := map[string]error{
		"SlotsPerEpoch":          ErrSlotsPerEpochTooLow,
		"TransitionFrontierSize": ErrFrontierSizeTooLow,
		"StreamingRPCTimeout":    ErrStreamingTimeoutZero,
		"DefaultStreamWindow":    ErrStreamWindowTooLow,
	}
	var msgs []string
	var errs []error
	for _, e := range result.Errors {
		msgs = append(msgs, e.Error())
		errs = append(errs, sentinels[e.Field])
	}
	return fmt.Errorf("config: %s: %w", strings.Join(msgs, "; "), errors.Join(errs...))
}

// ValidateDetailed checks every field of cfg and reports every
// violation found, distinguishing hard errors from warnings.
func ValidateDetailed(cfg Config) ValidationResult {
	var result ValidationResult
	result.Valid = true

	if cfg.SlotsPerEpoch == 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field: "SlotsPerEpoch", Value: cfg.SlotsPerEpoch,
			Constraint: "must be >= 1", Severity: "error",
		})
		result.Valid = false
	}
	if cfg.TransitionFrontierSize == 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field: "TransitionFrontierSize", Value: cfg.TransitionFrontierSize,
			Constraint: "must be >= 1", Severity: "error",
		})
		result.Valid = false
	}
	if cfg.StreamingRPCTimeout <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field: "StreamingRPCTimeout", Value: cfg.StreamingRPCTimeout,
			Constraint: "must be positive", Severity: "error",
		})
		result.Valid = false
	}
	if cfg.DefaultStreamWindow <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field: "DefaultStreamWindow", Value: cfg.DefaultStreamWindow,
			Constraint: "must be positive", Severity: "error",
		})
		result.Valid = false
	}
	if cfg.TransitionFrontierSize >= cfg.SlotsPerEpoch {
		result.Warnings = append(result.Warnings, ValidationError{
			Field: "TransitionFrontierSize", Value: cfg.TransitionFrontierSize,
			Constraint: "should be smaller than SlotsPerEpoch, or next-epoch gating never triggers within one epoch",
			Severity:   "warning",
		})
	}

	return result
}

/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package agent

import (
	"errors"
	"fmt"
)

// ValidationError marks a failure as client-attributable: the input (or the
// accumulated state derived from it) was rejected before any external call.
// Callers use this to decide between rejecting the request outright and
// retrying against the same session. Anything not wrapped in ValidationError
// is a downstream-infrastructure failure.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) (*ValidationError, bool) {
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr, true
	}
	return nil, false
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fixers

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInference is returned when a fixer located the construct but
	// could not determine a type confidently enough to write one.
	ErrNoInference = errors.New("no confident type inference")

	// ErrVersionGated is returned when a fix requires a newer PHP target
	// version than configured.
	ErrVersionGated = errors.New("fix requires a newer PHP version")
)

// InferenceError carries the member a type could not be inferred for.
type InferenceError struct {
	Member string
	Err    error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inferring type for %s: %v", e.Member, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

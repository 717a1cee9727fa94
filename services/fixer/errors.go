// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fixer

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPaths is returned when Run is called without any target paths.
	ErrNoPaths = errors.New("no paths to analyze")

	// ErrNoRunner is returned when the service was built without an
	// analyzer runner.
	ErrNoRunner = errors.New("no analyzer runner configured")
)

// AnalyzerError wraps an analyzer invocation failure. It is fatal to the
// run: without analyzer output there is nothing to fix.
type AnalyzerError struct {
	Pass int
	Err  error
}

func (e *AnalyzerError) Error() string {
	return fmt.Sprintf("analyzer failed on pass %d: %v", e.Pass, e.Err)
}

func (e *AnalyzerError) Unwrap() error {
	return e.Err
}

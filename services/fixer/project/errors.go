// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package project

import "errors"

// Common errors for project discovery operations.
var (
	// ErrInvalidRoot indicates the root path does not exist or is not a
	// directory.
	ErrInvalidRoot = errors.New("invalid project root")

	// ErrPathTraversal indicates a path escapes the project root.
	ErrPathTraversal = errors.New("path escapes project root")
)

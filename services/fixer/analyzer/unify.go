// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"sort"
	"strings"
)

// maxUnionMembers is the widest union Unify will synthesize before
// collapsing to mixed.
const maxUnionMembers = 3

// Unify collapses candidate type observations into one type string.
//
// # Description
//
// Null-like candidates are tracked separately from concrete ones. A single
// distinct concrete type wins outright. Up to maxUnionMembers distinct
// concrete types become a sorted union joined with "|". More than that
// collapses to "mixed". When null was observed alongside concrete types it
// is appended as a trailing "|null"; when only null was observed the
// result is "mixed", since null alone says nothing useful about intent.
//
// # Inputs
//
//   - candidates: type strings in observation order; empty strings are
//     skipped.
//
// # Outputs
//
//   - string: the unified type, "" when nothing usable was observed.
func Unify(candidates []string) string {
	seen := make(map[string]struct{})
	var concrete []string
	sawNull := false

	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		// A candidate may itself be a union from an earlier unification.
		for _, part := range strings.Split(c, "|") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if isNullLike(part) {
				sawNull = true
				continue
			}
			if _, dup := seen[part]; dup {
				continue
			}
			seen[part] = struct{}{}
			concrete = append(concrete, part)
		}
	}

	if len(concrete) == 0 {
		if sawNull {
			return "mixed"
		}
		return ""
	}

	if len(concrete) > maxUnionMembers {
		return "mixed"
	}

	sort.Strings(concrete)
	result := strings.Join(concrete, "|")
	if sawNull {
		result += "|null"
	}
	return result
}

// isNullLike reports whether a type token denotes null.
func isNullLike(t string) bool {
	return strings.EqualFold(t, "null")
}

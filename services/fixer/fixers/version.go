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
	"strings"

	"golang.org/x/mod/semver"
)

// versionAtLeast reports whether the target PHP version is at or above
// floor. Versions are plain "8.1" strings; comparison canonicalizes them
// to the v-prefixed form semver expects. An unparseable target fails the
// gate: an unknown version never unlocks version-gated fixes.
func versionAtLeast(target, floor string) bool {
	t := canonicalVersion(target)
	f := canonicalVersion(floor)
	if !semver.IsValid(t) || !semver.IsValid(f) {
		return false
	}
	return semver.Compare(t, f) >= 0
}

func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "v")
	if v == "" {
		return ""
	}
	return "v" + v
}

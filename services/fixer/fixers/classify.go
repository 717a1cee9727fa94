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
	"regexp"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

// Kind tags. Classification derives the tag from the message text, not
// from the analyzer's own identifier.
const (
	KindMissingReturnType    = "missing_return_type"
	KindMissingParamType     = "missing_param_type"
	KindMissingPropertyType  = "missing_property_type"
	KindIterableValueType    = "iterable_value_type"
	KindGenericType          = "generic_type"
	KindUnusedVariable       = "unused_variable"
	KindUndefinedVariable    = "undefined_variable"
	KindStrictComparison     = "strict_comparison"
	KindNullCoalescing       = "null_coalescing"
	KindUnionType            = "union_type"
	KindNullableType         = "nullable_type"
	KindReadonlyProperty     = "readonly_property"
	KindEnumCase             = "enum_case"
	KindConstructorPromotion = "constructor_promotion"
	KindPropertyHook         = "property_hook"
	KindAsymmetricVisibility = "asymmetric_visibility"
	KindTypeConsistency      = "type_consistency"
	KindDocblockParamType    = "docblock_param_type"
	KindStrictTypes          = "strict_types"
	KindDefaultValueMismatch = "default_value_mismatch"
)

// kindPattern pairs a kind tag with the message shape that selects it.
type kindPattern struct {
	kind string
	re   *regexp.Regexp
}

// kindPatterns is ordered: the first matching pattern wins. More specific
// shapes sit above the generic "no type specified" family they overlap
// with.
var kindPatterns = []kindPattern{
	{KindIterableValueType, regexp.MustCompile(`no value type specified in iterable type`)},
	{KindGenericType, regexp.MustCompile(`generic (class|interface) .* (but )?does not specify its types`)},
	{KindMissingReturnType, regexp.MustCompile(`has no return type specified`)},
	{KindMissingParamType, regexp.MustCompile(`has parameter \$\w+ with no type specified`)},
	{KindMissingPropertyType, regexp.MustCompile(`Property .* has no type specified`)},
	{KindNullableType, regexp.MustCompile(`does not accept default value of type null`)},
	{KindDefaultValueMismatch, regexp.MustCompile(`does not accept default value of type`)},
	{KindUnusedVariable, regexp.MustCompile(`(Unused variable|is never (used|read))`)},
	{KindUndefinedVariable, regexp.MustCompile(`(Undefined variable|might not be defined)`)},
	{KindStrictComparison, regexp.MustCompile(`(Loose comparison via "[!=]=" is not allowed|Construct empty\(\) is not allowed)`)},
	{KindNullCoalescing, regexp.MustCompile(`(Short ternary operator is not allowed|null coalescing operator)`)},
	{KindUnionType, regexp.MustCompile(`(union type|multiple candidate types)`)},
	{KindReadonlyProperty, regexp.MustCompile(`could be (declared )?readonly`)},
	{KindEnumCase, regexp.MustCompile(`(backed enum|contains only constants)`)},
	{KindConstructorPromotion, regexp.MustCompile(`(can|could) be promoted to constructor`)},
	{KindPropertyHook, regexp.MustCompile(`property hook`)},
	{KindAsymmetricVisibility, regexp.MustCompile(`(asymmetric visibility|written only (from|inside))`)},
	{KindTypeConsistency, regexp.MustCompile(`PHPDoc tag @\w+ .* (is incompatible with|does not match) native type`)},
	{KindDocblockParamType, regexp.MustCompile(`(missing @param tag|has no @param)`)},
	{KindStrictTypes, regexp.MustCompile(`strict_types`)},
}

// Classify derives the kind tag for a diagnostic from its message.
// Returns "" when no pattern matches; resolution then falls back to the
// full registry scan.
func Classify(d phpstan.Diagnostic) string {
	for _, p := range kindPatterns {
		if p.re.MatchString(d.Message) {
			return p.kind
		}
	}
	return ""
}

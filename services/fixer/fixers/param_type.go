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

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/analyzer"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/cache"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpast"
	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

const paramTypeWindow = 5

// MissingParamType adds a native parameter type inferred from the default
// value, the type cache, or flow-cache joins into typed properties.
type MissingParamType struct {
	deps Deps
}

func NewMissingParamType(deps Deps) *MissingParamType {
	return &MissingParamType{deps: deps}
}

func (f *MissingParamType) Name() string { return "missing_param_type" }

func (f *MissingParamType) Kinds() []string { return []string{KindMissingParamType} }

func (f *MissingParamType) CanFix(d phpstan.Diagnostic) bool {
	return strings.Contains(d.Message, "with no type specified") &&
		strings.Contains(d.Message, "parameter $")
}

func (f *MissingParamType) Fix(source string, d phpstan.Diagnostic) (string, error) {
	paramName, ok := paramRef(d.Message)
	if !ok {
		return source, nil
	}

	file := parseModel(source)
	if file == nil {
		return source, nil
	}
	src := phpast.NewSource([]byte(source))

	if class, method, ok := methodRef(d.Message); ok {
		c, m := methodNear(file, class, method, d.Line, paramTypeWindow)
		if m == nil {
			return source, nil
		}
		param := m.FindParam(paramName)
		if param == nil || param.Type != "" {
			return source, nil
		}

		inferred := f.inferMethodParam(c, m, param)
		if inferred == "" {
			return source, &InferenceError{Member: class + "::" + method + "::$" + paramName, Err: ErrNoInference}
		}
		if !addParamType(src, param.Line, param.Name, inferred) {
			return source, nil
		}
		if f.deps.Analyzer != nil {
			f.deps.Analyzer.RecordParameterType(c.Name, m.Name, param.Name, cache.TypeInfo{Native: inferred}, d.File)
		}
		return src.String(), nil
	}

	if name, ok := functionRef(d.Message); ok {
		fn := functionNear(file, name, d.Line, paramTypeWindow)
		if fn == nil {
			return source, nil
		}
		var param *phpast.Param
		for _, p := range fn.Params {
			if p.Name == paramName {
				param = p
				break
			}
		}
		if param == nil || param.Type != "" {
			return source, nil
		}

		inferred := inferParamLocal(param)
		if inferred == "" {
			return source, &InferenceError{Member: name + "::$" + paramName, Err: ErrNoInference}
		}
		if !addParamType(src, param.Line, param.Name, inferred) {
			return source, nil
		}
		return src.String(), nil
	}

	return source, nil
}

func (f *MissingParamType) inferMethodParam(c *phpast.Class, m *phpast.Method, param *phpast.Param) string {
	if t := inferParamLocal(param); t != "" {
		return t
	}
	if f.deps.Analyzer != nil {
		if info, ok := f.deps.Analyzer.ParameterType(c.Name, m.Name, param.Name); ok && info.Native != "" {
			return nativeFromUnion(info.Native)
		}
	}
	return ""
}

// inferParamLocal types a parameter from its default value. A null
// default alone is not enough to commit to a type.
func inferParamLocal(param *phpast.Param) string {
	if param.Default == "" {
		return ""
	}
	info := analyzer.InferExpr(param.Default)
	if info.Native == "" || info.Native == "null" {
		return ""
	}
	return info.Native
}

// DocblockParam adds @param tags where native types cannot express the
// requirement, falling back to mixed.
type DocblockParam struct {
	deps Deps
}

func NewDocblockParam(deps Deps) *DocblockParam {
	return &DocblockParam{deps: deps}
}

func (f *DocblockParam) Name() string { return "docblock_param_type" }

func (f *DocblockParam) Kinds() []string { return []string{KindDocblockParamType} }

func (f *DocblockParam) CanFix(d phpstan.Diagnostic) bool {
	return strings.Contains(d.Message, "missing @param tag") ||
		strings.Contains(d.Message, "has no @param")
}

func (f *DocblockParam) Fix(source string, d phpstan.Diagnostic) (string, error) {
	paramName, ok := paramRef(d.Message)
	if !ok {
		return source, nil
	}

	file := parseModel(source)
	if file == nil {
		return source, nil
	}
	src := phpast.NewSource([]byte(source))

	class, method, ok := methodRef(d.Message)
	if !ok {
		return source, nil
	}
	c, m := methodNear(file, class, method, d.Line, paramTypeWindow)
	if m == nil {
		return source, nil
	}
	if docblockHasTag(m.DocComment, "@param", "$"+paramName) {
		return source, nil
	}

	typeName := "mixed"
	if param := m.FindParam(paramName); param != nil {
		if t := inferParamLocal(param); t != "" {
			typeName = t
		} else if f.deps.Analyzer != nil {
			if info, ok := f.deps.Analyzer.ParameterType(c.Name, m.Name, paramName); ok && info.Native != "" {
				typeName = info.Native
			}
		}
	}

	tag := "@param " + typeName + " $" + paramName
	if m.DocComment != "" {
		if !appendDocblockTag(src, m.StartLine, tag) {
			return source, nil
		}
	} else if !insertDocblock(src, m.StartLine, []string{tag}) {
		return source, nil
	}
	return src.String(), nil
}

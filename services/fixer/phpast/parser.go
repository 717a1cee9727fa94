// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package phpast

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"
)

// File size constants for security validation.
const (
	// DefaultMaxFileSize is the maximum file size the parser will accept (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the threshold at which a warning is logged (1MB).
	WarnFileSize = 1 * 1024 * 1024
)

// Option configures a Parser instance.
type Option func(*Parser)

// WithMaxFileSize sets the maximum file size the parser will accept.
func WithMaxFileSize(bytes int64) Option {
	return func(p *Parser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// Parser extracts a File model from PHP source code.
//
// Description:
//
//	Parser uses tree-sitter to parse PHP source and extract the
//	declarations the fixers operate on: classes, properties, methods,
//	parameters, constants, enum cases, plus the return statements and
//	property assignments needed for type inference. Each Parse call
//	creates its own tree-sitter parser instance internally.
//
//	The parser is error-tolerant: syntactically invalid code yields a
//	partial model with HasSyntaxErrors set rather than an error, because
//	PHPStan frequently reports against files the fixers must still read.
//
// Thread Safety:
//
//	Parser instances are safe for concurrent use. Multiple goroutines may
//	call Parse simultaneously on the same Parser instance.
type Parser struct {
	maxFileSize int64
}

// NewParser creates a new Parser with the given options.
//
// Description:
//
//	Creates a Parser configured with sensible defaults. Options can be
//	provided to customize behavior such as maximum file size.
//
// Inputs:
//   - opts: Optional configuration functions (WithMaxFileSize)
//
// Outputs:
//   - *Parser: Configured parser instance, never nil
//
// Thread Safety:
//
//	The returned Parser is safe for concurrent use.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		maxFileSize: DefaultMaxFileSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Parse extracts the declaration model from PHP source code.
//
// Description:
//
//	Parse uses tree-sitter to parse the provided PHP source and build a
//	File model. The parser is error-tolerant and returns partial results
//	for syntactically invalid code. The tree-sitter tree is closed before
//	Parse returns; the File carries no native resources.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//     Note: Tree-sitter parsing itself cannot be interrupted mid-parse.
//   - content: Raw PHP source bytes. Must be valid UTF-8.
//   - filePath: Path to the file (for the model and error reporting).
//
// Outputs:
//   - *File: Extracted model. Never nil on success; may be partial with
//     HasSyntaxErrors set for invalid code.
//   - error: Non-nil for complete failures:
//   - ErrFileTooLarge: Content exceeds maxFileSize
//   - ErrInvalidContent: Content is not valid UTF-8
//   - Context errors: Context was canceled or timed out
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (p *Parser) Parse(ctx context.Context, content []byte, filePath string) (*File, error) {
	ctx, span := startParseSpan(ctx, filePath, len(content))
	defer span.End()

	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	if int64(len(content)) > p.maxFileSize {
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}

	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	// New parser instance per call for thread safety.
	parser := sitter.NewParser()
	parser.SetLanguage(php.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	file := &File{Path: filePath}

	root := tree.RootNode()
	if root == nil {
		file.HasSyntaxErrors = true
		recordParseMetrics(ctx, time.Since(start), false)
		return file, nil
	}

	if root.HasError() {
		file.HasSyntaxErrors = true
	}

	p.walkTopLevel(root, content, file)

	setParseSpanResult(span, len(file.Classes), file.HasSyntaxErrors)
	recordParseMetrics(ctx, time.Since(start), true)

	return file, nil
}

// walkTopLevel visits program-level statements, descending into braced
// namespace bodies.
func (p *Parser) walkTopLevel(node *sitter.Node, content []byte, file *File) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "php_tag":
			if file.OpenTagLine == 0 {
				file.OpenTagLine = int(child.StartPoint().Row + 1)
			}
		case "declare_statement":
			text := nodeText(child, content)
			if strings.Contains(text, "strict_types") && strings.Contains(text, "1") {
				file.StrictTypes = true
			}
		case "namespace_definition":
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				file.Namespace = nodeText(nameNode, content)
			}
			// Braced namespaces nest their declarations in a compound
			// statement.
			if body := child.ChildByFieldName("body"); body != nil {
				p.walkTopLevel(body, content, file)
			}
		case "class_declaration":
			file.Classes = append(file.Classes, p.extractClass(child, content, KindClass))
		case "interface_declaration":
			file.Classes = append(file.Classes, p.extractClass(child, content, KindInterface))
		case "trait_declaration":
			file.Classes = append(file.Classes, p.extractClass(child, content, KindTrait))
		case "enum_declaration":
			file.Classes = append(file.Classes, p.extractEnum(child, content))
		case "function_definition":
			file.Functions = append(file.Functions, p.extractFunction(child, content))
		}
	}
}

// =============================================================================
// CLASS EXTRACTION
// =============================================================================

func (p *Parser) extractClass(node *sitter.Node, content []byte, kind ClassKind) *Class {
	c := &Class{
		Kind:      kind,
		StartLine: int(node.StartPoint().Row + 1),
		EndLine:   int(node.EndPoint().Row + 1),
	}

	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		c.Name = nodeText(nameNode, content)
	}

	mods := extractModifiers(node, content)
	c.Abstract = containsString(mods, "abstract")
	c.Final = containsString(mods, "final")
	c.Readonly = containsString(mods, "readonly")

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "base_clause":
			for j := 0; j < int(child.ChildCount()); j++ {
				n := child.Child(j)
				if n.Type() == "name" || n.Type() == "qualified_name" {
					c.Extends = nodeText(n, content)
				}
			}
		case "class_interface_clause":
			for j := 0; j < int(child.ChildCount()); j++ {
				n := child.Child(j)
				if n.Type() == "name" || n.Type() == "qualified_name" {
					c.Implements = append(c.Implements, nodeText(n, content))
				}
			}
		}
	}

	if body := node.ChildByFieldName("body"); body != nil {
		p.extractMembers(body, content, c)
	}

	return c
}

// extractMembers walks a declaration_list collecting properties, methods,
// and constants, attaching docblocks from preceding comment siblings.
func (p *Parser) extractMembers(body *sitter.Node, content []byte, c *Class) {
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		switch child.Type() {
		case "property_declaration":
			props := p.extractProperties(child, content)
			doc := docCommentBefore(body, i, content)
			for _, prop := range props {
				prop.DocComment = doc
			}
			c.Properties = append(c.Properties, props...)
		case "method_declaration":
			m := p.extractMethod(child, content)
			m.DocComment = docCommentBefore(body, i, content)
			c.Methods = append(c.Methods, m)
		case "const_declaration":
			c.Constants = append(c.Constants, p.extractConstants(child, content)...)
		}
	}
}

func (p *Parser) extractProperties(node *sitter.Node, content []byte) []*Property {
	mods := extractModifiers(node, content)
	visibility := visibilityFrom(mods)
	isStatic := containsString(mods, "static")
	isReadonly := containsString(mods, "readonly")

	typeText := ""
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		typeText = extractTypeText(typeNode, content)
	} else if typeNode := findChildOfTypes(node, typeNodeTypes); typeNode != nil {
		typeText = extractTypeText(typeNode, content)
	}

	startLine := int(node.StartPoint().Row + 1)
	endLine := int(node.EndPoint().Row + 1)

	var props []*Property
	for i := 0; i < int(node.ChildCount()); i++ {
		elem := node.Child(i)
		if elem.Type() != "property_element" {
			continue
		}

		varNode := findChildByType(elem, "variable_name")
		if varNode == nil {
			continue
		}

		prop := &Property{
			Name:       strings.TrimPrefix(nodeText(varNode, content), "$"),
			Type:       typeText,
			Visibility: visibility,
			Static:     isStatic,
			Readonly:   isReadonly,
			Line:       int(varNode.StartPoint().Row + 1),
			StartLine:  startLine,
			EndLine:    endLine,
		}

		if valueNode := initializerOf(elem); valueNode != nil {
			prop.Default = nodeText(valueNode, content)
		}

		props = append(props, prop)
	}

	return props
}

// initializerOf finds the initializer expression of a property_element or
// const_element, tolerating grammars with and without a value field.
func initializerOf(elem *sitter.Node) *sitter.Node {
	if valueNode := elem.ChildByFieldName("value"); valueNode != nil {
		return valueNode
	}
	for i := 0; i < int(elem.ChildCount()); i++ {
		child := elem.Child(i)
		if child.Type() == "property_initializer" {
			return initializerOf(child)
		}
		if child.Type() == "=" && i+1 < int(elem.ChildCount()) {
			return elem.Child(i + 1)
		}
	}
	return nil
}

func (p *Parser) extractMethod(node *sitter.Node, content []byte) *Method {
	mods := extractModifiers(node, content)

	m := &Method{
		Visibility: visibilityFrom(mods),
		Static:     containsString(mods, "static"),
		Abstract:   containsString(mods, "abstract"),
		Final:      containsString(mods, "final"),
		StartLine:  int(node.StartPoint().Row + 1),
		EndLine:    int(node.EndPoint().Row + 1),
	}
	m.SignatureLine = m.StartLine

	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		m.Name = nodeText(nameNode, content)
		m.SignatureLine = int(nameNode.StartPoint().Row + 1)
	}

	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		m.Params = extractParams(paramsNode, content)
	}

	if retNode := node.ChildByFieldName("return_type"); retNode != nil {
		m.ReturnType = extractTypeText(retNode, content)
	}

	if body := node.ChildByFieldName("body"); body != nil {
		m.BodyStartLine = int(body.StartPoint().Row + 1)
		m.BodyEndLine = int(body.EndPoint().Row + 1)
		m.Returns = collectReturns(body, content)
		m.Assignments = collectAssignments(body, content)
	}

	return m
}

func (p *Parser) extractFunction(node *sitter.Node, content []byte) *Function {
	fn := &Function{
		StartLine: int(node.StartPoint().Row + 1),
		EndLine:   int(node.EndPoint().Row + 1),
	}
	fn.SignatureLine = fn.StartLine

	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		fn.Name = nodeText(nameNode, content)
		fn.SignatureLine = int(nameNode.StartPoint().Row + 1)
	}

	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		fn.Params = extractParams(paramsNode, content)
	}

	if retNode := node.ChildByFieldName("return_type"); retNode != nil {
		fn.ReturnType = extractTypeText(retNode, content)
	}

	if body := node.ChildByFieldName("body"); body != nil {
		fn.BodyStartLine = int(body.StartPoint().Row + 1)
		fn.BodyEndLine = int(body.EndPoint().Row + 1)
		fn.Returns = collectReturns(body, content)
	}

	return fn
}

func (p *Parser) extractConstants(node *sitter.Node, content []byte) []*Constant {
	mods := extractModifiers(node, content)
	visibility := visibilityFrom(mods)

	var consts []*Constant
	for i := 0; i < int(node.ChildCount()); i++ {
		elem := node.Child(i)
		if elem.Type() != "const_element" {
			continue
		}

		con := &Constant{
			Visibility: visibility,
			Line:       int(elem.StartPoint().Row + 1),
		}

		if nameNode := elem.ChildByFieldName("name"); nameNode != nil {
			con.Name = nodeText(nameNode, content)
		} else if nameNode := findChildByType(elem, "name"); nameNode != nil {
			con.Name = nodeText(nameNode, content)
		}

		if valueNode := initializerOf(elem); valueNode != nil {
			con.Value = nodeText(valueNode, content)
		}

		if con.Name != "" {
			consts = append(consts, con)
		}
	}

	return consts
}

func (p *Parser) extractEnum(node *sitter.Node, content []byte) *Class {
	c := &Class{
		Kind:      KindEnum,
		StartLine: int(node.StartPoint().Row + 1),
		EndLine:   int(node.EndPoint().Row + 1),
	}

	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		c.Name = nodeText(nameNode, content)
	}

	// Backed enums carry ": string" or ": int" after the name.
	if bt := findChildByType(node, "primitive_type"); bt != nil {
		c.BackingType = nodeText(bt, content)
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		body = findChildByType(node, "enum_declaration_list")
	}
	if body == nil {
		return c
	}

	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		switch child.Type() {
		case "enum_case":
			ec := &EnumCase{Line: int(child.StartPoint().Row + 1)}
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				ec.Name = nodeText(nameNode, content)
			}
			if valueNode := child.ChildByFieldName("value"); valueNode != nil {
				ec.Value = nodeText(valueNode, content)
			}
			c.Cases = append(c.Cases, ec)
		case "method_declaration":
			m := p.extractMethod(child, content)
			m.DocComment = docCommentBefore(body, i, content)
			c.Methods = append(c.Methods, m)
		case "const_declaration":
			c.Constants = append(c.Constants, p.extractConstants(child, content)...)
		}
	}

	return c
}

// =============================================================================
// PARAMETERS
// =============================================================================

func extractParams(node *sitter.Node, content []byte) []*Param {
	var params []*Param

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "simple_parameter", "variadic_parameter", "property_promotion_parameter":
			if param := extractParam(child, content); param.Name != "" {
				params = append(params, param)
			}
		}
	}

	return params
}

func extractParam(node *sitter.Node, content []byte) *Param {
	param := &Param{
		Line:     int(node.StartPoint().Row + 1),
		Variadic: node.Type() == "variadic_parameter",
		Promoted: node.Type() == "property_promotion_parameter",
	}

	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		param.Type = extractTypeText(typeNode, content)
	}

	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		param.Name = strings.TrimPrefix(nodeText(nameNode, content), "$")
	} else if nameNode := findChildByType(node, "variable_name"); nameNode != nil {
		param.Name = strings.TrimPrefix(nodeText(nameNode, content), "$")
	}

	if defNode := node.ChildByFieldName("default_value"); defNode != nil {
		param.Default = nodeText(defNode, content)
	} else if defNode := initializerOf(node); defNode != nil {
		param.Default = nodeText(defNode, content)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "&", "reference_modifier":
			param.ByRef = true
		case "...":
			param.Variadic = true
		case "visibility_modifier":
			param.PromotedVisibility = nodeText(child, content)
		case "readonly_modifier":
			param.PromotedReadonly = true
		}
	}

	if param.Promoted && param.PromotedVisibility == "" {
		param.PromotedVisibility = "public"
	}

	return param
}

// =============================================================================
// BODY ANALYSIS
// =============================================================================

// collectReturns walks a method body collecting return statements. Nested
// closures and arrow functions are skipped; their returns belong to the
// closure, not the enclosing method.
func collectReturns(body *sitter.Node, content []byte) []*ReturnStatement {
	var returns []*ReturnStatement

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			switch child.Type() {
			case "anonymous_function_creation_expression", "anonymous_function", "arrow_function":
				continue
			case "return_statement":
				returns = append(returns, extractReturn(child, content))
			}
			walk(child)
		}
	}
	walk(body)

	return returns
}

func extractReturn(node *sitter.Node, content []byte) *ReturnStatement {
	ret := &ReturnStatement{Line: int(node.StartPoint().Row + 1)}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if !child.IsNamed() || child.Type() == "comment" {
			continue
		}
		ret.Expr = nodeText(child, content)
		ret.Property = thisPropertyName(child, content)
		if child.Type() == "variable_name" {
			name := strings.TrimPrefix(ret.Expr, "$")
			if name != "this" {
				ret.Variable = name
			}
		}
		break
	}

	return ret
}

// collectAssignments walks a method body collecting $this->prop = expr and
// $this->other->prop = expr assignments. Compound assignments and nested
// closures are skipped.
func collectAssignments(body *sitter.Node, content []byte) []*PropertyAssignment {
	var assigns []*PropertyAssignment

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			switch child.Type() {
			case "anonymous_function_creation_expression", "anonymous_function", "arrow_function":
				continue
			case "assignment_expression":
				if a := extractAssignment(child, content); a != nil {
					assigns = append(assigns, a)
				}
			}
			walk(child)
		}
	}
	walk(body)

	return assigns
}

func extractAssignment(node *sitter.Node, content []byte) *PropertyAssignment {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil || right == nil {
		return nil
	}

	propName := thisPropertyName(left, content)
	via := ""
	if propName == "" {
		// $this->other->prop = expr
		if left.Type() == "member_access_expression" {
			object := left.ChildByFieldName("object")
			nameNode := left.ChildByFieldName("name")
			if object != nil && nameNode != nil {
				if inner := thisPropertyName(object, content); inner != "" {
					via = inner
					propName = nodeText(nameNode, content)
				}
			}
		}
	}
	if propName == "" {
		return nil
	}

	a := &PropertyAssignment{
		Line:        int(node.StartPoint().Row + 1),
		Property:    propName,
		ViaProperty: via,
		Expr:        nodeText(right, content),
	}

	if right.Type() == "variable_name" {
		name := strings.TrimPrefix(a.Expr, "$")
		if name != "this" {
			a.FromParam = name
		}
	}

	return a
}

// thisPropertyName returns the property name when node is exactly
// $this->name, else "".
func thisPropertyName(node *sitter.Node, content []byte) string {
	if node.Type() != "member_access_expression" {
		return ""
	}

	object := node.ChildByFieldName("object")
	nameNode := node.ChildByFieldName("name")
	if object == nil || nameNode == nil {
		return ""
	}
	if object.Type() != "variable_name" || nodeText(object, content) != "$this" {
		return ""
	}

	return nodeText(nameNode, content)
}

// =============================================================================
// NODE HELPERS
// =============================================================================

// typeNodeTypes lists the node types that can appear as a declared type.
var typeNodeTypes = []string{
	"primitive_type", "named_type", "optional_type", "union_type",
	"intersection_type", "qualified_name", "name",
}

func nodeText(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}

func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == nodeType {
			return child
		}
	}
	return nil
}

func findChildOfTypes(node *sitter.Node, nodeTypes []string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		for _, t := range nodeTypes {
			if child.Type() == t {
				return child
			}
		}
	}
	return nil
}

// extractModifiers collects modifier keywords from a declaration node,
// looking one level into modifier lists as some grammar versions nest them.
func extractModifiers(node *sitter.Node, content []byte) []string {
	var mods []string

	appendMod := func(n *sitter.Node) {
		switch n.Type() {
		case "visibility_modifier":
			mods = append(mods, nodeText(n, content))
		case "static_modifier":
			mods = append(mods, "static")
		case "final_modifier":
			mods = append(mods, "final")
		case "abstract_modifier":
			mods = append(mods, "abstract")
		case "readonly_modifier":
			mods = append(mods, "readonly")
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		appendMod(child)
		if child.Type() == "modifier_list" {
			for j := 0; j < int(child.ChildCount()); j++ {
				appendMod(child.Child(j))
			}
		}
	}

	return mods
}

func visibilityFrom(mods []string) string {
	for _, m := range mods {
		switch m {
		case "public", "protected", "private":
			return m
		}
	}
	return "public"
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// extractTypeText renders a type node as written, normalizing child order
// for compound types.
func extractTypeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}

	switch node.Type() {
	case "primitive_type", "named_type", "name", "qualified_name", "bottom_type":
		return cleanTypeText(nodeText(node, content))
	case "optional_type":
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() != "?" {
				return "?" + extractTypeText(child, content)
			}
		}
	case "union_type":
		var types []string
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() != "|" {
				types = append(types, extractTypeText(child, content))
			}
		}
		return strings.Join(types, "|")
	case "intersection_type":
		var types []string
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() != "&" {
				types = append(types, extractTypeText(child, content))
			}
		}
		return strings.Join(types, "&")
	case "type_list":
		var types []string
		for i := 0; i < int(node.ChildCount()); i++ {
			t := extractTypeText(node.Child(i), content)
			if t != "" && t != ":" && t != "|" && t != "&" {
				types = append(types, t)
			}
		}
		if len(types) == 1 {
			return types[0]
		}
		return strings.Join(types, "|")
	}

	return cleanTypeText(nodeText(node, content))
}

// cleanTypeText strips the colon some grammar versions include in return
// type nodes.
func cleanTypeText(text string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), ":"))
}

// docCommentBefore returns the docblock comment immediately preceding the
// child at index, "" when the preceding sibling is not an adjacent /** block.
func docCommentBefore(parent *sitter.Node, index int, content []byte) string {
	if index == 0 {
		return ""
	}

	prev := parent.Child(index - 1)
	if prev.Type() != "comment" {
		return ""
	}

	text := nodeText(prev, content)
	if !strings.HasPrefix(text, "/**") {
		return ""
	}

	cur := parent.Child(index)
	if int(cur.StartPoint().Row)-int(prev.EndPoint().Row) > 1 {
		return ""
	}

	return text
}

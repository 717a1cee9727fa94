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
	"testing"

	"github.com/kenaths/phpstan-fixer-sub000/services/fixer/phpstan"
)

func TestReadonlyProperty_ConstructorOnlyWrite(t *testing.T) {
	source := `<?php
class User {
    private int $id;

    public function __construct(int $id) {
        $this->id = $id;
    }
}
`
	f := NewReadonlyProperty(Deps{PHPVersion: "8.1"})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property User::$id could be declared readonly.",
	})
	wantContains(t, got, "private readonly int $id;")
}

func TestReadonlyProperty_SetterBlocks(t *testing.T) {
	source := `<?php
class User {
    private int $id;

    public function __construct(int $id) {
        $this->id = $id;
    }

    public function setId(int $id) {
        $this->id = $id;
    }
}
`
	f := NewReadonlyProperty(Deps{PHPVersion: "8.1"})
	mustNotChange(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property User::$id could be declared readonly.",
	})
}

func TestReadonlyProperty_UntypedBlocks(t *testing.T) {
	source := `<?php
class User {
    private $id;

    public function __construct(int $id) {
        $this->id = $id;
    }
}
`
	f := NewReadonlyProperty(Deps{PHPVersion: "8.1"})
	mustNotChange(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property User::$id could be declared readonly.",
	})
}

func TestEnumConversion_StringConstants(t *testing.T) {
	source := `<?php
class Suit {
    const HEARTS = 'hearts';
    const SPADES = 'spades';
}
`
	f := NewEnumConversion(Deps{PHPVersion: "8.1"})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Class Suit could be converted to a backed enum.",
	})
	wantContains(t, got, "enum Suit: string {")
	wantContains(t, got, "case HEARTS = 'hearts';")
	wantContains(t, got, "case SPADES = 'spades';")
	wantNotContains(t, got, "const ")
}

func TestEnumConversion_MixedConstantTypesBlock(t *testing.T) {
	source := `<?php
class Limits {
    const MAX = 10;
    const NAME = 'limits';
}
`
	f := NewEnumConversion(Deps{PHPVersion: "8.1"})
	mustNotChange(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Class Limits could be converted to a backed enum.",
	})
}

func TestEnumConversion_MethodsBlock(t *testing.T) {
	source := `<?php
class Suit {
    const HEARTS = 'hearts';

    public function label() {
        return self::HEARTS;
    }
}
`
	f := NewEnumConversion(Deps{PHPVersion: "8.1"})
	mustNotChange(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Class Suit could be converted to a backed enum.",
	})
}

func TestConstructorPromotion(t *testing.T) {
	source := `<?php
class Point {
    private int $x;

    public function __construct(int $x) {
        $this->x = $x;
    }
}
`
	f := NewConstructorPromotion(Deps{PHPVersion: "8.0"})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property Point::$x can be promoted to constructor parameter.",
	})
	wantContains(t, got, "public function __construct(private int $x) {")
	wantNotContains(t, got, "private int $x;")
	wantNotContains(t, got, "$this->x = $x;")
}

func TestConstructorPromotion_NoMatchingAssignment(t *testing.T) {
	source := `<?php
class Point {
    private int $x;

    public function __construct(int $raw) {
        $this->x = $raw * 2;
    }
}
`
	f := NewConstructorPromotion(Deps{PHPVersion: "8.0"})
	mustNotChange(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property Point::$x can be promoted to constructor parameter.",
	})
}

func TestPropertyHook_ReplacesAccessorPair(t *testing.T) {
	source := `<?php
class User {
    private string $name;

    public function getName() {
        return $this->name;
    }

    public function setName(string $name) {
        $this->name = $name;
    }
}
`
	f := NewPropertyHook(Deps{PHPVersion: "8.4"})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property User::$name has a trivial getter/setter pair convertible to a property hook.",
	})
	wantContains(t, got, "public string $name;")
	wantNotContains(t, got, "getName")
	wantNotContains(t, got, "setName")
}

func TestPropertyHook_NonTrivialSetterBlocks(t *testing.T) {
	source := `<?php
class User {
    private string $name;

    public function getName() {
        return $this->name;
    }

    public function setName(string $name) {
        $this->name = trim($name);
    }
}
`
	f := NewPropertyHook(Deps{PHPVersion: "8.4"})
	mustNotChange(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property User::$name has a trivial getter/setter pair convertible to a property hook.",
	})
}

func TestAsymmetricVisibility(t *testing.T) {
	source := `<?php
class Counter {
    public int $count = 0;
}
`
	f := NewAsymmetricVisibility(Deps{PHPVersion: "8.4"})
	got := mustFix(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property Counter::$count is written only from inside the class.",
	})
	wantContains(t, got, "public private(set) int $count = 0;")
}

func TestAsymmetricVisibility_Idempotent(t *testing.T) {
	source := `<?php
class Counter {
    public private(set) int $count = 0;
}
`
	f := NewAsymmetricVisibility(Deps{PHPVersion: "8.4"})
	mustNotChange(t, f, source, phpstan.Diagnostic{
		Line:    3,
		Message: "Property Counter::$count is written only from inside the class.",
	})
}

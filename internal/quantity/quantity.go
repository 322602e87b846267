// Package quantity parses and formats water amounts. Every amount is held in
// milliliters; units only matter at the edges (user input and display).
package quantity

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unit is a display and input unit.
type Unit string

const (
	Milliliters Unit = "Milliliters"
	Liters      Unit = "Liters"
	Ounces      Unit = "Ounces"
)

// Units lists every supported unit in display order.
var Units = []Unit{Milliliters, Liters, Ounces}

// Quantity is an amount of water in milliliters.
type Quantity float64

// ML returns the amount as a plain float64 of milliliters.
func (q Quantity) ML() float64 { return float64(q) }

// OunceFactor is the number of milliliters in one fluid ounce.
const OunceFactor = 29.574

// LiterThreshold is the amount from which Liters displays switch from ml to L.
const LiterThreshold = 1000

var unitSuffix = map[Unit]string{
	Milliliters: "ml",
	Liters:      "L",
	Ounces:      "oz",
}

// suffixes are matched in this order so that "ml" wins over a bare "l".
var suffixes = []struct {
	suffix string
	factor float64
}{
	{"ml", 1},
	{"l", 1000},
	{"oz", OunceFactor},
}

// ErrInvalidNumber is matched by errors.Is for any ParseError of kind InvalidNumber.
var ErrInvalidNumber = errors.New("invalid number")

// ErrorKind classifies a ParseError.
type ErrorKind int

const (
	InvalidNumber ErrorKind = iota + 1
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidNumber:
		return "invalid number"
	default:
		return "unknown"
	}
}

// ParseError reports text that could not be read as a quantity.
type ParseError struct {
	Kind  ErrorKind
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("parsing quantity: %s: empty input", e.Kind)
	}
	return fmt.Sprintf("parsing quantity %q: %s", e.Input, e.Kind)
}

// Unwrap exposes the underlying strconv error, if any.
func (e *ParseError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrInvalidNumber) match.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidNumber && e.Kind == InvalidNumber
}

// Parse reads a free-form amount such as "500ml", "1,5L" or "16 oz" and
// returns it in milliliters. A bare number is read in contextUnit: ounces
// for Ounces, milliliters otherwise. Negative values are returned as-is.
func Parse(raw string, contextUnit Unit) (Quantity, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if s == "" {
		return 0, &ParseError{Kind: InvalidNumber, Input: raw}
	}

	factor := 1.0
	if contextUnit == Ounces {
		factor = OunceFactor
	}

	for _, sfx := range suffixes {
		n := len(sfx.suffix)
		if len(s) >= n && strings.EqualFold(s[len(s)-n:], sfx.suffix) {
			s = strings.TrimSpace(s[:len(s)-n])
			factor = sfx.factor
			break
		}
	}

	if hasBasePrefix(s) {
		return 0, &ParseError{Kind: InvalidNumber, Input: raw}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ParseError{Kind: InvalidNumber, Input: raw, Err: err}
	}
	ml := v * factor
	if math.IsNaN(ml) || math.IsInf(ml, 0) {
		return 0, &ParseError{Kind: InvalidNumber, Input: raw}
	}

	return Quantity(ml), nil
}

// hasBasePrefix reports a 0x-style prefix after an optional sign.
// ParseFloat would read "0x1p4" as 16.
func hasBasePrefix(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// Format renders amount for display in unit. Ounces always show one decimal,
// liters show one decimal from 1000 ml upwards, everything else is whole
// milliliters.
func Format(amount Quantity, unit Unit) string {
	ml := float64(amount)

	switch {
	case unit == Ounces:
		return formatFixed(ml/OunceFactor, 1) + "oz"
	case unit == Liters && ml >= LiterThreshold:
		return formatFixed(ml/1000, 1) + "L"
	default:
		return formatFixed(ml, 0) + "ml"
	}
}

func formatFixed(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	// -0.4 rounds to "-0"; show it as zero.
	if strings.TrimLeft(s, "-0.") == "" {
		s = strings.TrimPrefix(s, "-")
	}
	return s
}

// Suffix returns the short suffix used when displaying amounts in u.
func (u Unit) Suffix() string {
	if s, ok := unitSuffix[u]; ok {
		return s
	}
	return "ml"
}

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	_, ok := unitSuffix[u]
	return ok
}

// Placeholder is the example amount shown in an empty entry field.
func (u Unit) Placeholder() string {
	if u == Ounces {
		return "16oz"
	}
	return "500ml"
}

// Next cycles through Units.
func (u Unit) Next() Unit {
	for i, v := range Units {
		if v == u {
			return Units[(i+1)%len(Units)]
		}
	}
	return Liters
}

// ParseUnit accepts a unit name or its abbreviation, case-insensitively.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ml", "milliliter", "milliliters", "millilitre", "millilitres":
		return Milliliters, nil
	case "l", "liter", "liters", "litre", "litres":
		return Liters, nil
	case "oz", "ounce", "ounces", "floz", "fl oz":
		return Ounces, nil
	}
	return "", fmt.Errorf("unknown unit %q (want ml, L or oz)", s)
}

// Package currency defines the closed set of currencies an order or product
// may be priced in.
package currency

import (
	"strings"

	"github.com/go-faster/errors"
)

// Currency is an ISO 4217 currency code from the supported set. The zero
// value is not a valid currency.
type Currency uint8

const (
	_ Currency = iota
	USD
	EUR
	GBP
	EGP
	SAR
	AED
	JPY
	CAD
	AUD
)

// Default is the currency assumed when none has been established.
const Default = EGP

// ErrUnknown is returned when parsing a code outside the supported set.
var ErrUnknown = errors.New("unknown currency")

var codes = [...]string{
	USD: "USD",
	EUR: "EUR",
	GBP: "GBP",
	EGP: "EGP",
	SAR: "SAR",
	AED: "AED",
	JPY: "JPY",
	CAD: "CAD",
	AUD: "AUD",
}

var symbols = [...]string{
	USD: "$",
	EUR: "€",
	GBP: "£",
	EGP: "E£",
	SAR: "﷼",
	AED: "د.إ",
	JPY: "¥",
	CAD: "C$",
	AUD: "A$",
}

// All returns every supported currency in display order.
func All() []Currency {
	return []Currency{USD, EUR, GBP, EGP, SAR, AED, JPY, CAD, AUD}
}

// Parse converts an ISO code into a Currency. Matching is exact: "usd" is
// rejected, as stored codes are upper case.
func Parse(code string) (Currency, error) {
	for c := USD; c <= AUD; c++ {
		if codes[c] == code {
			return c, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknown, "%q, must be one of: %s", code, strings.Join(codes[1:], ", "))
}

// Valid reports whether c is one of the supported currencies.
func (c Currency) Valid() bool {
	return c >= USD && c <= AUD
}

// String returns the ISO code, or "" for an invalid value.
func (c Currency) String() string {
	if !c.Valid() {
		return ""
	}
	return codes[c]
}

// Symbol returns the display symbol for the currency.
func (c Currency) Symbol() string {
	if !c.Valid() {
		return ""
	}
	return symbols[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c Currency) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, errors.Errorf("invalid currency %d", uint8(c))
	}
	return []byte(codes[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Currency) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

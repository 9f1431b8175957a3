package domain

import (
	"strings"
	"time"
)

// CardBrand is the card network inferred from the leading digit.
type CardBrand string

const (
	CardBrandVisa       CardBrand = "visa"
	CardBrandMastercard CardBrand = "mastercard"
	CardBrandAmex       CardBrand = "amex"
	CardBrandDiscover   CardBrand = "discover"
	CardBrandUnknown    CardBrand = "unknown"
)

// Card holds the details for the card payment method.
type Card struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"` // MM/YY
	CVV    string `json:"cvv"`
	Name   string `json:"name"`
}

// Digits returns the card number with whitespace removed.
func (c *Card) Digits() string {
	return strings.Join(strings.Fields(c.Number), "")
}

// Brand detects the card network.
func (c *Card) Brand() CardBrand {
	n := c.Digits()
	if n == "" {
		return CardBrandUnknown
	}
	switch n[0] {
	case '4':
		return CardBrandVisa
	case '5', '2':
		return CardBrandMastercard
	case '3':
		return CardBrandAmex
	case '6':
		return CardBrandDiscover
	}
	return CardBrandUnknown
}

// Last4 returns the last four digits, or the whole number if shorter.
func (c *Card) Last4() string {
	n := c.Digits()
	if len(n) <= 4 {
		return n
	}
	return n[len(n)-4:]
}

// LuhnValid reports whether number is 12-19 digits and passes the Luhn checksum.
func LuhnValid(number string) bool {
	if len(number) < 12 || len(number) > 19 {
		return false
	}
	sum := 0
	alternate := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		n := int(c - '0')
		if alternate {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		alternate = !alternate
	}
	return sum%10 == 0
}

// ExpiryValid reports whether a MM/YY expiry is well formed and not before now's month.
func ExpiryValid(expiry string, now time.Time) bool {
	if len(expiry) != 5 || expiry[2] != '/' {
		return false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if expiry[i] < '0' || expiry[i] > '9' {
			return false
		}
	}
	month := int(expiry[0]-'0')*10 + int(expiry[1]-'0')
	year := 2000 + int(expiry[3]-'0')*10 + int(expiry[4]-'0')
	if month < 1 || month > 12 {
		return false
	}
	curYear, curMonth := now.Year(), int(now.Month())
	return year > curYear || (year == curYear && month >= curMonth)
}

// Package sms extracts structured payment events from free-text bank SMS
// notifications. Mongolian banks send transfer confirmations in a handful of
// loosely related formats (Latin transliteration, Cyrillic, or mixed); the
// parser is a fixed set of ordered heuristics over those formats.
package sms

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Known banks, as reported in BankName. Absence of a match leaves the field
// empty (unknown bank).
const (
	BankKhan     = "Khan Bank"
	BankGolomt   = "Golomt Bank"
	BankTDB      = "TDB"
	BankXac      = "XacBank"
	BankState    = "State Bank"
	BankCapitron = "Capitron"
)

// ParsedPayment is the extraction result for one inbound SMS. Zero values
// mean "not extracted": empty strings for code/bank/date, invalid
// NullDecimal for the amount.
type ParsedPayment struct {
	RawMessage string
	From       string
	IsIncoming bool
	// Amount in tugrik, thousands separators stripped. Unset when no
	// pattern yielded a positive number.
	Amount      decimal.NullDecimal
	PaymentCode string
	BankName    string
	// Date as it appeared in the message, not validated. Receipt time is
	// authoritative; this is advisory only.
	Date    string
	IsValid bool
}

var separatorReplacer = strings.NewReplacer(",", "", "'", "")

// Parse extracts payment details from a raw SMS. It is pure and total:
// malformed input yields a ParsedPayment with unset fields and
// IsValid=false, never an error.
func Parse(message, senderID string) ParsedPayment {
	p := ParsedPayment{RawMessage: message, From: senderID}

	msg := strings.TrimSpace(message)
	if msg == "" {
		return p
	}

	p.IsIncoming = incomingRe.MatchString(msg)

	// Confirmed outgoing (debit vocabulary present, incoming absent):
	// stop here, nothing to extract from a transfer we sent. Messages
	// matching both vocabularies are treated as incoming; several bank
	// formats mention "paid" in otherwise-credited notifications.
	if outgoingRe.MatchString(msg) && !p.IsIncoming {
		return p
	}

	for _, d := range bankDetectors {
		if d.pattern.MatchString(msg) || (senderID != "" && d.pattern.MatchString(senderID)) {
			p.BankName = d.name
			break
		}
	}

	for _, re := range amountPatterns {
		m := re.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		amt, err := decimal.NewFromString(separatorReplacer.Replace(m[1]))
		if err != nil || !amt.IsPositive() {
			// Not a usable number; the next pattern may still hit.
			continue
		}
		p.Amount = decimal.NewNullDecimal(amt)
		break
	}

	for _, re := range codePatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			p.PaymentCode = strings.ToUpper(strings.TrimSpace(m[1]))
			break
		}
	}

	for _, re := range datePatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			p.Date = m[1]
			break
		}
	}

	p.IsValid = p.IsIncoming && p.Amount.Valid && p.Amount.Decimal.IsPositive()
	return p
}

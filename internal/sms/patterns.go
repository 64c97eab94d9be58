package sms

import "regexp"

// Pattern tables for Mongolian bank payment notifications. Ordered slices,
// first match wins; treated as immutable configuration after init. New bank
// formats are added here, the parse loop stays untouched.

// Direction vocabulary. "dungeer"/"orlogo" mark credited funds; "zarlaga"
// etc. mark debits. Both Latin transliteration and Cyrillic occur in the
// wild, sometimes mixed within one message.
var (
	incomingRe = regexp.MustCompile(`(?i)dungeer|orlog|орлого|received|credited`)
	outgoingRe = regexp.MustCompile(`(?i)zarlaga|зарлага|debit|sent|paid|payment\s*to`)
)

type bankDetector struct {
	name    string
	pattern *regexp.Regexp
}

// Detectors cover the bank's Latin name, Cyrillic name and known short-code
// prefixes (5765* is Khan Bank's SMS short code family). Evaluated against
// both the message body and the sender id.
var bankDetectors = []bankDetector{
	{BankKhan, regexp.MustCompile(`(?i)khan\s*bank|хаан\s*банк|5765`)},
	{BankGolomt, regexp.MustCompile(`(?i)golomt|голомт`)},
	{BankTDB, regexp.MustCompile(`(?i)tdb|худалдаа.*хөгжил|худалдаа\s*хогжлийн`)},
	{BankXac, regexp.MustCompile(`(?i)xac\s*bank|хас\s*банк`)},
	{BankState, regexp.MustCompile(`(?i)төрийн\s*банк|state\s*bank`)},
	{BankCapitron, regexp.MustCompile(`(?i)capitron|капитрон`)},
}

// Thousands use comma (and occasionally apostrophe) separators; smaller
// amounts come through as bare digit runs.
const numToken = `(\d{1,3}(?:[,']\d{3})+(?:\.\d{2})?|\d+(?:\.\d{2})?)`

var amountPatterns = []*regexp.Regexp{
	// "2,000.00 dungeer" - amount directly adjacent to the incoming marker
	regexp.MustCompile(`(?i)` + numToken + `\s*dungeer`),
	regexp.MustCompile(`(?i)` + numToken + `\s*төгрөг`),
	regexp.MustCompile(`(?i)` + numToken + `\s*togrog`),
	regexp.MustCompile(`(?i)` + numToken + `\s*MNT`),
	regexp.MustCompile(`(?i)орлого[:\s]*` + numToken),
	regexp.MustCompile(`(?i)amount[:\s]*` + numToken),
}

// Reference field carrying the payment code. "Utga" is the transfer memo
// field on Mongolian bank slips. The long form "reference" is tried before
// bare "ref" so the shorter pattern cannot eat the tail of the longer label.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)utga:\s*([A-Z0-9-]+)`),
	regexp.MustCompile(`(?i)утга:\s*([A-Z0-9-]+)`),
	regexp.MustCompile(`(?i)\breference[:\s]+([A-Z0-9-]+)`),
	regexp.MustCompile(`(?i)\bref[:\s]+([A-Z0-9-]+)`),
}

// Labeled date fields first ("Ognoo" = date), then bare date-shaped tokens.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ognoo:\s*(\d{4}-\d{2}-\d{2})`),
	regexp.MustCompile(`(?i)огноо:\s*(\d{4}-\d{2}-\d{2})`),
	regexp.MustCompile(`(\d{4}[-/]\d{2}[-/]\d{2})`),
	regexp.MustCompile(`(\d{2}[-/]\d{2}[-/]\d{4})`),
}

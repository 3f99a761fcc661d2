// Package extract pulls structured billing facts out of the layout-preserved
// text of a single carrier statement. The statement layout is fixed and
// known, so extraction is plain pattern search, not general PDF parsing.
package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sccotte/minvoice/pkg/money"
)

// Record holds the facts extracted from one statement.
type Record struct {
	// Name is the account holder's display name, at most 3 runes.
	Name string
	// Phone is the 11-digit subscriber number.
	Phone string
	// Period is the billing period as yyyymm.
	Period string
	// Amount is the billed amount.
	Amount *money.Amount
	// Source is the path of the statement the record came from.
	Source string
}

// Field labels, used in error reporting.
const (
	FieldName   = "name"
	FieldPhone  = "phone"
	FieldPeriod = "period"
	FieldAmount = "amount"
)

// Statement field patterns. The text comes from a layout-preserving
// extraction, so label and value sit on the same line separated by a
// punctuation run. 账期 and 帐期 are synonymous spellings.
var (
	nameRe   = regexp.MustCompile(`名\s*称\W\s?([\p{Han}]{2,})\s`)
	phoneRe  = regexp.MustCompile(`号码\W\s?(\d{11})`)
	periodRe = regexp.MustCompile(`[账帐]期\W\s?(\d{6})`)
	amountRe = regexp.MustCompile(`\W小写\W+(\d+\.\d{2})`)
)

// ExtractionError reports every field pattern that found no match in one
// statement's text. Partial records are never produced.
type ExtractionError struct {
	Missing []string
	Text    string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("statement text missing fields: %s", strings.Join(e.Missing, ", "))
}

// Extractor applies the statement field patterns.
type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Parse extracts all four billing fields from text. Every pattern is
// attempted regardless of earlier misses, so the error lists the complete
// set of unmatched fields.
func (e *Extractor) Parse(text string) (Record, error) {
	var rec Record
	var missing []string

	if m := nameRe.FindStringSubmatch(text); m != nil {
		rec.Name = e.normalizeName(m[1])
	} else {
		missing = append(missing, FieldName)
	}

	if m := phoneRe.FindStringSubmatch(text); m != nil {
		rec.Phone = m[1]
	} else {
		missing = append(missing, FieldPhone)
	}

	if m := periodRe.FindStringSubmatch(text); m != nil {
		rec.Period = m[1]
	} else {
		missing = append(missing, FieldPeriod)
	}

	if m := amountRe.FindStringSubmatch(text); m != nil {
		amount, err := money.Parse(m[1])
		if err != nil {
			return Record{}, err
		}
		rec.Amount = amount
	} else {
		missing = append(missing, FieldAmount)
	}

	if len(missing) > 0 {
		return Record{}, &ExtractionError{Missing: missing, Text: text}
	}
	return rec, nil
}

// normalizeName keeps the trailing 3 runes of an overlong matched name.
// Long matches are assumed to carry a prefixed extra token (company or
// honorific) in front of the canonical display name.
// TODO: confirm the trailing-3 rule with the billing owners; it is carried
// over from the previous tool unchanged.
func (e *Extractor) normalizeName(name string) string {
	runes := []rune(name)
	if len(runes) <= 3 {
		return name
	}
	short := string(runes[len(runes)-3:])
	e.logger.Warn("name is too long, using the last three characters",
		"name", name, "short", short)
	return short
}

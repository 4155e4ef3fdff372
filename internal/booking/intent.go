// Package booking detects ticket purchase intent in visitor messages and
// resolves it against the shop cart.
package booking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Date is a requested visit date. Year is inferred from the month and the
// configured season year, since visitors rarely spell it out.
type Date struct {
	Day   int
	Month int
	Year  int
}

// monthNames maps Italian month names used during the season.
var monthNames = map[string]int{
	"dicembre": 12,
	"gennaio":  1,
	"febbraio": 2,
}

var monthLabels = map[int]string{
	12: "Dicembre",
	1:  "Gennaio",
	2:  "Febbraio",
}

// Label renders the date the way the shop lists its events.
func (d Date) Label() string {
	return fmt.Sprintf("%d %s %d - 18:00", d.Day, monthLabels[d.Month], d.Year)
}

// blackoutDays lists closure dates as month and day pairs. The attraction
// closes on Christmas Eve and New Year's Eve every season.
var blackoutDays = [][2]int{
	{12, 24},
	{12, 31},
}

// IsBlackout reports whether the attraction is closed on the given date.
func IsBlackout(d Date) bool {
	for _, b := range blackoutDays {
		if d.Month == b[0] && d.Day == b[1] {
			return true
		}
	}
	return false
}

// Valid reports whether the date can exist on a calendar.
func (d Date) Valid() bool {
	if _, ok := monthLabels[d.Month]; !ok {
		return false
	}
	if d.Day < 1 || d.Day > 31 {
		return false
	}
	if d.Month == 2 && d.Day > 29 {
		return false
	}
	return true
}

var (
	intentRe   = regexp.MustCompile(`(?i)(prenotar\w*|comprar\w*|acquistar\w*|voglio|vorrei|devo)[\s\S]{0,40}?bigl?iett[oi]`)
	dateRe     = regexp.MustCompile(`(?i)(\d{1,2})\s+(dicembre|gennaio|febbraio)`)
	quantityRe = regexp.MustCompile(`(?i)(?:^|\s)(\d+)\s+bigl?iett[oi]`)
	variantRe  = regexp.MustCompile(`(?i)ridott|bambin|under`)
)

// Intent is a parsed purchase request.
type Intent struct {
	Dates    []Date
	Quantity int // 0 when the visitor did not say how many
	Variant  string
}

// Detect reports whether the message expresses intent to buy tickets.
func Detect(message string) bool {
	return intentRe.MatchString(message)
}

// Parse extracts dates, quantity and ticket variant from the message.
// December dates fall in the season start year, January and February in the
// following one. The quantity match is discarded when it overlaps a date,
// so "2 biglietti per il 20 dicembre" yields quantity 2 and not day 20.
func Parse(message string, seasonYear int) Intent {
	intent := Intent{Variant: "intero"}

	dateMatches := dateRe.FindAllStringSubmatchIndex(message, -1)
	for _, m := range dateMatches {
		day, err := strconv.Atoi(message[m[2]:m[3]])
		if err != nil {
			continue
		}
		month := monthNames[strings.ToLower(message[m[4]:m[5]])]
		year := seasonYear
		if month != 12 {
			year = seasonYear + 1
		}
		d := Date{Day: day, Month: month, Year: year}
		if d.Valid() {
			intent.Dates = append(intent.Dates, d)
		}
	}

	for _, m := range quantityRe.FindAllStringSubmatchIndex(message, -1) {
		if overlapsAny(m[2], m[3], dateMatches) {
			continue
		}
		if qty, err := strconv.Atoi(message[m[2]:m[3]]); err == nil {
			intent.Quantity = qty
			break
		}
	}

	if variantRe.MatchString(message) {
		intent.Variant = "ridotto"
	}

	return intent
}

func overlapsAny(start, end int, matches [][]int) bool {
	for _, m := range matches {
		if start < m[1] && end > m[0] {
			return true
		}
	}
	return false
}

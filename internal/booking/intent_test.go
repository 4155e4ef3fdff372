package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"vorrei prenotare 2 biglietti per il 20 dicembre", true},
		{"voglio comprare un biglietto", true},
		{"devo acquistare biglietti per domani", true},
		{"vorrei dei biglietti", true},
		{"vorrei prenotare i bigietti", true}, // common typo
		{"a che ora aprite?", false},
		{"quanto costa il parcheggio?", false},
		{"il biglietto è valido tutto il giorno?", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.message))
		})
	}
}

func TestParseDates(t *testing.T) {
	intent := Parse("vorrei prenotare 2 biglietti per il 20 dicembre", 2025)

	require.Len(t, intent.Dates, 1)
	assert.Equal(t, Date{Day: 20, Month: 12, Year: 2025}, intent.Dates[0])
	assert.Equal(t, 2, intent.Quantity)
	assert.Equal(t, "intero", intent.Variant)
}

func TestParseYearInference(t *testing.T) {
	tests := []struct {
		message  string
		wantDate Date
	}{
		{"biglietti per il 20 dicembre", Date{Day: 20, Month: 12, Year: 2025}},
		{"biglietti per il 3 gennaio", Date{Day: 3, Month: 1, Year: 2026}},
		{"biglietti per il 1 febbraio", Date{Day: 1, Month: 2, Year: 2026}},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			intent := Parse(tt.message, 2025)
			require.Len(t, intent.Dates, 1)
			assert.Equal(t, tt.wantDate, intent.Dates[0])
		})
	}
}

func TestParseQuantityDoesNotStealDayOfMonth(t *testing.T) {
	// "20" belongs to the date, not the quantity
	intent := Parse("voglio comprare biglietti per il 20 dicembre", 2025)
	require.Len(t, intent.Dates, 1)
	assert.Equal(t, 0, intent.Quantity)

	// both present and distinct
	intent = Parse("voglio comprare 3 biglietti per il 20 dicembre", 2025)
	assert.Equal(t, 3, intent.Quantity)
	require.Len(t, intent.Dates, 1)
	assert.Equal(t, 20, intent.Dates[0].Day)
}

func TestParseQuantityMixedCase(t *testing.T) {
	intent := Parse("Vorrei 2 Biglietti per il 20 Dicembre", 2025)
	assert.Equal(t, 2, intent.Quantity)
	require.Len(t, intent.Dates, 1)
	assert.Equal(t, 20, intent.Dates[0].Day)
}

func TestParseMultipleDates(t *testing.T) {
	intent := Parse("meglio il 20 dicembre o il 3 gennaio?", 2025)
	require.Len(t, intent.Dates, 2)
	assert.Equal(t, 12, intent.Dates[0].Month)
	assert.Equal(t, 1, intent.Dates[1].Month)
}

func TestParseInvalidDayDiscarded(t *testing.T) {
	intent := Parse("biglietti per il 45 dicembre", 2025)
	assert.Empty(t, intent.Dates)
}

func TestParseVariant(t *testing.T) {
	intent := Parse("2 biglietti ridotti per il 20 dicembre", 2025)
	assert.Equal(t, "ridotto", intent.Variant)
}

func TestIsBlackout(t *testing.T) {
	assert.True(t, IsBlackout(Date{Day: 24, Month: 12, Year: 2025}))
	assert.True(t, IsBlackout(Date{Day: 31, Month: 12, Year: 2025}))
	// year does not matter
	assert.True(t, IsBlackout(Date{Day: 24, Month: 12, Year: 2031}))
	assert.False(t, IsBlackout(Date{Day: 25, Month: 12, Year: 2025}))
	assert.False(t, IsBlackout(Date{Day: 31, Month: 1, Year: 2026}))
}

func TestDateLabel(t *testing.T) {
	d := Date{Day: 20, Month: 12, Year: 2025}
	assert.Equal(t, "20 Dicembre 2025 - 18:00", d.Label())
}

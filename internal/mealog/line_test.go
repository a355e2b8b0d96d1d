package mealog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RoundTrip(t *testing.T) {
	tests := []string{
		"INICIO-COMIDA",
		"INICIO-PLATO",
		"ALIMENTO,7,53.5",
		"ALIMENTO,27,120",
		"ALIMENTO,50,125.25,8410000000000",
		"FIN-COMIDA,03.07.2024,08:55:36",
		"FIN-TRANSMISION",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			l, err := Parse(s)
			require.NoError(t, err)
			assert.Equal(t, s, l.String())
		})
	}
}

func TestParse_EndMealTimestamp(t *testing.T) {
	l, err := Parse("  FIN-COMIDA,03.07.2024,08:55:36\r\n")
	require.NoError(t, err)
	assert.Equal(t, KindEndMeal, l.Kind)
	assert.Equal(t, time.Date(2024, 7, 3, 8, 55, 36, 0, time.UTC), l.At)
}

func TestParse_Ingredient(t *testing.T) {
	l, err := Parse("ALIMENTO,50,30.5,123456")
	require.NoError(t, err)
	assert.Equal(t, Line{Kind: KindIngredient, GroupID: 50, Weight: 30.5, Barcode: "123456"}, l)
}

func TestParse_Malformed(t *testing.T) {
	tests := []string{
		"",
		"HELLO",
		"INICIO-COMIDA,1",
		"ALIMENTO",
		"ALIMENTO,7",
		"ALIMENTO,x,1",
		"ALIMENTO,0,1",
		"ALIMENTO,7,-1",
		"ALIMENTO,7,abc",
		"ALIMENTO,50,1,",
		"ALIMENTO,7,1,2,3",
		"FIN-COMIDA,03.07.2024",
		"FIN-COMIDA,2024-07-03,08:55:36",
		"FIN-COMIDA,03.07.2024,25:00:00",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			_, err := Parse(s)
			assert.ErrorIs(t, err, ErrMalformedLine)
		})
	}
}

func TestParseAll_ReportsLineNumber(t *testing.T) {
	_, err := ParseAll([]string{"INICIO-COMIDA", "BROKEN"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestFormatWeight(t *testing.T) {
	assert.Equal(t, "53.5", FormatWeight(53.5))
	assert.Equal(t, "120", FormatWeight(120))
	assert.Equal(t, "0.25", FormatWeight(0.25))
}

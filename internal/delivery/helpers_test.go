package delivery

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/smartscale/internal/mealog"
	"github.com/roach88/smartscale/internal/serializer"
)

const testMAC = "AA:BB:CC:DD:EE:FF"

var mealStamp = time.Date(2024, 7, 3, 8, 55, 36, 0, time.UTC)

// mealLines returns the lines of a one-dish meal weighing grams of group,
// stamped n minutes after mealStamp.
func mealLines(t *testing.T, group int, grams float64, n int) []mealog.Line {
	t.Helper()
	at := mealStamp.Add(time.Duration(n) * time.Minute)
	lines, err := mealog.ParseAll([]string{
		"INICIO-COMIDA",
		"INICIO-PLATO",
		fmt.Sprintf("ALIMENTO,%d,%s", group, mealog.FormatWeight(grams)),
		mealog.EndMeal(at).String(),
	})
	require.NoError(t, err)
	return lines
}

func toMeal(lines []mealog.Line) mealog.MealLines {
	return mealog.MealLines{End: len(lines), Lines: lines}
}

func concat(parts ...[]mealog.Line) []mealog.Line {
	var out []mealog.Line
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// uploadedLines decodes every accepted document back into log lines.
func uploadedLines(t *testing.T, docs [][]byte) []string {
	t.Helper()
	var out []string
	for _, d := range docs {
		w, err := serializer.Decode(d)
		require.NoError(t, err)
		require.Equal(t, testMAC, w.MAC)
		out = append(out, mealog.Strings(w.Lines())...)
	}
	return out
}

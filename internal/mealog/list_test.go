package mealog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stamp = time.Date(2024, 7, 3, 8, 55, 36, 0, time.UTC)

func TestList_BuildsMeal(t *testing.T) {
	var l List
	l.StartMeal()
	l.StartMeal()
	l.StartDish()
	l.StartDish()
	l.AddIngredient(7, 53.5, "")
	l.AddIngredient(9, 23.5, "")
	l.FinishMeal(stamp)

	assert.Equal(t, []string{
		"INICIO-COMIDA",
		"INICIO-PLATO",
		"ALIMENTO,7,53.5",
		"ALIMENTO,9,23.5",
		"FIN-COMIDA,03.07.2024,08:55:36",
	}, l.Strings())
}

func TestList_AddIngredientOpensDish(t *testing.T) {
	var l List
	l.AddIngredient(50, 10, "123")

	assert.Equal(t, []string{"INICIO-COMIDA", "INICIO-PLATO", "ALIMENTO,50,10,123"}, l.Strings())
}

func TestList_DropLastDish(t *testing.T) {
	var l List
	l.StartDish()
	l.AddIngredient(7, 10, "")
	l.StartDish()
	l.AddIngredient(8, 20, "")
	l.AddIngredient(9, 30, "")

	require.True(t, l.DropLastDish())
	assert.Equal(t, []string{"INICIO-COMIDA", "INICIO-PLATO", "ALIMENTO,7,10"}, l.Strings())

	require.True(t, l.DropLastDish())
	assert.Equal(t, []string{"INICIO-COMIDA"}, l.Strings())
	assert.False(t, l.DropLastDish())
}

func TestList_FinishMealDropsEmptyDishHeader(t *testing.T) {
	var l List
	l.AddIngredient(7, 10, "")
	l.StartDish()
	l.FinishMeal(stamp)

	assert.Equal(t, []string{
		"INICIO-COMIDA",
		"INICIO-PLATO",
		"ALIMENTO,7,10",
		"FIN-COMIDA,03.07.2024,08:55:36",
	}, l.Strings())

	l.Reset()
	assert.True(t, l.IsEmpty())
}

func TestSplitMeals(t *testing.T) {
	raw := []string{
		"INICIO-COMIDA",
		"INICIO-PLATO",
		"ALIMENTO,7,53.5",
		"FIN-COMIDA,03.07.2024,08:55:36",
		"INICIO-PLATO",
		"ALIMENTO,9,23.5",
		"FIN-COMIDA,03.07.2024,14:00:00",
		"FIN-TRANSMISION",
		"INICIO-COMIDA",
		"INICIO-PLATO",
		"ALIMENTO,8,80",
	}
	lines, err := ParseAll(raw)
	require.NoError(t, err)

	meals, tail := SplitMeals(lines)
	require.Len(t, meals, 2)
	assert.Equal(t, 0, meals[0].Start)
	assert.Equal(t, 4, meals[0].End)
	assert.Equal(t, 4, meals[1].Start)
	assert.Equal(t, 7, meals[1].End)
	assert.Equal(t, time.Date(2024, 7, 3, 14, 0, 0, 0, time.UTC), meals[1].At())
	assert.Equal(t, []string{"INICIO-COMIDA", "INICIO-PLATO", "ALIMENTO,8,80"}, Strings(tail))
}

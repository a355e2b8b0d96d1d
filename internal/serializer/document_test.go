package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_FullAppendsAreSilent(t *testing.T) {
	d, err := NewDocument(base+mealCost+dishCost+ingredientCost, testMAC)
	require.NoError(t, err)

	d.StartMeal()
	d.StartDish()
	d.AddIngredient(7, 10, "")
	full := d.Footprint()
	assert.Equal(t, d.Capacity(), full)

	d.AddIngredient(8, 20, "")
	d.EndMeal(1)
	d.StartDish()
	assert.Equal(t, full, d.Footprint(), "appends past capacity change nothing")

	w := d.Wire()
	require.Len(t, w.Meals, 1)
	assert.Zero(t, w.Meals[0].Date)
	assert.Len(t, w.Meals[0].Dishes[0].Ingredients, 1)
}

func TestDocument_FailedHeaderSwallowsChildren(t *testing.T) {
	d, err := NewDocument(base+mealCost+dateCost+mealCost-1, testMAC)
	require.NoError(t, err)

	d.StartMeal()
	d.EndMeal(100)
	used := d.Footprint()

	d.StartMeal() // does not fit
	d.StartDish()
	d.AddIngredient(1, 5, "")
	d.EndMeal(200)
	assert.Equal(t, used, d.Footprint())
	assert.Equal(t, 1, d.Len())
}

func TestDocument_ImplicitHeaders(t *testing.T) {
	d, err := NewDocument(0, testMAC)
	require.NoError(t, err)
	assert.Equal(t, DefaultCapacity, d.Capacity())

	d.AddIngredient(3, 42, "")
	d.EndMeal(7)
	assert.Equal(t, base+mealCost+dishCost+ingredientCost+dateCost, d.Footprint())
	require.Len(t, d.Wire().Meals, 1)
}

func TestDocument_BarcodeCostsItsLength(t *testing.T) {
	d, err := NewDocument(0, testMAC)
	require.NoError(t, err)
	d.StartDish()
	before := d.Footprint()
	d.AddIngredient(50, 10, "8410000000000")
	assert.Equal(t, ingredientCost+slotSize+14, d.Footprint()-before)
}

func TestDocument_SnapshotRestore(t *testing.T) {
	d, err := NewDocument(0, testMAC)
	require.NoError(t, err)
	d.StartMeal()
	d.StartDish()
	d.AddIngredient(7, 53.5, "")
	d.AddIngredient(50, 10, "123")
	d.EndMeal(1719996936)
	snap, err := d.snapshot()
	require.NoError(t, err)
	want := d.Footprint()

	d.StartMeal()
	d.StartDish()
	d.AddIngredient(9, 1, "")
	require.NoError(t, d.restore(snap))

	assert.Equal(t, want, d.Footprint(), "footprint recomputed from content")
	assert.Equal(t, 1, d.Len())
	assert.False(t, d.mealOpen())
}

func TestNewDocument_CapacityBelowFixedCost(t *testing.T) {
	_, err := NewDocument(10, testMAC)
	assert.Error(t, err)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte("{"))
	assert.Error(t, err)
}

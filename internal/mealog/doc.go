// Package mealog implements the line-oriented meal log.
//
// A meal travels between the scale, its storage and the gateway as text
// lines:
//
//	INICIO-COMIDA
//	INICIO-PLATO
//	ALIMENTO,<group_id>,<weight>[,<barcode>]
//	FIN-COMIDA,<DD.MM.YYYY>,<HH:MM:SS>
//	FIN-TRANSMISION
//
// List builds these lines while a meal is weighed. SplitMeals cuts a stored
// sequence back into complete meals, and Replay folds them into a
// nutrition.DailyLog. DailyCSV persists one row of totals per saved meal.
package mealog

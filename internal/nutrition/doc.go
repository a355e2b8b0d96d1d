// Package nutrition implements the nutrition data model of the scale.
//
// The model is a four-level aggregation:
//
//	Ingredient -> Dish -> Meal -> DailyLog
//
// Every level keeps an aggregate (weight + Values) that is maintained
// incrementally: adding a child adds its values, removing a child subtracts
// the exact values that were added for it. Aggregates are never recomputed
// from the remaining children, so the values reported for a deleted dish are
// bit-identical to the ones that were folded in when it was built.
//
// # Reuse
//
// Dish and Meal are long-lived values owned by a session. They are cleared
// with Reset after a commit instead of being reallocated, and Take returns a
// detached copy for the caller before clearing.
//
// # Reference Data
//
// The food-group table is authored in CUE (groups.cue) and compiled once at
// package load. Lookups are keyed by (group id, ProcessingState); the legacy
// cooked ids (raw id + 20) are accepted by ByID so that persisted logs written
// with those ids still resolve.
package nutrition

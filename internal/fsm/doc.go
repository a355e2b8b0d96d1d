// Package fsm implements the scale's control state machine.
//
// ARCHITECTURE:
//
// Single-Writer Control Loop:
// Controller.Run is the only goroutine that mutates the meal being weighed.
// Hardware reaches it through two paths:
//   - Buttons are debounced at the source (Debouncer) and pushed onto a
//     bounded Queue of typed events.
//   - The load cell is sampled by a Sampler goroutine that only stores the
//     latest reading; the loop takes it, feeds the WeightDetector, and the
//     detector turns stable changes into weight events on the same Queue.
//
// Event Processing Flow:
//  1. Queue yields one Event at a time, in arrival order
//  2. Machine.Handle looks up (state, event) in the rule table; first match wins
//  3. No match: EventRejected is returned and notified, nothing changes
//  4. Match: guards run (empty dish / empty meal), then the state changes
//  5. The new state's entry action runs once, on the next Poll
//
// Entry actions mutate the Session: the open dish and meal, the line list
// and the daily log. Saving a meal hands its lines to a MealSink, whose
// failures are logged and never stop the loop.
package fsm

// Package events defines the planning events emitted on the event bus.
//
// Available event types:
//   - SearchEvent: a combination search finished (possibly capped)
//   - OptimizationEvent: a category optimization run finished
//   - TravelDegradedEvent: a travel lookup fell back to the default duration
//   - DayRecalculatedEvent: a day's travel simulation was rebuilt
//   - PlacementEvent: a placement validation was evaluated
//
// Forward relays bus events to an external Publisher as JSON envelopes.
package events

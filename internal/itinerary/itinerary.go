// Package itinerary decides whether an assistant reply reads like a
// day-by-day itinerary worth offering to save as a trip.
//
// This is a deliberately coarse keyword heuristic, not a parser: the model
// is under no obligation to emit these tokens, and false positives and
// negatives are accepted. A structured-output (function calling) contract
// would replace it in a redesign.
package itinerary

import "strings"

// LooksLikeItinerary reports whether text appears to contain a day-by-day
// itinerary. It matches when the literal token "Day" appears together with
// any of "itinerary", "schedule", or "plan" (case-insensitive). Stateless
// and side-effect free; every call is independent.
func LooksLikeItinerary(text string) bool {
	if !strings.Contains(text, "Day") {
		return false
	}
	lower := strings.ToLower(text)
	return strings.Contains(lower, "itinerary") ||
		strings.Contains(lower, "schedule") ||
		strings.Contains(lower, "plan")
}

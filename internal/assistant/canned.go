package assistant

import (
	"context"
	"strings"
)

// Canned is an offline responder with a small keyword table. It serves
// embeddings that have no API key configured, and tests that need a
// deterministic assistant. It satisfies the same seam as Client.
type Canned struct{}

// Complete returns a fixed response chosen by keyword. It never fails.
func (Canned) Complete(_ context.Context, prompt string) (string, error) {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "recommendation") || strings.Contains(lower, "suggest"):
		return "Based on your preferences, I recommend visiting Tokyo, Japan. It offers a unique blend of " +
			"traditional culture and modern technology. The best time to visit is during cherry blossom season " +
			"(late March to early April) or autumn (October to November).", nil
	case strings.Contains(lower, "budget") || strings.Contains(lower, "cost"):
		return "For a week-long trip to Europe, I recommend budgeting around $1,500-$2,500 per person, " +
			"excluding flights. This covers mid-range accommodations, meals, local transportation, and some " +
			"activities. Would you like more detailed breakdown?", nil
	case strings.Contains(lower, "itinerary") || strings.Contains(lower, "plan"):
		return "I can help you create a customized itinerary! Please tell me your destination, travel dates, " +
			"and any specific interests (like food, history, nature, etc.) so I can suggest the perfect plan for you.", nil
	default:
		return "That's a great question! To provide you with the best travel advice, could you share more " +
			"details about your travel preferences, destination interests, or specific questions you have?", nil
	}
}

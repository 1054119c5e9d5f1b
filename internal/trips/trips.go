// Package trips owns the durable trip collection and its read-only
// projections. Records are stored as a single JSON document under one
// durable key; every write is a full read-modify-write of the collection so
// readers never observe a partial state.
package trips

import "encoding/json"

// Status partitions trips for the list view tabs.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusPast     Status = "past"
	StatusDraft    Status = "draft"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusPast, StatusDraft:
		return true
	}
	return false
}

// TripRecord is a single saved trip. Dates is free-form display text, not a
// parsed range; Locations is an ordered sequence and may be a single
// placeholder for trips saved from chat; Itinerary holds the verbatim
// assistant text when the trip came from the conversation pipeline.
type TripRecord struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Dates     string   `json:"dates"`
	Locations []string `json:"locations"`
	Itinerary string   `json:"itinerary,omitempty"`
	Status    Status   `json:"status"`
}

// normalize coerces an out-of-range or missing status to upcoming. Applied
// to every record read from durable storage.
func (r *TripRecord) normalize() {
	if !r.Status.Valid() {
		r.Status = StatusUpcoming
	}
}

// clone returns a deep copy so callers can never alias store-held state.
func (r TripRecord) clone() TripRecord {
	out := r
	if r.Locations != nil {
		out.Locations = append([]string(nil), r.Locations...)
	}
	return out
}

func cloneAll(recs []TripRecord) []TripRecord {
	out := make([]TripRecord, len(recs))
	for i, r := range recs {
		out[i] = r.clone()
	}
	return out
}

// decode parses a serialized collection. A malformed payload is reported so
// the store can substitute defaults; it never reaches callers as an error.
func decode(payload string) ([]TripRecord, bool) {
	var recs []TripRecord
	if err := json.Unmarshal([]byte(payload), &recs); err != nil {
		return nil, false
	}
	return recs, true
}

package trips

import "github.com/samber/lo"

// View projections: pure read + filter over a loaded collection. Projections
// never mutate records and hold no state of their own.

// ByStatus partitions records into the three list-view tabs.
func ByStatus(recs []TripRecord) map[Status][]TripRecord {
	return lo.GroupBy(recs, func(r TripRecord) Status { return r.Status })
}

// Upcoming returns the records shown on the Upcoming tab.
func Upcoming(recs []TripRecord) []TripRecord {
	return withStatus(recs, StatusUpcoming)
}

// Past returns the records shown on the Past tab.
func Past(recs []TripRecord) []TripRecord {
	return withStatus(recs, StatusPast)
}

// Drafts returns the records shown on the Drafts tab.
func Drafts(recs []TripRecord) []TripRecord {
	return withStatus(recs, StatusDraft)
}

func withStatus(recs []TripRecord, status Status) []TripRecord {
	return lo.Filter(recs, func(r TripRecord, _ int) bool { return r.Status == status })
}

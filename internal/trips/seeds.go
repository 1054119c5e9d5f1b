package trips

// Seeds returns the default trips shown before anything has been saved.
// They are read-time defaults only: LoadAll never writes them back, but the
// first Append persists them along with the new record so the collection a
// reader saw is the collection that grows.
func Seeds() []TripRecord {
	return []TripRecord{
		{
			ID:        1,
			Title:     "Tokyo Adventure",
			Dates:     "Aug 15-25, 2023",
			Locations: []string{"Tokyo", "Kyoto", "Osaka"},
			Status:    StatusUpcoming,
		},
		{
			ID:        2,
			Title:     "European Tour",
			Dates:     "Sep 10-30, 2023",
			Locations: []string{"Paris", "Rome", "Barcelona"},
			Status:    StatusUpcoming,
		},
		{
			ID:        3,
			Title:     "Southeast Asia Trip",
			Dates:     "Mar 5-15, 2023",
			Locations: []string{"Bangkok", "Singapore", "Bali"},
			Status:    StatusPast,
		},
		{
			ID:        4,
			Title:     "New York Weekend",
			Dates:     "Jan 20-22, 2023",
			Locations: []string{"New York City"},
			Status:    StatusPast,
		},
		{
			ID:        5,
			Title:     "South America 2024",
			Dates:     "Draft (No dates set)",
			Locations: []string{"Peru", "Chile", "Argentina"},
			Status:    StatusDraft,
		},
	}
}

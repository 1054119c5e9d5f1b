package trips

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// OnDay returns the records attributed to the given calendar day.
//
// Known limitation, preserved deliberately: Dates is free-form display text
// ("Aug 15-25, 2023"), so attribution is a substring match on the day's
// month abbreviation: a trip spanning Aug 15-25 shows on every day of
// August, and a trip whose text never mentions the month shows on none.
// A real date-range model would replace this.
func OnDay(recs []TripRecord, day time.Time) []TripRecord {
	abbr := day.Format("Jan")
	return lo.Filter(recs, func(r TripRecord, _ int) bool {
		return strings.Contains(r.Dates, abbr)
	})
}

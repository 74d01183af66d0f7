package schedule

import "time"

// GenerateSlots produces the bookable slots for one date. Templates for the
// date's weekday are cut into consecutive slots of the lesson duration;
// slots colliding with an existing booking or a blocked range are dropped.
// A whole-day block is expressed as a blocked range covering the full day.
func GenerateSlots(date time.Time, templates []ClockRange, duration time.Duration, taken []TimeRange, blocked []TimeRange, loc *time.Location) []TimeRange {
	if duration <= 0 {
		return nil
	}

	var slots []TimeRange
	for _, tpl := range templates {
		window := tpl.At(date, loc)
		for start := window.Start; !start.Add(duration).After(window.End); start = start.Add(duration) {
			slot := TimeRange{Start: start, End: start.Add(duration)}
			if overlapsAny(slot, taken) || overlapsAny(slot, blocked) {
				continue
			}
			slots = append(slots, slot)
		}
	}
	return slots
}

func overlapsAny(r TimeRange, ranges []TimeRange) bool {
	for _, o := range ranges {
		if r.Overlaps(o) {
			return true
		}
	}
	return false
}

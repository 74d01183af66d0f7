package schedule

import "time"

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open ranges share at least one instant.
// Ranges that merely touch (r.End == o.Start) do not overlap, so back-to-back
// lessons are allowed.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Valid reports whether the range has positive length.
func (r TimeRange) Valid() bool {
	return r.End.After(r.Start)
}

// Candidate is an existing non-cancelled booking considered for conflicts.
type Candidate struct {
	BookingID int
	UserID    int
	Range     TimeRange
}

type ConflictKind int

const (
	NoConflict ConflictKind = iota
	ConflictSameUser
	ConflictOtherUser
)

// Conflict reports the colliding booking so callers can show the user what
// their request ran into.
type Conflict struct {
	Kind ConflictKind
	With *Candidate
}

// CheckConflict tests a proposed range for the given user against existing
// bookings. Same-user collisions are reported before other-user collisions;
// the two produce different user-facing messages and the order is part of
// the API behaviour.
func CheckConflict(candidates []Candidate, userID int, proposed TimeRange) Conflict {
	for i := range candidates {
		c := &candidates[i]
		if c.UserID == userID && proposed.Overlaps(c.Range) {
			return Conflict{Kind: ConflictSameUser, With: c}
		}
	}
	for i := range candidates {
		c := &candidates[i]
		if c.UserID != userID && proposed.Overlaps(c.Range) {
			return Conflict{Kind: ConflictOtherUser, With: c}
		}
	}
	return Conflict{Kind: NoConflict}
}

// ClockRange is a time-of-day interval in minutes from midnight, used by
// slot templates.
type ClockRange struct {
	StartMin int
	EndMin   int
}

// TemplatesOverlap uses inclusive boundaries: templates that merely abut are
// rejected too, since abutting generation zones can emit the same candidate
// slot twice at the seam. Bookings keep the half-open test above.
func TemplatesOverlap(a, b ClockRange) bool {
	return a.StartMin <= b.EndMin && b.StartMin <= a.EndMin
}

// At anchors a clock range onto a calendar date in the given location.
func (c ClockRange) At(date time.Time, loc *time.Location) TimeRange {
	y, m, d := date.In(loc).Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return TimeRange{
		Start: midnight.Add(time.Duration(c.StartMin) * time.Minute),
		End:   midnight.Add(time.Duration(c.EndMin) * time.Minute),
	}
}

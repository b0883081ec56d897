package domain

import (
	"slices"
	"strings"
)

// DurationPresets are the pass lengths a student can pick, in minutes.
var DurationPresets = []int{5, 10, 15, 20, 30}

// DefaultDurationMinutes is preselected on a new request.
const DefaultDurationMinutes = 10

// RoomNames deduplicates names, drops blanks and sorts ascending.
func RoomNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		out = append(out, n)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ValidateRoute checks a from/to selection against the known rooms. A nil
// rooms slice means the room list has not been loaded yet.
func ValidateRoute(from, to string, rooms []string) error {
	var verr ValidationError
	if rooms == nil {
		verr.Add("rooms", ErrRoomsNotLoaded)
		return verr.OrNil()
	}
	if from == "" {
		verr.Add("from", ErrMissingSelection)
	} else if !slices.Contains(rooms, from) {
		verr.Add("from", ErrUnknownRoom)
	}
	if to == "" {
		verr.Add("to", ErrMissingSelection)
	} else if !slices.Contains(rooms, to) {
		verr.Add("to", ErrUnknownRoom)
	}
	if from != "" && from == to {
		verr.Add("to", ErrSameRoom)
	}
	return verr.OrNil()
}

package domain

import "slices"

// Buckets partitions one author's passes for display.
type Buckets struct {
	Active    *Pass  `json:"active"`
	Requested []Pass `json:"requested"`
	Past      []Pass `json:"past"`
}

// Classify splits passes into the active pass, pending requests and decided
// history. Each bucket is ordered newest first. The input is not modified.
//
// Only one pass per author should be active; if several are, the most recently
// created one wins.
func Classify(passes []Pass) Buckets {
	var (
		active    []Pass
		requested = make([]Pass, 0)
		past      = make([]Pass, 0)
	)

	for _, p := range passes {
		switch {
		case p.Active:
			active = append(active, p)
		case p.Approved == ApprovalPending:
			requested = append(requested, p)
		case p.Approved.Decided():
			past = append(past, p)
		}
	}

	sortNewestFirst(active)
	sortNewestFirst(requested)
	sortNewestFirst(past)

	b := Buckets{Requested: requested, Past: past}
	if len(active) > 0 {
		first := active[0]
		b.Active = &first
	}
	return b
}

// Unclassified returns the passes from the input that fell into no bucket.
// An active pass that lost the tie-break counts as classified.
func Unclassified(passes []Pass) []Pass {
	var out []Pass
	for _, p := range passes {
		if p.Active || p.Approved == ApprovalPending || p.Approved.Decided() {
			continue
		}
		out = append(out, p)
	}
	return out
}

func sortNewestFirst(ps []Pass) {
	slices.SortStableFunc(ps, func(a, b Pass) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

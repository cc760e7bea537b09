package workflow

import "strconv"

// AggregateSummary counts a batch of derived views.
type AggregateSummary struct {
	Total      int `json:"total"`
	Merged     int `json:"merged"`
	InProgress int `json:"in_progress"`
	Failed     int `json:"failed"`
}

// InProgressStatuses is the set of overall statuses counted as in progress
// by Summarize: every non-terminal status. review covers the pr_created,
// ci_running and review stage positions; open covers approved.
//
// open is in progress here even though an open record's own stages beyond
// commit are pending. Per-record views and the aggregate answer different
// questions: the aggregate counts anything an operator still has to wait on.
var InProgressStatuses = []OverallStatus{StatusOpen, StatusReview}

// IsInProgress reports whether s belongs to InProgressStatuses.
func IsInProgress(s OverallStatus) bool {
	for _, p := range InProgressStatuses {
		if s == p {
			return true
		}
	}
	return false
}

// Summarize folds views into counts. A nil or empty slice yields all zeros.
func Summarize(views []DerivedView) AggregateSummary {
	sum := AggregateSummary{Total: len(views)}
	for _, v := range views {
		switch {
		case v.OverallStatus == StatusMerged:
			sum.Merged++
		case v.OverallStatus == StatusFailed:
			sum.Failed++
		case IsInProgress(v.OverallStatus):
			sum.InProgress++
		}
	}
	return sum
}

// Report is the result of deriving one fetched batch.
type Report struct {
	Views   []DerivedView    `json:"views"`
	Summary AggregateSummary `json:"summary"`
}

// Build normalizes and derives every record of a batch, preserving order,
// and summarizes the result. Callers pass one fetch response per call.
//
// Record IDs come from pr_number, id or batch position and can collide
// within a batch. Every view sharing an ID gets the key "<id>@<index>" so
// keys stay unique.
func Build(records []RawFixRecord) Report {
	views := make([]DerivedView, 0, len(records))
	seen := make(map[string]int, len(records))
	for i, raw := range records {
		v := Derive(Normalize(raw, i))
		v.Index = i
		seen[v.Record.ID]++
		views = append(views, v)
	}

	taken := make(map[string]bool, len(views))
	for i := range views {
		if seen[views[i].Key] == 1 {
			taken[views[i].Key] = true
		}
	}
	for i := range views {
		if seen[views[i].Record.ID] == 1 {
			continue
		}
		key := views[i].Record.ID + "@" + strconv.Itoa(views[i].Index)
		for taken[key] {
			key += "@"
		}
		taken[key] = true
		views[i].Key = key
	}
	return Report{Views: views, Summary: Summarize(views)}
}

// Find returns the view with the given key.
func (r Report) Find(key string) (DerivedView, bool) {
	for _, v := range r.Views {
		if v.Key == key {
			return v, true
		}
	}
	return DerivedView{}, false
}

// KeysFor returns the keys of every view whose record ID is id, in batch
// order.
func (r Report) KeysFor(id string) []string {
	var keys []string
	for _, v := range r.Views {
		if v.Record.ID == id {
			keys = append(keys, v.Key)
		}
	}
	return keys
}

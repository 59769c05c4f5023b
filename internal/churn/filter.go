package churn

import (
	"time"

	"github.com/sells-group/retention-cli/internal/model"
)

// CutoffDate returns the latest creation date minus windowDays. It reports
// false when no record has a creation date.
func CutoffDate(recs []model.SessionRecord, windowDays int) (time.Time, bool) {
	var latest time.Time
	var found bool
	for _, r := range recs {
		if r.CreatedAt == nil {
			continue
		}
		if !found || r.CreatedAt.After(latest) {
			latest = *r.CreatedAt
			found = true
		}
	}
	if !found {
		return time.Time{}, false
	}
	return latest.AddDate(0, 0, -windowDays), true
}

// CreatedRange returns the earliest and latest creation dates.
func CreatedRange(recs []model.SessionRecord) (first, last time.Time, ok bool) {
	for _, r := range recs {
		if r.CreatedAt == nil {
			continue
		}
		if !ok || r.CreatedAt.Before(first) {
			first = *r.CreatedAt
		}
		if !ok || r.CreatedAt.After(last) {
			last = *r.CreatedAt
		}
		ok = true
	}
	return first, last, ok
}

// FilterSummary describes what the period filter kept.
type FilterSummary struct {
	Original     int     `json:"original" yaml:"original"`
	Kept         int     `json:"kept" yaml:"kept"`
	Percent      float64 `json:"percent" yaml:"percent"`
	DuplicateIDs int     `json:"duplicate_lesson_ids" yaml:"duplicate_lesson_ids"`
}

// LessonID composes the lesson identifier.
func LessonID(lectureNo, seq string) string {
	return lectureNo + "_" + seq
}

// FilterPeriod keeps records that have a first-payment date and were created
// on a calendar day within [start, end]. Kept records get their lesson id.
// The input is not modified.
func FilterPeriod(recs []model.SessionRecord, start, end time.Time) ([]model.SessionRecord, FilterSummary) {
	from := day(start)
	to := day(end)

	out := make([]model.SessionRecord, 0, len(recs))
	seen := make(map[string]bool, len(recs))
	sum := FilterSummary{Original: len(recs)}

	for _, r := range recs {
		if r.FirstPaidAt == nil || r.CreatedAt == nil {
			continue
		}
		d := day(*r.CreatedAt)
		if d.Before(from) || d.After(to) {
			continue
		}
		r.LessonID = LessonID(r.LectureNo, r.Seq)
		if seen[r.LessonID] {
			sum.DuplicateIDs++
		}
		seen[r.LessonID] = true
		out = append(out, r)
	}

	sum.Kept = len(out)
	if sum.Original > 0 {
		sum.Percent = float64(sum.Kept) / float64(sum.Original) * 100
	}
	return out, sum
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package revision

import (
	"time"

	"github.com/sakif/revision-tracker/internal/model"
)

// day is a fixed 24h span. The cutoff is a plain duration subtraction, so a
// DST change inside the window does not move it.
const day = 24 * time.Hour

// Cutoff returns the instant before which a revision counts as stale.
func Cutoff(now time.Time, thresholdDays int) time.Time {
	if thresholdDays <= 0 {
		thresholdDays = DefaultThresholdDays
	}
	return now.Add(-time.Duration(thresholdDays) * day)
}

// IsDue reports whether q needs another review.
//
// A question is due when it has never been revised, or when its last revision
// is strictly older than now minus thresholdDays. A revision exactly at the
// cutoff is not due.
func IsDue(q model.Question, now time.Time, thresholdDays int) bool {
	if q.LastRevised == nil {
		return true
	}
	return q.LastRevised.Before(Cutoff(now, thresholdDays))
}

// Revision is the partial update proposed when a question is marked reviewed.
// Only LastRevised changes; the storage layer persists it.
type Revision struct {
	QuestionID  string    `json:"id"`
	LastRevised time.Time `json:"lastRevised"`
}

// MarkRevised proposes stamping question id as reviewed at now.
func MarkRevised(id string, now time.Time) Revision {
	return Revision{QuestionID: id, LastRevised: now}
}

// Apply returns a copy of q with the revision applied.
// It refuses to apply a revision meant for a different question.
func (r Revision) Apply(q model.Question) (model.Question, bool) {
	if q.ID != r.QuestionID {
		return q, false
	}
	at := r.LastRevised
	q.LastRevised = &at
	return q, true
}

// Package stats computes the dashboard aggregates for a question set.
//
// CALENDAR DAYS:
// Streaks and activity buckets work on calendar days, and a calendar day only
// exists relative to a time zone. Every function here uses now.Location() as
// that zone. Callers choose it by converting now before the call
// (now.In(userLocation)). A revision at 23:30 in Kolkata lands on the Kolkata
// date, whatever the UTC date happens to be.
package stats

import (
	"slices"
	"time"

	"github.com/sakif/revision-tracker/internal/model"
	"github.com/sakif/revision-tracker/internal/revision"
)

const (
	// MaxStreakDays bounds how far back the streak scan goes.
	MaxStreakDays = 365
	// ActivityDays is the length of the activity heatmap, today included.
	ActivityDays = 30
	// RecentLimit is how many recently revised questions Compute reports.
	RecentLimit = 5
)

// DifficultyCounts counts questions per resolved difficulty.
type DifficultyCounts struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

// TopicCount is one bar of the topic histogram.
type TopicCount struct {
	Topic model.Topic `json:"topic"`
	Count int         `json:"count"`
}

// ActivityBucket holds the revisions that fell on one calendar day.
type ActivityBucket struct {
	Date  string `json:"date"` // YYYY-MM-DD in the caller's zone
	Count int    `json:"count"`
	Level int    `json:"level"` // 0-4 heatmap intensity
}

// Stats is everything the dashboard shows.
type Stats struct {
	Total         int              `json:"total"`
	Counts        DifficultyCounts `json:"counts"`
	ThresholdDays int              `json:"thresholdDays"`
	DueCount      int              `json:"dueCount"`
	RevisedCount  int              `json:"revisedCount"`
	NeverRevised  int              `json:"neverRevised"`
	StreakDays    int              `json:"streakDays"`
	Topics        []TopicCount     `json:"topics"`
	Activity      []ActivityBucket `json:"activity"`
	MaxActivity   int              `json:"maxActivity"`
	Recent        []model.Question `json:"recent"`
}

// Compute aggregates questions as of now using the given revision threshold.
func Compute(questions []model.Question, now time.Time, thresholdDays int) Stats {
	s := Stats{
		Total:         len(questions),
		ThresholdDays: thresholdDays,
	}

	for _, q := range questions {
		switch q.ResolvedDifficulty() {
		case model.DifficultyEasy:
			s.Counts.Easy++
		case model.DifficultyHard:
			s.Counts.Hard++
		default:
			s.Counts.Medium++
		}

		if revision.IsDue(q, now, thresholdDays) {
			s.DueCount++
		}
		if q.Revised() {
			s.RevisedCount++
		}
	}
	s.NeverRevised = s.Total - s.RevisedCount

	s.StreakDays = Streak(questions, now)
	s.Topics = TopicHistogram(questions)
	s.Activity, s.MaxActivity = ActivityBuckets(questions, now)
	s.Recent = RecentlyRevised(questions, RecentLimit)

	return s
}

// DayKey formats t as a YYYY-MM-DD calendar date in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}

// revisionDays returns how many revisions fell on each calendar day in loc.
func revisionDays(questions []model.Question, loc *time.Location) map[string]int {
	days := make(map[string]int)
	for _, q := range questions {
		if q.LastRevised != nil {
			days[DayKey(*q.LastRevised, loc)]++
		}
	}
	return days
}

// calendarDay returns noon on now's date. Stepping from noon with AddDate
// never skips or repeats a date across DST changes.
func calendarDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, now.Location())
}

// Streak counts consecutive calendar days, ending on now's date, that each
// contain at least one revision. The scan stops at the first empty day and
// never looks further back than MaxStreakDays.
func Streak(questions []model.Question, now time.Time) int {
	loc := now.Location()
	days := revisionDays(questions, loc)
	today := calendarDay(now)

	streak := 0
	for i := 0; i < MaxStreakDays; i++ {
		if days[DayKey(today.AddDate(0, 0, -i), loc)] == 0 {
			break
		}
		streak++
	}
	return streak
}

// ActivityBuckets returns one bucket per day from ActivityDays-1 days ago
// through today, oldest first, plus the largest bucket count.
func ActivityBuckets(questions []model.Question, now time.Time) ([]ActivityBucket, int) {
	loc := now.Location()
	days := revisionDays(questions, loc)
	today := calendarDay(now)

	buckets := make([]ActivityBucket, ActivityDays)
	maxCount := 0
	for i := range buckets {
		key := DayKey(today.AddDate(0, 0, i-(ActivityDays-1)), loc)
		count := days[key]
		buckets[i] = ActivityBucket{Date: key, Count: count}
		if count > maxCount {
			maxCount = count
		}
	}

	for i := range buckets {
		buckets[i].Level = Level(buckets[i].Count, maxCount)
	}
	return buckets, maxCount
}

// Level maps a bucket count onto heatmap intensity 0-4 relative to max.
func Level(count, max int) int {
	if count <= 0 {
		return 0
	}
	if max <= 1 {
		return 4
	}

	ratio := float64(count) / float64(max)
	switch {
	case ratio <= 0.25:
		return 1
	case ratio <= 0.5:
		return 2
	case ratio <= 0.75:
		return 3
	default:
		return 4
	}
}

// TopicHistogram counts questions per topic.
//
// Every fixed topic is listed, even at zero. Topics outside the fixed list are
// counted under Others, which is listed only when non-zero. Bars are ordered
// by count, largest first; ties keep the fixed topic order.
func TopicHistogram(questions []model.Question) []TopicCount {
	counts := make(map[model.Topic]int)
	for _, q := range questions {
		counts[q.ResolvedTopic()]++
	}

	fixed := model.FixedTopics()
	out := make([]TopicCount, 0, len(fixed)+1)
	for _, t := range fixed {
		out = append(out, TopicCount{Topic: t, Count: counts[t]})
	}
	if n := counts[model.TopicOthers]; n > 0 {
		out = append(out, TopicCount{Topic: model.TopicOthers, Count: n})
	}

	slices.SortStableFunc(out, func(a, b TopicCount) int {
		return b.Count - a.Count
	})
	return out
}

// RecentlyRevised returns up to limit revised questions, most recent first.
func RecentlyRevised(questions []model.Question, limit int) []model.Question {
	revised := make([]model.Question, 0, len(questions))
	for _, q := range questions {
		if q.Revised() {
			revised = append(revised, q)
		}
	}

	slices.SortStableFunc(revised, func(a, b model.Question) int {
		return b.LastRevised.Compare(*a.LastRevised)
	})

	if len(revised) > limit {
		revised = revised[:limit]
	}
	return revised
}

// Package query derives the filtered, sorted and grouped views of a user's
// question set.
//
// All functions are pure: they read the input slice and return fresh slices.
// Callers can hand in a snapshot shared with other goroutines.
package query

import (
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/sakif/revision-tracker/internal/apperror"
	"github.com/sakif/revision-tracker/internal/model"
)

// SortKey selects the ordering applied by Apply.
type SortKey string

const (
	SortNone       SortKey = ""
	SortTopic      SortKey = "topic"
	SortDate       SortKey = "date"
	SortDifficulty SortKey = "difficulty"
)

// ParseSortKey validates a user supplied sort key. Empty means "keep order".
func ParseSortKey(raw string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(raw))); k {
	case SortNone, SortTopic, SortDate, SortDifficulty:
		return k, nil
	}
	return SortNone, apperror.ValidationFailed("sort",
		"sort must be one of topic, date or difficulty")
}

// Options controls Apply.
type Options struct {
	// Search is matched case-insensitively against the question text.
	Search string
	// Difficulty, when set, keeps only questions with exactly this difficulty.
	Difficulty string
	Sort       SortKey
}

// Apply filters then sorts questions. Sorting is stable, so questions that
// compare equal keep their input order.
func Apply(questions []model.Question, opts Options) []model.Question {
	needle := strings.ToLower(opts.Search)

	out := make([]model.Question, 0, len(questions))
	for _, q := range questions {
		if needle != "" && !strings.Contains(strings.ToLower(q.Question), needle) {
			continue
		}
		if opts.Difficulty != "" && q.Difficulty != opts.Difficulty {
			continue
		}
		out = append(out, q)
	}

	switch opts.Sort {
	case SortTopic:
		slices.SortStableFunc(out, func(a, b model.Question) int {
			return strings.Compare(a.Topic, b.Topic)
		})
	case SortDate:
		slices.SortStableFunc(out, compareNewestFirst)
	case SortDifficulty:
		slices.SortStableFunc(out, func(a, b model.Question) int {
			return a.ResolvedDifficulty().Rank() - b.ResolvedDifficulty().Rank()
		})
	}

	return out
}

// compareNewestFirst orders by CreatedAt descending with missing dates last.
func compareNewestFirst(a, b model.Question) int {
	switch {
	case a.CreatedAt.IsZero() && b.CreatedAt.IsZero():
		return 0
	case a.CreatedAt.IsZero():
		return 1
	case b.CreatedAt.IsZero():
		return -1
	}
	return b.CreatedAt.Compare(a.CreatedAt)
}

// Random picks one question uniformly. It returns false for an empty set.
func Random(questions []model.Question, r *rand.Rand) (model.Question, bool) {
	if len(questions) == 0 {
		return model.Question{}, false
	}
	var i int
	if r == nil {
		i = rand.IntN(len(questions))
	} else {
		i = r.IntN(len(questions))
	}
	return questions[i], true
}

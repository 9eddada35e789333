package query

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/revision-tracker/internal/apperror"
	"github.com/sakif/revision-tracker/internal/model"
)

func day(n int) time.Time {
	return time.Date(2024, 5, n, 10, 0, 0, 0, time.UTC)
}

func ids(qs []model.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func sampleQuestions() []model.Question {
	return []model.Question{
		{ID: "a", Question: "Two Sum", Topic: "Array", Difficulty: "Easy", CreatedAt: day(1)},
		{ID: "b", Question: "Longest Palindromic Substring", Topic: "String", Difficulty: "Medium", CreatedAt: day(3)},
		{ID: "c", Question: "Word Ladder", Topic: "Graph", Difficulty: "Hard", CreatedAt: day(2)},
		{ID: "d", Question: "Two Sum II", Topic: "", Difficulty: "", CreatedAt: time.Time{}},
		{ID: "e", Question: "Trie Insert", Topic: "Trie", Difficulty: "Legendary", CreatedAt: day(5)},
	}
}

// =========================================================================
// FILTER TESTS
// =========================================================================

func TestApply_EmptyOptionsKeepsEverythingInOrder(t *testing.T) {
	qs := sampleQuestions()
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(Apply(qs, Options{})))
}

func TestApply_SearchIsCaseInsensitiveSubstring(t *testing.T) {
	got := Apply(sampleQuestions(), Options{Search: "two SUM"})
	assert.Equal(t, []string{"a", "d"}, ids(got))

	got = Apply(sampleQuestions(), Options{Search: "ladder"})
	assert.Equal(t, []string{"c"}, ids(got))

	got = Apply(sampleQuestions(), Options{Search: "nothing like this"})
	assert.Empty(t, got)
}

func TestApply_DifficultyFilterIsExact(t *testing.T) {
	got := Apply(sampleQuestions(), Options{Difficulty: "Hard"})
	assert.Equal(t, []string{"c"}, ids(got))

	// A missing difficulty is not an exact "Medium".
	got = Apply(sampleQuestions(), Options{Difficulty: "Medium"})
	assert.Equal(t, []string{"b"}, ids(got))
}

func TestApply_FilterAndSortCombined(t *testing.T) {
	got := Apply(sampleQuestions(), Options{Search: "two", Sort: SortDate})
	assert.Equal(t, []string{"a", "d"}, ids(got))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	qs := sampleQuestions()
	before := ids(qs)

	_ = Apply(qs, Options{Sort: SortDifficulty})
	_ = Apply(qs, Options{Sort: SortTopic})
	_ = Apply(qs, Options{Sort: SortDate})

	assert.Equal(t, before, ids(qs))
}

// =========================================================================
// SORT TESTS
// =========================================================================

func TestApply_SortTopicAscendingEmptyFirst(t *testing.T) {
	got := Apply(sampleQuestions(), Options{Sort: SortTopic})
	assert.Equal(t, []string{"d", "a", "c", "b", "e"}, ids(got))
}

func TestApply_SortDateNewestFirstMissingLast(t *testing.T) {
	got := Apply(sampleQuestions(), Options{Sort: SortDate})
	assert.Equal(t, []string{"e", "b", "c", "a", "d"}, ids(got))
}

func TestApply_SortDifficultyByRank(t *testing.T) {
	got := Apply(sampleQuestions(), Options{Sort: SortDifficulty})

	// b, d and e all rank as Medium and keep their relative order.
	assert.Equal(t, []string{"a", "b", "d", "e", "c"}, ids(got))

	for i := 1; i < len(got); i++ {
		prev := got[i-1].ResolvedDifficulty().Rank()
		cur := got[i].ResolvedDifficulty().Rank()
		assert.LessOrEqual(t, prev, cur, "rank order broken at %d", i)
	}
}

func TestApply_SortDifficultyNonDecreasingForAnyOrder(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	pool := []string{"Easy", "Medium", "Hard", "", "unknown"}

	for run := 0; run < 50; run++ {
		qs := make([]model.Question, 20)
		for i := range qs {
			qs[i] = model.Question{ID: string(rune('a' + i)), Difficulty: pool[r.IntN(len(pool))]}
		}
		got := Apply(qs, Options{Sort: SortDifficulty})
		require.Len(t, got, len(qs))
		for i := 1; i < len(got); i++ {
			assert.LessOrEqual(t, got[i-1].ResolvedDifficulty().Rank(), got[i].ResolvedDifficulty().Rank())
		}
	}
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		raw     string
		want    SortKey
		wantErr bool
	}{
		{raw: "", want: SortNone},
		{raw: "topic", want: SortTopic},
		{raw: " Date ", want: SortDate},
		{raw: "DIFFICULTY", want: SortDifficulty},
		{raw: "popularity", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSortKey(tt.raw)
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperror.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// =========================================================================
// RANDOM PICK TESTS
// =========================================================================

func TestRandom(t *testing.T) {
	_, ok := Random(nil, nil)
	assert.False(t, ok)

	qs := sampleQuestions()
	r := rand.New(rand.NewPCG(7, 7))
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		q, ok := Random(qs, r)
		require.True(t, ok)
		seen[q.ID] = true
	}
	assert.Len(t, seen, len(qs), "every question should eventually be picked")

	q, ok := Random(qs[:1], nil)
	assert.True(t, ok)
	assert.Equal(t, "a", q.ID)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/revision-tracker/internal/apperror"
	"github.com/sakif/revision-tracker/internal/model"
	"github.com/sakif/revision-tracker/internal/query"
	"github.com/sakif/revision-tracker/internal/revision"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestQuestionService(repo *fakeQuestionRepo, opts ...QuestionOption) *QuestionService {
	opts = append([]QuestionOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewQuestionService(repo, revision.NewSettings(nil), testLogger(), opts...)
}

func validInput(link string) QuestionInput {
	return QuestionInput{Question: "Two Sum", Link: link, Topic: "Array"}
}

func daysAgo(n int) *time.Time {
	t := fixedNow.Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}

// seed stores questions for user-1 directly in the fake.
func seed(repo *fakeQuestionRepo, qs ...model.Question) {
	for _, q := range qs {
		if q.UserID == "" {
			q.UserID = "user-1"
		}
		repo.insert(&q)
	}
}

// =========================================================================
// CREATE / UPDATE
// =========================================================================

func TestCreate_NormalisesAndDefaults(t *testing.T) {
	repo := newFakeQuestionRepo()
	svc := newTestQuestionService(repo)

	src := "  LeetCode  "
	q, err := svc.Create(context.Background(), "user-1", QuestionInput{
		Question: "  Two Sum ",
		Link:     " https://leetcode.com/problems/two-sum ",
		Topic:    " Array ",
		Source:   &src,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, q.ID)
	assert.Equal(t, "user-1", q.UserID)
	assert.Equal(t, "Two Sum", q.Question)
	assert.Equal(t, "https://leetcode.com/problems/two-sum", q.Link)
	assert.Equal(t, "Array", q.Topic)
	assert.Equal(t, "Medium", q.Difficulty)
	require.NotNil(t, q.Source)
	assert.Equal(t, "LeetCode", *q.Source)
	assert.Equal(t, fixedNow, q.CreatedAt)
	assert.Nil(t, q.LastRevised)
	assert.Len(t, repo.questions, 1)
}

func TestCreate_Validation(t *testing.T) {
	blank := "   "
	tests := []struct {
		name      string
		in        QuestionInput
		wantField string
	}{
		{"missing question", QuestionInput{Link: "https://x.dev/a", Topic: "Array"}, "question"},
		{"missing link", QuestionInput{Question: "q", Topic: "Array"}, "link"},
		{"relative link", QuestionInput{Question: "q", Link: "/problems/a", Topic: "Array"}, "link"},
		{"missing topic", QuestionInput{Question: "q", Link: "https://x.dev/a", Topic: "  "}, "topic"},
		{"bad difficulty", QuestionInput{Question: "q", Link: "https://x.dev/a", Topic: "Array", Difficulty: "Insane"}, "difficulty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeQuestionRepo()
			_, err := newTestQuestionService(repo).Create(context.Background(), "user-1", tt.in)
			require.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Empty(t, repo.questions)
		})
	}

	t.Run("blank source becomes nil", func(t *testing.T) {
		in := validInput("https://x.dev/a")
		in.Source = &blank
		q, err := newTestQuestionService(newFakeQuestionRepo()).Create(context.Background(), "user-1", in)
		require.NoError(t, err)
		assert.Nil(t, q.Source)
	})

	t.Run("difficulty is case-insensitive on input", func(t *testing.T) {
		in := validInput("https://x.dev/a")
		in.Difficulty = "hard"
		q, err := newTestQuestionService(newFakeQuestionRepo()).Create(context.Background(), "user-1", in)
		require.NoError(t, err)
		assert.Equal(t, "Hard", q.Difficulty)
	})
}

func TestUpdate_KeepsTimestamps(t *testing.T) {
	repo := newFakeQuestionRepo()
	seed(repo, model.Question{
		Question: "old", Link: "https://x.dev/a", Topic: "Array", Difficulty: "Easy",
		CreatedAt: *daysAgo(30), LastRevised: daysAgo(3),
	})
	svc := newTestQuestionService(repo)

	q, err := svc.Update(context.Background(), "user-1", "q-1", QuestionInput{
		Question: "new", Link: "https://x.dev/b", Topic: "Graph", Difficulty: "Hard",
	})
	require.NoError(t, err)
	assert.Equal(t, "new", q.Question)
	assert.Equal(t, "Graph", q.Topic)
	assert.Equal(t, *daysAgo(30), q.CreatedAt)
	require.NotNil(t, q.LastRevised)
	assert.Equal(t, *daysAgo(3), *q.LastRevised)
}

func TestOwnership_ForeignIDIsNotFound(t *testing.T) {
	repo := newFakeQuestionRepo()
	seed(repo, model.Question{UserID: "user-2", Question: "theirs", Link: "https://x.dev/a", Topic: "Array"})
	svc := newTestQuestionService(repo)
	ctx := context.Background()

	_, err := svc.Get(ctx, "user-1", "q-1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = svc.Update(ctx, "user-1", "q-1", validInput("https://x.dev/b"))
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = svc.MarkRevised(ctx, "user-1", "q-1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "user-1", "q-1"), apperror.ErrNotFound)

	assert.Len(t, repo.questions, 1)
	assert.Nil(t, repo.questions[0].LastRevised)
}

func TestDelete(t *testing.T) {
	repo := newFakeQuestionRepo()
	seed(repo, model.Question{Question: "a", Link: "https://x.dev/a", Topic: "Array"})
	svc := newTestQuestionService(repo)

	require.NoError(t, svc.Delete(context.Background(), "user-1", "q-1"))
	assert.Empty(t, repo.questions)
	assert.ErrorIs(t, svc.Delete(context.Background(), "user-1", " "), apperror.ErrValidation)
}

// =========================================================================
// REVISION
// =========================================================================

func TestMarkRevised_StampsNow(t *testing.T) {
	repo := newFakeQuestionRepo()
	seed(repo, model.Question{Question: "a", Link: "https://x.dev/a", Topic: "Array", LastRevised: daysAgo(10)})
	svc := newTestQuestionService(repo)

	q, err := svc.MarkRevised(context.Background(), "user-1", "q-1")
	require.NoError(t, err)
	require.NotNil(t, q.LastRevised)
	assert.Equal(t, fixedNow, *q.LastRevised)
	assert.Equal(t, fixedNow, *repo.questions[0].LastRevised)

	due, err := svc.Due(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, due, "a question revised just now is never due")
}

func TestDue_NeverRevisedFirstThenOldest(t *testing.T) {
	repo := newFakeQuestionRepo()
	seed(repo,
		model.Question{Question: "fresh", Link: "https://x.dev/1", Topic: "Array", LastRevised: daysAgo(2)},
		model.Question{Question: "old", Link: "https://x.dev/2", Topic: "Array", LastRevised: daysAgo(20)},
		model.Question{Question: "never", Link: "https://x.dev/3", Topic: "Array"},
		model.Question{Question: "older", Link: "https://x.dev/4", Topic: "Array", LastRevised: daysAgo(40)},
		model.Question{Question: "stale", Link: "https://x.dev/5", Topic: "Array", LastRevised: daysAgo(8)},
	)
	svc := newTestQuestionService(repo)

	due, err := svc.Due(context.Background(), "user-1")
	require.NoError(t, err)

	var names []string
	for _, q := range due {
		names = append(names, q.Question)
	}
	assert.Equal(t, []string{"never", "older", "old", "stale"}, names)
}

func TestDue_FollowsThreshold(t *testing.T) {
	repo := newFakeQuestionRepo()
	seed(repo, model.Question{Question: "a", Link: "https://x.dev/a", Topic: "Array", LastRevised: daysAgo(5)})

	settings := revision.NewSettings(nil)
	svc := NewQuestionService(repo, settings, testLogger(), WithClock(func() time.Time { return fixedNow }))

	due, err := svc.Due(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, due, "5 days is within the default 7")

	ok, err := settings.SetThresholdDays(context.Background(), 3)
	require.NoError(t, err)
	require.True(t, ok)

	due, err = svc.Due(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestDue_SeesThresholdWrittenByAnotherProcess(t *testing.T) {
	repo := newFakeQuestionRepo()
	seed(repo, model.Question{Question: "a", Link: "https://x.dev/a", Topic: "Array", LastRevised: daysAgo(5)})

	store := &fakeThresholdStore{}
	settings := revision.NewSettings(store)
	require.NoError(t, settings.Load(context.Background()))
	svc := NewQuestionService(repo, settings, testLogger(), WithClock(func() time.Time { return fixedNow }))

	due, err := svc.Due(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, due)

	// The CLI writes the shared database behind the server's back.
	store.days, store.saved = 3, true

	due, err = svc.Due(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, due, 1)

	st, err := svc.Stats(context.Background(), "user-1", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 3, st.ThresholdDays)
}

// =========================================================================
// LISTING
// =========================================================================

func TestList_AppliesPipeline(t *testing.T) {
	repo := newFakeQuestionRepo()
	seed(repo,
		model.Question{Question: "Two Sum", Link: "https://x.dev/1", Topic: "Array", Difficulty: "Easy"},
		model.Question{Question: "Word Ladder", Link: "https://x.dev/2", Topic: "Graph", Difficulty: "Hard"},
		model.Question{Question: "Three Sum", Link: "https://x.dev/3", Topic: "Array", Difficulty: "Medium"},
	)
	svc := newTestQuestionService(repo)

	got, err := svc.List(context.Background(), "user-1", query.Options{Search: "sum", Sort: query.SortDifficulty})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Two Sum", got[0].Question)
	assert.Equal(t, "Three Sum", got[1].Question)

	groups, err := svc.Grouped(context.Background(), "user-1", query.Options{})
	require.NoError(t, err)
	arr, ok := groups.Get(model.TopicArray)
	require.True(t, ok)
	assert.Len(t, arr, 2)
}

func TestList_RepositoryError(t *testing.T) {
	repo := newFakeQuestionRepo()
	repo.listErr = errors.New("disk on fire")
	_, err := newTestQuestionService(repo).List(context.Background(), "user-1", query.Options{})
	assert.Error(t, err)
}

func TestRandom(t *testing.T) {
	repo := newFakeQuestionRepo()
	svc := newTestQuestionService(repo, WithRand(rand.New(rand.NewPCG(1, 2))))

	_, err := svc.Random(context.Background(), "user-1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	seed(repo,
		model.Question{Question: "a", Link: "https://x.dev/1", Topic: "Array"},
		model.Question{Question: "b", Link: "https://x.dev/2", Topic: "Array"},
	)
	q, err := svc.Random(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Contains(t, []string{"q-1", "q-2"}, q.ID)
}

// =========================================================================
// STATS
// =========================================================================

func TestStats_UsesThresholdAndLocation(t *testing.T) {
	repo := newFakeQuestionRepo()
	// 23:30 UTC on 9 March is already 10 March in Tokyo.
	late := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	seed(repo,
		model.Question{Question: "a", Link: "https://x.dev/1", Topic: "Array", Difficulty: "Easy", LastRevised: &late},
		model.Question{Question: "b", Link: "https://x.dev/2", Topic: "Tree", Difficulty: "Hard"},
	)
	svc := newTestQuestionService(repo)

	utc, err := svc.Stats(context.Background(), "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, utc.Total)
	assert.Equal(t, 1, utc.DueCount)
	assert.Equal(t, 7, utc.ThresholdDays)
	assert.Equal(t, 0, utc.StreakDays, "nothing revised on 10 March UTC")

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	local, err := svc.Stats(context.Background(), "user-1", tokyo)
	require.NoError(t, err)
	assert.Equal(t, 1, local.StreakDays, "the revision falls on today in Tokyo")
}

// =========================================================================
// EXPORT / IMPORT
// =========================================================================

func TestExportImport_RoundTripIsIdempotent(t *testing.T) {
	repo := newFakeQuestionRepo()
	seed(repo,
		model.Question{Question: "a", Link: "https://x.dev/1", Topic: "Array", Difficulty: "Easy", CreatedAt: *daysAgo(5), LastRevised: daysAgo(1)},
		model.Question{Question: "b", Link: "https://x.dev/2", Topic: "Tree", Difficulty: "Hard", CreatedAt: *daysAgo(3)},
	)
	svc := newTestQuestionService(repo)
	ctx := context.Background()

	doc, err := svc.Export(ctx, "user-1")
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(doc, &records))
	assert.Len(t, records, 2)

	summary, err := svc.Import(ctx, "user-1", doc)
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{Imported: 0, Skipped: 2}, summary)

	summary, err = svc.Import(ctx, "user-2", doc)
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{Imported: 2, Skipped: 0}, summary, "links are deduplicated per user")

	theirs, err := svc.List(ctx, "user-2", query.Options{})
	require.NoError(t, err)
	require.Len(t, theirs, 2)
	assert.Equal(t, *daysAgo(5), theirs[0].CreatedAt)
	require.NotNil(t, theirs[0].LastRevised)
	assert.Equal(t, *daysAgo(1), *theirs[0].LastRevised)
}

func TestImport_SkipsInvalidAndStampsNow(t *testing.T) {
	repo := newFakeQuestionRepo()
	svc := newTestQuestionService(repo)

	doc := []byte(`[
		{"question":"ok","link":"https://x.dev/1","topic":"Array"},
		{"question":"dup","link":"https://x.dev/1","topic":"Array"},
		{"question":"","link":"https://x.dev/2","topic":"Array"},
		{"question":"bad link","link":"nope","topic":"Array"}
	]`)
	summary, err := svc.Import(context.Background(), "user-1", doc)
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{Imported: 1, Skipped: 3}, summary)

	require.Len(t, repo.questions, 1)
	assert.Equal(t, "user-1", repo.questions[0].UserID)
	assert.Equal(t, fixedNow, repo.questions[0].CreatedAt)
	assert.Equal(t, "Medium", repo.questions[0].Difficulty)
}

func TestImport_MalformedChangesNothing(t *testing.T) {
	repo := newFakeQuestionRepo()
	seed(repo, model.Question{Question: "a", Link: "https://x.dev/1", Topic: "Array"})
	svc := newTestQuestionService(repo)

	for _, doc := range []string{``, `not json`, `"a string"`, `42`} {
		_, err := svc.Import(context.Background(), "user-1", []byte(doc))
		assert.ErrorIs(t, err, apperror.ErrMalformed, "document %q", doc)
	}
	assert.Len(t, repo.questions, 1)
}

func TestImport_BatchFailure(t *testing.T) {
	repo := newFakeQuestionRepo()
	repo.batchErr = errors.New("constraint failed")
	svc := newTestQuestionService(repo)

	_, err := svc.Import(context.Background(), "user-1", []byte(`{"question":"a","link":"https://x.dev/1","topic":"Array"}`))
	assert.Error(t, err)
	assert.Empty(t, repo.questions)
}

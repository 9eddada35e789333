// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// The services here glue the pure engine packages (revision, query, stats,
// transfer) to storage. The engine never reads the clock or the database;
// the services do both and hand the engine plain values.
//
// Services accept primitives and domain types, never *http.Request, so the
// HTTP server and the revisionctl CLI share exactly the same rules.
package service

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/sakif/revision-tracker/internal/apperror"
	"github.com/sakif/revision-tracker/internal/model"
	"github.com/sakif/revision-tracker/internal/query"
	"github.com/sakif/revision-tracker/internal/repository"
	"github.com/sakif/revision-tracker/internal/revision"
	"github.com/sakif/revision-tracker/internal/stats"
	"github.com/sakif/revision-tracker/internal/transfer"
)

// Validation constants.
const (
	MaxQuestionLength = 500
	MaxLinkLength     = 2048
	MaxTopicLength    = 100
	MaxSourceLength   = 100
)

// QuestionInput is the user-editable part of a question.
type QuestionInput struct {
	Question   string  `json:"question"`
	Link       string  `json:"link"`
	Topic      string  `json:"topic"`
	Difficulty string  `json:"difficulty"`
	Source     *string `json:"source"`
}

// ImportSummary reports what an import did.
type ImportSummary struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// QuestionService handles business logic for a user's question set.
//
// DEPENDENCIES:
//   - repo     repository.QuestionRepository → question storage
//   - settings *revision.Settings            → the current revision threshold
//   - now      func() time.Time              → the clock (injectable for tests)
//   - rng      *rand.Rand                    → random pick (nil = global source)
type QuestionService struct {
	repo     repository.QuestionRepository
	settings *revision.Settings
	logger   *slog.Logger
	now      func() time.Time
	rng      *rand.Rand
}

// QuestionOption customises a QuestionService.
type QuestionOption func(*QuestionService)

// WithClock replaces time.Now. Tests pass a fixed time.
func WithClock(now func() time.Time) QuestionOption {
	return func(s *QuestionService) { s.now = now }
}

// WithRand makes Random deterministic.
func WithRand(r *rand.Rand) QuestionOption {
	return func(s *QuestionService) { s.rng = r }
}

// NewQuestionService creates a QuestionService.
func NewQuestionService(
	repo repository.QuestionRepository,
	settings *revision.Settings,
	logger *slog.Logger,
	opts ...QuestionOption,
) *QuestionService {
	s := &QuestionService{
		repo:     repo,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// normalize trims and validates input. The returned difficulty is never
// empty: a blank one becomes Medium.
func normalize(in QuestionInput) (QuestionInput, error) {
	in.Question = strings.TrimSpace(in.Question)
	in.Link = strings.TrimSpace(in.Link)
	in.Topic = strings.TrimSpace(in.Topic)
	in.Difficulty = strings.TrimSpace(in.Difficulty)

	switch {
	case in.Question == "":
		return in, apperror.ValidationFailed("question", "question is required")
	case len(in.Question) > MaxQuestionLength:
		return in, apperror.ValidationFailed("question",
			fmt.Sprintf("question must be %d characters or less", MaxQuestionLength))
	case in.Link == "":
		return in, apperror.ValidationFailed("link", "link is required")
	case len(in.Link) > MaxLinkLength:
		return in, apperror.ValidationFailed("link",
			fmt.Sprintf("link must be %d characters or less", MaxLinkLength))
	case !model.ValidLink(in.Link):
		return in, apperror.ValidationFailed("link", "link must be an absolute URL")
	case in.Topic == "":
		return in, apperror.ValidationFailed("topic", "topic is required")
	case len(in.Topic) > MaxTopicLength:
		return in, apperror.ValidationFailed("topic",
			fmt.Sprintf("topic must be %d characters or less", MaxTopicLength))
	}

	if in.Difficulty == "" {
		in.Difficulty = string(model.DefaultDifficulty)
	} else if d, ok := matchDifficulty(in.Difficulty); ok {
		in.Difficulty = string(d)
	} else {
		return in, apperror.ValidationFailed("difficulty", "difficulty must be Easy, Medium or Hard")
	}

	if in.Source != nil {
		src := strings.TrimSpace(*in.Source)
		if len(src) > MaxSourceLength {
			return in, apperror.ValidationFailed("source",
				fmt.Sprintf("source must be %d characters or less", MaxSourceLength))
		}
		if src == "" {
			in.Source = nil
		} else {
			in.Source = &src
		}
	}
	return in, nil
}

// matchDifficulty accepts any casing of a difficulty name on input. Stored
// values are always canonical.
func matchDifficulty(raw string) (model.Difficulty, bool) {
	for _, d := range model.Difficulties() {
		if strings.EqualFold(raw, string(d)) {
			return d, true
		}
	}
	return "", false
}

// Create validates and saves a new question for userID.
func (s *QuestionService) Create(ctx context.Context, userID string, in QuestionInput) (*model.Question, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}

	q := &model.Question{
		UserID:     userID,
		Question:   in.Question,
		Link:       in.Link,
		Topic:      in.Topic,
		Difficulty: in.Difficulty,
		Source:     in.Source,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, q); err != nil {
		s.logger.Error("failed to create question",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating question: %w", err)
	}

	s.logger.Info("question created",
		slog.String("id", q.ID),
		slog.String("userID", userID),
		slog.String("topic", q.Topic),
	)
	return q, nil
}

// Get returns one of userID's questions.
func (s *QuestionService) Get(ctx context.Context, userID, id string) (*model.Question, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "question ID is required")
	}
	return s.repo.GetByID(ctx, userID, id)
}

// Update replaces the editable fields of a question. CreatedAt and
// LastRevised are left alone.
func (s *QuestionService) Update(ctx context.Context, userID, id string, in QuestionInput) (*model.Question, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}

	q, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	q.Question = in.Question
	q.Link = in.Link
	q.Topic = in.Topic
	q.Difficulty = in.Difficulty
	q.Source = in.Source

	if err := s.repo.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("updating question %s: %w", id, err)
	}

	s.logger.Info("question updated", slog.String("id", id), slog.String("userID", userID))
	return q, nil
}

// Delete removes a question.
func (s *QuestionService) Delete(ctx context.Context, userID, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "question ID is required")
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("question deleted", slog.String("id", id), slog.String("userID", userID))
	return nil
}

// MarkRevised stamps the question as revised now and returns it.
func (s *QuestionService) MarkRevised(ctx context.Context, userID, id string) (*model.Question, error) {
	q, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	rev := revision.MarkRevised(q.ID, s.now())
	if err := s.repo.SetLastRevised(ctx, userID, rev.QuestionID, rev.LastRevised); err != nil {
		return nil, fmt.Errorf("marking question %s revised: %w", id, err)
	}
	updated, _ := rev.Apply(*q)

	s.logger.Info("question revised",
		slog.String("id", id),
		slog.String("userID", userID),
		slog.Time("at", rev.LastRevised),
	)
	return &updated, nil
}

// all loads the whole question set of userID.
func (s *QuestionService) all(ctx context.Context, userID string) ([]model.Question, error) {
	qs, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing questions: %w", err)
	}
	return qs, nil
}

// List returns userID's questions after search, filter and sort.
func (s *QuestionService) List(ctx context.Context, userID string, opts query.Options) ([]model.Question, error) {
	qs, err := s.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	return query.Apply(qs, opts), nil
}

// Grouped is List bucketed by topic.
func (s *QuestionService) Grouped(ctx context.Context, userID string, opts query.Options) (query.Groups, error) {
	qs, err := s.List(ctx, userID, opts)
	if err != nil {
		return nil, err
	}
	return query.GroupByTopic(qs), nil
}

// Due returns the questions due at the current threshold: never-revised ones
// first, then the longest-unrevised.
func (s *QuestionService) Due(ctx context.Context, userID string) ([]model.Question, error) {
	qs, err := s.all(ctx, userID)
	if err != nil {
		return nil, err
	}

	days, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	due := make([]model.Question, 0, len(qs))
	for _, q := range qs {
		if revision.IsDue(q, now, days) {
			due = append(due, q)
		}
	}
	slices.SortStableFunc(due, func(a, b model.Question) int {
		switch {
		case a.LastRevised == nil && b.LastRevised == nil:
			return 0
		case a.LastRevised == nil:
			return -1
		case b.LastRevised == nil:
			return 1
		}
		return a.LastRevised.Compare(*b.LastRevised)
	})
	return due, nil
}

// Random picks one question uniformly. An empty set is NotFound.
func (s *QuestionService) Random(ctx context.Context, userID string) (*model.Question, error) {
	qs, err := s.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	q, ok := query.Random(qs, s.rng)
	if !ok {
		return nil, apperror.NotFound("question", "random")
	}
	return &q, nil
}

// Stats aggregates the question set. Calendar days are counted in loc; a nil
// loc means UTC.
func (s *QuestionService) Stats(ctx context.Context, userID string, loc *time.Location) (stats.Stats, error) {
	qs, err := s.all(ctx, userID)
	if err != nil {
		return stats.Stats{}, err
	}
	days, err := s.settings.Current(ctx)
	if err != nil {
		return stats.Stats{}, err
	}
	loc = cmp.Or(loc, time.UTC)
	return stats.Compute(qs, s.now().In(loc), days), nil
}

// Export returns the interchange document for userID's questions.
func (s *QuestionService) Export(ctx context.Context, userID string) ([]byte, error) {
	qs, err := s.all(ctx, userID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := transfer.Encode(&buf, transfer.ToExportRecords(qs)); err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}

	s.logger.Info("questions exported", slog.String("userID", userID), slog.Int("count", len(qs)))
	return buf.Bytes(), nil
}

// Import merges an interchange document into userID's set. Records whose
// link is already present are skipped; the rest are written in one
// transaction. A malformed document changes nothing.
func (s *QuestionService) Import(ctx context.Context, userID string, raw []byte) (ImportSummary, error) {
	existing, err := s.all(ctx, userID)
	if err != nil {
		return ImportSummary{}, err
	}
	links := make([]string, len(existing))
	for i, q := range existing {
		links[i] = q.Link
	}

	res, err := transfer.ParseImport(raw, links, s.now())
	if err != nil {
		s.logger.Warn("import rejected",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return ImportSummary{}, err
	}

	for i := range res.Accepted {
		res.Accepted[i].UserID = userID
	}
	if err := s.repo.CreateBatch(ctx, res.Accepted); err != nil {
		return ImportSummary{}, fmt.Errorf("saving imported questions: %w", err)
	}

	summary := ImportSummary{Imported: len(res.Accepted), Skipped: res.Skipped}
	s.logger.Info("questions imported",
		slog.String("userID", userID),
		slog.Int("imported", summary.Imported),
		slog.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sakif/revision-tracker/internal/apperror"
	"github.com/sakif/revision-tracker/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// Fakes are hand-written in-memory implementations of the repository
// interfaces. Each has an error field per operation to simulate a database
// failure.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUserRepo implements repository.UserRepository.
type fakeUserRepo struct {
	users     map[string]*model.User
	nextID    int
	upsertErr error
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), nextID: 1}
}

func (f *fakeUserRepo) newID() string {
	id := fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	return id
}

func (f *fakeUserRepo) UpsertGitHub(_ context.Context, user *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, existing := range f.users {
		if existing.GitHubID != nil && *existing.GitHubID == *user.GitHubID {
			existing.Login = user.Login
			existing.Email = user.Email
			existing.AvatarURL = user.AvatarURL
			existing.UpdatedAt = time.Now()
			*user = *existing
			return nil
		}
	}
	user.ID = f.newID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.users {
		if existing.PasswordHash != "" && existing.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	user.ID = f.newID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.PasswordHash != "" && u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) ListUsers(_ context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	slices.SortFunc(out, func(a, b model.User) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// fakeQuestionRepo implements repository.QuestionRepository. Questions keep
// insertion order, which List returns unchanged.
type fakeQuestionRepo struct {
	questions []model.Question
	nextID    int
	listErr   error
	createErr error
	batchErr  error
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{nextID: 1}
}

func (f *fakeQuestionRepo) insert(q *model.Question) {
	q.ID = fmt.Sprintf("q-%d", f.nextID)
	f.nextID++
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	f.questions = append(f.questions, *q)
}

func (f *fakeQuestionRepo) Create(_ context.Context, q *model.Question) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.insert(q)
	return nil
}

func (f *fakeQuestionRepo) CreateBatch(_ context.Context, qs []model.Question) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	for i := range qs {
		f.insert(&qs[i])
	}
	return nil
}

func (f *fakeQuestionRepo) index(userID, id string) int {
	return slices.IndexFunc(f.questions, func(q model.Question) bool {
		return q.ID == id && q.UserID == userID
	})
}

func (f *fakeQuestionRepo) GetByID(_ context.Context, userID, id string) (*model.Question, error) {
	i := f.index(userID, id)
	if i < 0 {
		return nil, apperror.NotFound("question", id)
	}
	q := f.questions[i]
	return &q, nil
}

func (f *fakeQuestionRepo) List(_ context.Context, userID string) ([]model.Question, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []model.Question{}
	for _, q := range f.questions {
		if q.UserID == userID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuestionRepo) Update(_ context.Context, q *model.Question) error {
	i := f.index(q.UserID, q.ID)
	if i < 0 {
		return apperror.NotFound("question", q.ID)
	}
	f.questions[i] = *q
	return nil
}

func (f *fakeQuestionRepo) Delete(_ context.Context, userID, id string) error {
	i := f.index(userID, id)
	if i < 0 {
		return apperror.NotFound("question", id)
	}
	f.questions = slices.Delete(f.questions, i, i+1)
	return nil
}

func (f *fakeQuestionRepo) SetLastRevised(_ context.Context, userID, id string, at time.Time) error {
	i := f.index(userID, id)
	if i < 0 {
		return apperror.NotFound("question", id)
	}
	f.questions[i].LastRevised = &at
	return nil
}

// fakeThresholdStore implements revision.ThresholdStore.
type fakeThresholdStore struct {
	days    int
	saved   bool
	saveErr error
}

func (f *fakeThresholdStore) LoadThresholdDays(_ context.Context) (int, bool, error) {
	return f.days, f.saved, nil
}

func (f *fakeThresholdStore) SaveThresholdDays(_ context.Context, days int) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.days, f.saved = days, true
	return nil
}

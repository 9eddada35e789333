// Package repository declares the storage interfaces the services depend on.
// internal/repository/sqlite provides the production implementation; tests
// use hand-written in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/revision-tracker/internal/model"
)

// QuestionRepository stores question records. Every lookup is scoped to the
// owning user, so one user can never read or touch another user's questions:
// a foreign ID behaves exactly like a missing one (apperror.ErrNotFound).
type QuestionRepository interface {
	Create(ctx context.Context, q *model.Question) error
	// CreateBatch inserts all questions or none of them.
	CreateBatch(ctx context.Context, qs []model.Question) error
	GetByID(ctx context.Context, userID, id string) (*model.Question, error)
	List(ctx context.Context, userID string) ([]model.Question, error)
	Update(ctx context.Context, q *model.Question) error
	Delete(ctx context.Context, userID, id string) error
	SetLastRevised(ctx context.Context, userID, id string, at time.Time) error
}

// UserRepository stores accounts from both identity sources.
type UserRepository interface {
	// UpsertGitHub creates or refreshes the account linked to user.GitHubID.
	UpsertGitHub(ctx context.Context, user *model.User) error
	// CreateUser inserts an email/password account. A taken email is
	// reported as apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

package users

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/sumon-ahmed84/book-courier-server11/internal/sellerrequests"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/errors"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/logger"
	"gorm.io/gorm"
)

// ConstraintEmail backs the one-row-per-identity rule on users.
const ConstraintEmail = "uq_users_email"

// TxRunner runs a function inside a single database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Service interface {
	UpsertIdentity(ctx context.Context, email, name string) (*models.User, error)
	Role(ctx context.Context, email string) (models.UserRole, error)
	List(ctx context.Context) ([]models.User, error)
	ChangeRole(ctx context.Context, email string, role models.UserRole) (*models.User, error)
}

type service struct {
	repo     Repository
	requests sellerrequests.Repository
	tx       TxRunner
	log      *logger.Logger
	now      func() time.Time
}

func NewService(repo Repository, requests sellerrequests.Repository, tx TxRunner, log *logger.Logger) Service {
	return &service{
		repo:     repo,
		requests: requests,
		tx:       tx,
		log:      log,
		now:      time.Now,
	}
}

// UpsertIdentity records a sign-in from the identity provider: first sight
// creates the row with the default role, later sights refresh last_login_at.
// A create that loses to a concurrent sign-in settles on the existing row.
func (s *service) UpsertIdentity(ctx context.Context, email, name string) (*models.User, error) {
	if email == "" {
		return nil, errors.New(errors.CodeValidation, "email is required")
	}
	loginAt := s.now().UTC()

	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		if terr := s.repo.TouchLogin(ctx, email, loginAt); terr != nil {
			return nil, errors.Wrap(errors.CodeInternal, terr, "recording sign-in")
		}
		existing.LastLoginAt = &loginAt
		return existing, nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading identity")
	}

	user := &models.User{
		Email:       email,
		Name:        name,
		Role:        models.RoleCustomer,
		LastLoginAt: &loginAt,
	}
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if db.IsUniqueViolation(err, ConstraintEmail) {
			winner, ferr := s.repo.FindByEmail(ctx, email)
			if ferr != nil {
				return nil, errors.Wrap(errors.CodeInternal, ferr, "resolving identity after sign-in race")
			}
			return winner, nil
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "creating identity")
	}
	return created, nil
}

func (s *service) Role(ctx context.Context, email string) (models.UserRole, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			// Unseen identities read as customers; the row appears on first upsert.
			return models.RoleCustomer, nil
		}
		return "", errors.Wrap(errors.CodeInternal, err, "loading role")
	}
	return user.Role, nil
}

func (s *service) List(ctx context.Context) ([]models.User, error) {
	found, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing users")
	}
	return found, nil
}

// ChangeRole updates the role and clears any pending seller request in the
// same transaction, so a promoted identity never lingers in the queue.
func (s *service) ChangeRole(ctx context.Context, email string, role models.UserRole) (*models.User, error) {
	if !role.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown role").
			WithDetails(map[string]any{"role": string(role)})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateRole(ctx, email, role); err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "user not found")
			}
			return err
		}
		return s.requests.WithTx(tx).DeleteByEmail(ctx, email)
	})
	if err != nil {
		if coded := errors.As(err); coded != nil {
			return nil, coded
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "changing role")
	}

	ctx = s.log.WithIdentity(ctx, email)
	s.log.Info(ctx, "user role changed")

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "reloading user after role change")
	}
	return user, nil
}

package sellerrequests

import (
	"context"
	stderrors "errors"

	"github.com/sumon-ahmed84/book-courier-server11/pkg/db"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/errors"
	"gorm.io/gorm"
)

// RoleLookup answers what role an identity currently holds.
type RoleLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type Service interface {
	Submit(ctx context.Context, email string) (*models.SellerRequest, error)
	List(ctx context.Context) ([]models.SellerRequest, error)
}

type service struct {
	repo  Repository
	users RoleLookup
}

func NewService(repo Repository, users RoleLookup) Service {
	return &service{repo: repo, users: users}
}

// Submit files a promotion request. Identities that already sell (or
// administer) have nothing to request.
func (s *service) Submit(ctx context.Context, email string) (*models.SellerRequest, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading requesting identity")
	}
	if user != nil && user.Role != models.RoleCustomer {
		return nil, errors.New(errors.CodeConflict, "identity already holds an elevated role").
			WithDetails(map[string]any{"role": string(user.Role)})
	}

	request, err := s.repo.Create(ctx, &models.SellerRequest{Email: email})
	if err != nil {
		if db.IsUniqueViolation(err, ConstraintEmail) {
			return nil, errors.New(errors.CodeConflict, "seller request already pending")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "filing seller request")
	}
	return request, nil
}

func (s *service) List(ctx context.Context) ([]models.SellerRequest, error) {
	found, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing seller requests")
	}
	return found, nil
}

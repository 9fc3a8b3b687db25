package orders

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/auth"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/errors"
	"gorm.io/gorm"
)

// Service exposes the read/fulfillment surface of the ledger. Writes that
// create orders live in the reconciliation engine, not here.
type Service interface {
	MyOrders(ctx context.Context, buyerEmail string) ([]models.Order, error)
	SellerOrders(ctx context.Context, sellerEmail string) ([]models.Order, error)
	UpdateStatus(ctx context.Context, caller auth.Identity, id uuid.UUID, status models.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, caller auth.Identity, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) MyOrders(ctx context.Context, buyerEmail string) ([]models.Order, error) {
	found, err := s.repo.FindByBuyer(ctx, buyerEmail)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing buyer orders")
	}
	return found, nil
}

func (s *service) SellerOrders(ctx context.Context, sellerEmail string) ([]models.Order, error) {
	found, err := s.repo.FindBySeller(ctx, sellerEmail)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing seller orders")
	}
	return found, nil
}

func (s *service) UpdateStatus(ctx context.Context, caller auth.Identity, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	switch status {
	case models.OrderStatusPending, models.OrderStatusBackorder,
		models.OrderStatusShipped, models.OrderStatusDelivered:
	default:
		return nil, errors.New(errors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": string(status)})
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(caller, order); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "updating order status")
	}
	order.Status = status
	return order, nil
}

func (s *service) Delete(ctx context.Context, caller auth.Identity, id uuid.UUID) error {
	order, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(caller, order); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New(errors.CodeNotFound, "order not found")
		}
		return errors.Wrap(errors.CodeInternal, err, "deleting order")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading order")
	}
	return order, nil
}

// authorize allows admins and the order's own seller to manage fulfillment.
func (s *service) authorize(caller auth.Identity, order *models.Order) error {
	if caller.Role == models.RoleAdmin {
		return nil
	}
	if caller.Role == models.RoleSeller && caller.Email == order.SellerEmail {
		return nil
	}
	return errors.New(errors.CodeForbidden, "not allowed to manage this order")
}

package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/auth"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/errors"
)

func TestUpdateStatusAuthorization(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo)
	ctx := context.Background()

	order := testOrder("txn_auth", "buyer@example.com")
	_, _, err := repo.InsertIfAbsent(ctx, order)
	require.NoError(t, err)

	owner := auth.Identity{Email: "seller@example.com", Role: models.RoleSeller}
	updated, err := svc.UpdateStatus(ctx, owner, order.ID, models.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, updated.Status)

	otherSeller := auth.Identity{Email: "other@example.com", Role: models.RoleSeller}
	_, err = svc.UpdateStatus(ctx, otherSeller, order.ID, models.OrderStatusDelivered)
	require.Error(t, err)
	assert.Equal(t, errors.CodeForbidden, errors.As(err).Code())

	buyer := auth.Identity{Email: "buyer@example.com", Role: models.RoleCustomer}
	_, err = svc.UpdateStatus(ctx, buyer, order.ID, models.OrderStatusDelivered)
	require.Error(t, err)
	assert.Equal(t, errors.CodeForbidden, errors.As(err).Code())

	admin := auth.Identity{Email: "admin@example.com", Role: models.RoleAdmin}
	updated, err = svc.UpdateStatus(ctx, admin, order.ID, models.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, updated.Status)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc := NewService(NewRepository(db))

	admin := auth.Identity{Email: "admin@example.com", Role: models.RoleAdmin}
	_, err := svc.UpdateStatus(context.Background(), admin, uuid.New(), models.OrderStatus("teleported"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.As(err).Code())
}

func TestDeleteOrder(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo)
	ctx := context.Background()

	order := testOrder("txn_delete", "buyer@example.com")
	_, _, err := repo.InsertIfAbsent(ctx, order)
	require.NoError(t, err)

	stranger := auth.Identity{Email: "other@example.com", Role: models.RoleSeller}
	err = svc.Delete(ctx, stranger, order.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeForbidden, errors.As(err).Code())

	admin := auth.Identity{Email: "admin@example.com", Role: models.RoleAdmin}
	require.NoError(t, svc.Delete(ctx, admin, order.ID))

	err = svc.Delete(ctx, admin, order.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.As(err).Code())
}

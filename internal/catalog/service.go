package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/config"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	pkgerrors "github.com/sumon-ahmed84/book-courier-server11/pkg/errors"
	"gorm.io/gorm"
)

// CreateInput captures a seller's new listing.
type CreateInput struct {
	Title      string
	Category   string
	PriceCents int
	Stock      int
	ImageURL   string
}

// Service fronts catalog reads and seller listing writes.
type Service interface {
	Create(ctx context.Context, sellerEmail string, input CreateInput) (*models.Book, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Book, error)
	List(ctx context.Context) ([]models.Book, error)
	Latest(ctx context.Context) ([]models.Book, error)
	Search(ctx context.Context, query string) ([]models.Book, error)
	SellerInventory(ctx context.Context, sellerEmail string) ([]models.Book, error)
}

type service struct {
	repo Repository
	cfg  config.CatalogConfig
}

// NewService builds the catalog service.
func NewService(repo Repository, cfg config.CatalogConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog repository required")
	}
	return &service{repo: repo, cfg: cfg}, nil
}

func (s *service) Create(ctx context.Context, sellerEmail string, input CreateInput) (*models.Book, error) {
	if strings.TrimSpace(sellerEmail) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller email required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if input.PriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must be non-negative")
	}

	book := &models.Book{
		Title:       strings.TrimSpace(input.Title),
		Category:    strings.TrimSpace(input.Category),
		PriceCents:  input.PriceCents,
		Stock:       input.Stock,
		SellerEmail: sellerEmail,
		ImageURL:    input.ImageURL,
	}
	created, err := s.repo.Create(ctx, book)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create listing")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}
	return book, nil
}

func (s *service) List(ctx context.Context) ([]models.Book, error) {
	books, err := s.repo.List(ctx, s.cfg.PageLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list books")
	}
	return books, nil
}

func (s *service) Latest(ctx context.Context) ([]models.Book, error) {
	books, err := s.repo.Latest(ctx, s.cfg.LatestLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list latest books")
	}
	return books, nil
}

func (s *service) Search(ctx context.Context, query string) ([]models.Book, error) {
	if strings.TrimSpace(query) == "" {
		return []models.Book{}, nil
	}
	books, err := s.repo.Search(ctx, query, s.cfg.PageLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search books")
	}
	return books, nil
}

func (s *service) SellerInventory(ctx context.Context, sellerEmail string) ([]models.Book, error) {
	books, err := s.repo.FindBySeller(ctx, sellerEmail)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller inventory")
	}
	return books, nil
}

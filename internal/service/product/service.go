// Package product implements the catalog: validation, filtering,
// pagination and soft deletion over the persisted product store.
package product

import (
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/DavidGarciaCosta/portal-productos/internal/model/product"
)

var validate = validator.New()

// Store is the persistence the catalog depends on.
type Store interface {
	Create(p product.Product) (product.Product, error)
	Update(p product.Product) (product.Product, error)
	Get(id string) (product.Product, error)
	Deactivate(id string) error
	List() ([]product.Product, error)
}

// Input is the payload accepted for create and update operations.
type Input struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description string  `json:"description" validate:"required,max=1000"`
	Price       float64 `json:"price" validate:"gte=0"`
	Category    string  `json:"category" validate:"required"`
	Image       string  `json:"image"`
	Stock       int     `json:"stock" validate:"gte=0"`
}

// ListQuery narrows and pages a catalog listing.
type ListQuery struct {
	Category string
	Search   string
	Page     int
	Limit    int
}

// Service is the catalog service.
type Service struct {
	store Store
}

// NewService wires the catalog service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates the input and persists a new product. The creator's
// name is denormalized so listings render without account lookups.
func (s *Service) Create(input Input, createdBy, createdByName string) (product.Product, error) {
	if err := validate.Struct(input); err != nil {
		return product.Product{}, err
	}
	return s.store.Create(product.Product{
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Price:         input.Price,
		Category:      strings.TrimSpace(input.Category),
		Image:         input.Image,
		Stock:         input.Stock,
		CreatedBy:     createdBy,
		CreatedByName: createdByName,
	})
}

// Update validates the input and overwrites an existing product.
func (s *Service) Update(id string, input Input) (product.Product, error) {
	if err := validate.Struct(input); err != nil {
		return product.Product{}, err
	}
	return s.store.Update(product.Product{
		ID:          id,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Price:       input.Price,
		Category:    strings.TrimSpace(input.Category),
		Image:       input.Image,
		Stock:       input.Stock,
	})
}

// Get fetches one product by id.
func (s *Service) Get(id string) (product.Product, error) {
	return s.store.Get(id)
}

// Delete soft-deletes: the product disappears from listings but the record
// survives.
func (s *Service) Delete(id string) error {
	return s.store.Deactivate(id)
}

// List returns active products matching the query, newest first, paged.
func (s *Service) List(q ListQuery) ([]product.Product, product.Page, error) {
	all, err := s.store.List()
	if err != nil {
		return nil, product.Page{}, err
	}

	category := strings.ToLower(strings.TrimSpace(q.Category))
	search := strings.ToLower(strings.TrimSpace(q.Search))

	filtered := lo.Filter(all, func(p product.Product, _ int) bool {
		if !p.IsActive {
			return false
		}
		if category != "" && !strings.Contains(strings.ToLower(p.Category), category) {
			return false
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			return false
		}
		return true
	})

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 10
	}

	total := len(filtered)
	pages := (total + limit - 1) / limit

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return filtered[start:end], product.Page{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: pages,
	}, nil
}

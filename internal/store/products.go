package store

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/DavidGarciaCosta/portal-productos/internal/model/product"
)

const productKeyPrefix = "product:"

// Products persists catalog entries.
type Products struct {
	db *badger.DB
}

// NewProducts builds the catalog repository.
func NewProducts(db *badger.DB) *Products {
	return &Products{db: db}
}

// Create persists a new product and returns it with id and timestamps set.
func (s *Products) Create(p product.Product) (product.Product, error) {
	p.ID = uuid.NewString()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.IsActive = true

	if err := s.put(p); err != nil {
		return product.Product{}, err
	}
	return p, nil
}

// Update overwrites an existing product, preserving creation metadata.
func (s *Products) Update(p product.Product) (product.Product, error) {
	existing, err := s.Get(p.ID)
	if err != nil {
		return product.Product{}, err
	}
	p.CreatedAt = existing.CreatedAt
	p.CreatedBy = existing.CreatedBy
	p.CreatedByName = existing.CreatedByName
	p.IsActive = existing.IsActive
	p.UpdatedAt = time.Now().UTC()

	if err := s.put(p); err != nil {
		return product.Product{}, err
	}
	return p, nil
}

// Get fetches a product by id regardless of its active flag.
func (s *Products) Get(id string) (product.Product, error) {
	var p product.Product
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, productKeyPrefix+id, &p)
	})
	return p, err
}

// Deactivate soft-deletes a product.
func (s *Products) Deactivate(id string) error {
	p, err := s.Get(id)
	if err != nil {
		return err
	}
	p.IsActive = false
	p.UpdatedAt = time.Now().UTC()
	return s.put(p)
}

// List returns every persisted product. Filtering and pagination are the
// service's concern.
func (s *Products) List() ([]product.Product, error) {
	var products []product.Product
	err := s.db.View(func(txn *badger.Txn) error {
		return forEachPrefix(txn, productKeyPrefix, func(val []byte) error {
			var p product.Product
			if err := json.Unmarshal(val, &p); err != nil {
				return err
			}
			products = append(products, p)
			return nil
		})
	})
	return products, err
}

func (s *Products) put(p product.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(productKeyPrefix+p.ID), data)
	})
}

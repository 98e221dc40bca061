package catalog

import (
	"context"

	"github.com/bazarkala/bazarkala-backend/pkg/db/models"
	"github.com/google/uuid"
)

// Repository defines read access to the catalog-owned tables. The engine
// never mutates stores or products; it only verifies existence.
type Repository interface {
	FindStoreByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

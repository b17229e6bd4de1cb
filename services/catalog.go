package services

import (
	"context"
	"errors"
	"strings"

	"ecoxchange/models"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrCatalogTimeout  = errors.New("catalog query timed out")
)

// Catalog answers buyer searches and resolves listings for purchase.
type Catalog interface {
	// Search returns the matching listings in catalog order. The result is
	// finite and may be empty.
	Search(ctx context.Context, query string) ([]models.Listing, error)
	Listings() []models.Listing
	Lookup(id string) (models.Listing, error)
}

// StaticCatalog serves a fixed set of listings.
type StaticCatalog struct {
	listings []models.Listing
}

func NewStaticCatalog(listings []models.Listing) *StaticCatalog {
	return &StaticCatalog{listings: append([]models.Listing(nil), listings...)}
}

// Listings returns every listing, in configured order.
func (c *StaticCatalog) Listings() []models.Listing {
	return append([]models.Listing(nil), c.listings...)
}

// Lookup finds a listing by id.
func (c *StaticCatalog) Lookup(id string) (models.Listing, error) {
	for _, l := range c.listings {
		if l.ID == id {
			return l, nil
		}
	}
	return models.Listing{}, ErrListingNotFound
}

// Search matches the query case-insensitively against kind and title. An
// empty query matches everything.
func (c *StaticCatalog) Search(ctx context.Context, query string) ([]models.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	out := []models.Listing{}
	for _, l := range c.listings {
		if q == "" || strings.Contains(strings.ToLower(l.Kind), q) || strings.Contains(strings.ToLower(l.Title), q) {
			out = append(out, l)
		}
	}
	return out, nil
}

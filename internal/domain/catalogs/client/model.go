// Package client provides the Client catalog: the customers whose jobs
// consume powder via usage records.
package client

import (
	"context"

	"powderbook/internal/core/entity"
	"powderbook/internal/core/id"
)

// Client represents a customer of the coating shop.
type Client struct {
	entity.Catalog

	ContactName *string `json:"contactName,omitempty" db:"contact_name"`
	Phone       *string `json:"phone,omitempty" db:"phone"`
	Email       *string `json:"email,omitempty" db:"email"`
	Note        *string `json:"note,omitempty" db:"note"`
}

// NewClient creates a client with generated ID.
func NewClient(companyID id.ID, code, name string) *Client {
	return &Client{
		Catalog: entity.NewCatalog(companyID, code, name),
	}
}

func (c *Client) Validate(ctx context.Context) error {
	return c.Catalog.Validate(ctx)
}

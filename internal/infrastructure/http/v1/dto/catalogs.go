package dto

import (
	"powderbook/internal/core/id"
	"powderbook/internal/domain/catalogs/client"
	"powderbook/internal/domain/catalogs/powder"
	"powderbook/internal/domain/catalogs/supplier"
)

// --- Powder ---

// CreatePowderRequest creates a powder catalog item.
type CreatePowderRequest struct {
	Code         string  `json:"code"`
	Name         string  `json:"name" binding:"required"`
	Manufacturer *string `json:"manufacturer"`
	Color        *string `json:"color"`
	Finish       *string `json:"finish"`
	Description  *string `json:"description"`
}

// ToEntity converts the request to a domain entity.
func (r *CreatePowderRequest) ToEntity(companyID id.ID) *powder.Powder {
	p := powder.NewPowder(companyID, r.Code, r.Name)
	p.Manufacturer = r.Manufacturer
	p.Color = r.Color
	p.Finish = r.Finish
	p.Description = r.Description
	return p
}

// UpdatePowderRequest updates a powder catalog item.
type UpdatePowderRequest struct {
	Code         *string `json:"code"`
	Name         *string `json:"name"`
	Manufacturer *string `json:"manufacturer"`
	Color        *string `json:"color"`
	Finish       *string `json:"finish"`
	Description  *string `json:"description"`
	Version      int     `json:"version" binding:"required,min=1"`
}

// ApplyTo applies non-nil fields to the existing entity.
func (r *UpdatePowderRequest) ApplyTo(p *powder.Powder) {
	if r.Code != nil {
		p.Code = *r.Code
	}
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Manufacturer != nil {
		p.Manufacturer = r.Manufacturer
	}
	if r.Color != nil {
		p.Color = r.Color
	}
	if r.Finish != nil {
		p.Finish = r.Finish
	}
	if r.Description != nil {
		p.Description = r.Description
	}
	p.Version = r.Version
}

// PowderResponse represents a powder in API responses.
type PowderResponse struct {
	CatalogResponse
	Manufacturer *string `json:"manufacturer,omitempty"`
	Color        *string `json:"color,omitempty"`
	Finish       *string `json:"finish,omitempty"`
	Description  *string `json:"description,omitempty"`
}

// FromPowder creates response from a domain powder.
func FromPowder(p *powder.Powder) *PowderResponse {
	return &PowderResponse{
		CatalogResponse: FromCatalog(p.Catalog),
		Manufacturer:    p.Manufacturer,
		Color:           p.Color,
		Finish:          p.Finish,
		Description:     p.Description,
	}
}

// --- Supplier ---

// CreateSupplierRequest creates a supplier catalog item.
type CreateSupplierRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name" binding:"required"`
	ContactName *string `json:"contactName"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Note        *string `json:"note"`
}

// ToEntity converts the request to a domain entity.
func (r *CreateSupplierRequest) ToEntity(companyID id.ID) *supplier.Supplier {
	s := supplier.NewSupplier(companyID, r.Code, r.Name)
	s.ContactName = r.ContactName
	s.Phone = r.Phone
	s.Email = r.Email
	s.Note = r.Note
	return s
}

// UpdateSupplierRequest updates a supplier catalog item.
type UpdateSupplierRequest struct {
	Code        *string `json:"code"`
	Name        *string `json:"name"`
	ContactName *string `json:"contactName"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Note        *string `json:"note"`
	Version     int     `json:"version" binding:"required,min=1"`
}

// ApplyTo applies non-nil fields to the existing entity.
func (r *UpdateSupplierRequest) ApplyTo(s *supplier.Supplier) {
	if r.Code != nil {
		s.Code = *r.Code
	}
	if r.Name != nil {
		s.Name = *r.Name
	}
	if r.ContactName != nil {
		s.ContactName = r.ContactName
	}
	if r.Phone != nil {
		s.Phone = r.Phone
	}
	if r.Email != nil {
		s.Email = r.Email
	}
	if r.Note != nil {
		s.Note = r.Note
	}
	s.Version = r.Version
}

// SupplierResponse represents a supplier in API responses.
type SupplierResponse struct {
	CatalogResponse
	ContactName *string `json:"contactName,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Email       *string `json:"email,omitempty"`
	Note        *string `json:"note,omitempty"`
}

// FromSupplier creates response from a domain supplier.
func FromSupplier(s *supplier.Supplier) *SupplierResponse {
	return &SupplierResponse{
		CatalogResponse: FromCatalog(s.Catalog),
		ContactName:     s.ContactName,
		Phone:           s.Phone,
		Email:           s.Email,
		Note:            s.Note,
	}
}

// --- Client ---

// CreateClientRequest creates a client catalog item.
type CreateClientRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name" binding:"required"`
	ContactName *string `json:"contactName"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Note        *string `json:"note"`
}

// ToEntity converts the request to a domain entity.
func (r *CreateClientRequest) ToEntity(companyID id.ID) *client.Client {
	cl := client.NewClient(companyID, r.Code, r.Name)
	cl.ContactName = r.ContactName
	cl.Phone = r.Phone
	cl.Email = r.Email
	cl.Note = r.Note
	return cl
}

// UpdateClientRequest updates a client catalog item.
type UpdateClientRequest struct {
	Code        *string `json:"code"`
	Name        *string `json:"name"`
	ContactName *string `json:"contactName"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Note        *string `json:"note"`
	Version     int     `json:"version" binding:"required,min=1"`
}

// ApplyTo applies non-nil fields to the existing entity.
func (r *UpdateClientRequest) ApplyTo(cl *client.Client) {
	if r.Code != nil {
		cl.Code = *r.Code
	}
	if r.Name != nil {
		cl.Name = *r.Name
	}
	if r.ContactName != nil {
		cl.ContactName = r.ContactName
	}
	if r.Phone != nil {
		cl.Phone = r.Phone
	}
	if r.Email != nil {
		cl.Email = r.Email
	}
	if r.Note != nil {
		cl.Note = r.Note
	}
	cl.Version = r.Version
}

// ClientResponse represents a client in API responses.
type ClientResponse struct {
	CatalogResponse
	ContactName *string `json:"contactName,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Email       *string `json:"email,omitempty"`
	Note        *string `json:"note,omitempty"`
}

// FromClient creates response from a domain client.
func FromClient(cl *client.Client) *ClientResponse {
	return &ClientResponse{
		CatalogResponse: FromCatalog(cl.Catalog),
		ContactName:     cl.ContactName,
		Phone:           cl.Phone,
		Email:           cl.Email,
		Note:            cl.Note,
	}
}

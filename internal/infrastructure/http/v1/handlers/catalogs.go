package handlers

import (
	"powderbook/internal/core/id"
	"powderbook/internal/domain/catalogs/client"
	"powderbook/internal/domain/catalogs/powder"
	"powderbook/internal/domain/catalogs/supplier"
	"powderbook/internal/infrastructure/http/v1/dto"
)

// PowderHTTPHandler is a type alias shortening the generic signature.
type PowderHTTPHandler = CatalogHandler[
	*powder.Powder,
	dto.CreatePowderRequest,
	dto.UpdatePowderRequest,
]

// NewPowderHandler creates a configured generic handler for powders.
func NewPowderHandler(base *BaseHandler, service *powder.Service) *PowderHTTPHandler {
	config := CatalogHandlerConfig[
		*powder.Powder,
		dto.CreatePowderRequest,
		dto.UpdatePowderRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "powder",
		MapCreateDTO: func(companyID id.ID, req dto.CreatePowderRequest) *powder.Powder {
			return req.ToEntity(companyID)
		},
		MapUpdateDTO: func(req dto.UpdatePowderRequest, existing *powder.Powder) *powder.Powder {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(entity *powder.Powder) any {
			return dto.FromPowder(entity)
		},
	}

	return NewCatalogHandler(base, config)
}

// SupplierHTTPHandler is a type alias shortening the generic signature.
type SupplierHTTPHandler = CatalogHandler[
	*supplier.Supplier,
	dto.CreateSupplierRequest,
	dto.UpdateSupplierRequest,
]

// NewSupplierHandler creates a configured generic handler for suppliers.
func NewSupplierHandler(base *BaseHandler, service *supplier.Service) *SupplierHTTPHandler {
	config := CatalogHandlerConfig[
		*supplier.Supplier,
		dto.CreateSupplierRequest,
		dto.UpdateSupplierRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "supplier",
		MapCreateDTO: func(companyID id.ID, req dto.CreateSupplierRequest) *supplier.Supplier {
			return req.ToEntity(companyID)
		},
		MapUpdateDTO: func(req dto.UpdateSupplierRequest, existing *supplier.Supplier) *supplier.Supplier {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(entity *supplier.Supplier) any {
			return dto.FromSupplier(entity)
		},
	}

	return NewCatalogHandler(base, config)
}

// ClientHTTPHandler is a type alias shortening the generic signature.
type ClientHTTPHandler = CatalogHandler[
	*client.Client,
	dto.CreateClientRequest,
	dto.UpdateClientRequest,
]

// NewClientHandler creates a configured generic handler for clients.
func NewClientHandler(base *BaseHandler, service *client.Service) *ClientHTTPHandler {
	config := CatalogHandlerConfig[
		*client.Client,
		dto.CreateClientRequest,
		dto.UpdateClientRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "client",
		MapCreateDTO: func(companyID id.ID, req dto.CreateClientRequest) *client.Client {
			return req.ToEntity(companyID)
		},
		MapUpdateDTO: func(req dto.UpdateClientRequest, existing *client.Client) *client.Client {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(entity *client.Client) any {
			return dto.FromClient(entity)
		},
	}

	return NewCatalogHandler(base, config)
}

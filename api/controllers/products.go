package controllers

import (
	"net/http"

	"github.com/brianmwirigi/sokofresh-backend/api/responses"
	"github.com/brianmwirigi/sokofresh-backend/api/validators"
	"github.com/brianmwirigi/sokofresh-backend/internal/catalog"
	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
	pkgerrors "github.com/brianmwirigi/sokofresh-backend/pkg/errors"
	"github.com/brianmwirigi/sokofresh-backend/pkg/logger"
	"github.com/brianmwirigi/sokofresh-backend/pkg/money"
)

type createProductRequest struct {
	Name            string  `json:"name" validate:"required,min=2,max=120"`
	Description     *string `json:"description,omitempty"`
	Unit            string  `json:"unit" validate:"required"`
	Price           string  `json:"price" validate:"required"`
	CostPrice       string  `json:"cost_price,omitempty"`
	MinimumStock    string  `json:"minimum_stock,omitempty"`
	InitialQuantity int     `json:"initial_quantity,omitempty" validate:"omitempty,min=0"`
	InitialWeight   string  `json:"initial_weight,omitempty"`
}

type updateProductRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Description  *string `json:"description,omitempty"`
	Price        *string `json:"price,omitempty"`
	CostPrice    *string `json:"cost_price,omitempty"`
	MinimumStock *string `json:"minimum_stock,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

// ListProducts returns the live catalog.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := svc.ListProducts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

func GetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.UUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func CreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unit, err := enums.ParseProductUnit(req.Unit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit"))
			return
		}

		input := catalog.CreateProductInput{
			Name:        req.Name,
			Description: req.Description,
			Unit:        unit,
			InitialQty:  req.InitialQuantity,
		}
		if input.Price, err = money.FromString(req.Price); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
			return
		}
		if req.CostPrice != "" {
			if input.CostPrice, err = money.FromString(req.CostPrice); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cost price"))
				return
			}
		}
		if req.MinimumStock != "" {
			if input.MinimumStock, err = money.FromString(req.MinimumStock); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid minimum stock"))
				return
			}
		}
		if req.InitialWeight != "" {
			if input.InitialWt, err = money.FromString(req.InitialWeight); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid initial weight"))
				return
			}
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func UpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.UUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.UpdateProductInput{
			Name:        req.Name,
			Description: req.Description,
			IsActive:    req.IsActive,
		}
		if input.Price, err = optionalMoney(req.Price, "price"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.CostPrice, err = optionalMoney(req.CostPrice, "cost price"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.MinimumStock, err = optionalMoney(req.MinimumStock, "minimum stock"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

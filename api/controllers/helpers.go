package controllers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brianmwirigi/sokofresh-backend/api/middleware"
	pkgerrors "github.com/brianmwirigi/sokofresh-backend/pkg/errors"
	"github.com/brianmwirigi/sokofresh-backend/pkg/money"
)

// currentUserID resolves the authenticated account, nil for guests.
func currentUserID(r *http.Request) (*uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return &id, nil
}

// requireUserID resolves the authenticated account or fails.
func requireUserID(r *http.Request) (uuid.UUID, error) {
	id, err := currentUserID(r)
	if err != nil {
		return uuid.Nil, err
	}
	if id == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return *id, nil
}

func parseMoney(raw, label string) (decimal.Decimal, error) {
	value, err := money.FromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid %s", label))
	}
	return value, nil
}

func optionalMoney(raw *string, label string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	value, err := parseMoney(*raw, label)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

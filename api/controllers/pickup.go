package controllers

import (
	"net/http"
	"time"

	"github.com/brianmwirigi/sokofresh-backend/api/responses"
	"github.com/brianmwirigi/sokofresh-backend/api/validators"
	"github.com/brianmwirigi/sokofresh-backend/internal/pickup"
	pkgerrors "github.com/brianmwirigi/sokofresh-backend/pkg/errors"
	"github.com/brianmwirigi/sokofresh-backend/pkg/logger"
)

type createSlotRequest struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	MaxOrders int    `json:"max_orders" validate:"required,gt=0"`
}

// ListPickupSlots returns the slots still taking orders for a day. Defaults
// to today when no date is given.
func ListPickupSlots(svc pickup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := validators.DateQuery(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		slots, err := svc.ListAvailable(r.Context(), date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, slots)
	}
}

func CreatePickupSlot(svc pickup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSlotRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date, expected YYYY-MM-DD"))
			return
		}

		slot, err := svc.CreateSlot(r.Context(), pickup.CreateSlotInput{
			Date:      date,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			MaxOrders: req.MaxOrders,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, slot)
	}
}

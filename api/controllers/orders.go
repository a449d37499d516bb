package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brianmwirigi/sokofresh-backend/api/middleware"
	"github.com/brianmwirigi/sokofresh-backend/api/responses"
	"github.com/brianmwirigi/sokofresh-backend/api/validators"
	"github.com/brianmwirigi/sokofresh-backend/internal/orders"
	"github.com/brianmwirigi/sokofresh-backend/pkg/enums"
	pkgerrors "github.com/brianmwirigi/sokofresh-backend/pkg/errors"
	"github.com/brianmwirigi/sokofresh-backend/pkg/logger"
)

type orderItemRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid4"`
	Quantity  *int    `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Weight    *string `json:"weight,omitempty"`
}

type createOrderRequest struct {
	CustomerName  string             `json:"customer_name" validate:"required,min=2,max=120"`
	CustomerPhone string             `json:"customer_phone" validate:"required,min=9,max=15"`
	PaymentMethod string             `json:"payment_method" validate:"required"`
	PickupSlotID  *string            `json:"pickup_slot_id,omitempty" validate:"omitempty,uuid4"`
	PickupTime    *time.Time         `json:"pickup_time,omitempty"`
	Notes         *string            `json:"notes,omitempty" validate:"omitempty,max=500"`
	Items         []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=250"`
}

type verifyPickupRequest struct {
	Token string `json:"token" validate:"required"`
}

// CreateOrder places a pending order. Guests check out with just a name and
// phone; authenticated customers can also choose pay-later.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := enums.ParsePaymentIntent(req.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.CreateOrderInput{
			UserID:        userID,
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			PaymentMethod: intent,
			PickupTime:    req.PickupTime,
			Notes:         req.Notes,
		}
		if req.PickupSlotID != nil {
			slotID, err := uuid.Parse(*req.PickupSlotID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pickup slot id"))
				return
			}
			input.PickupSlotID = &slotID
		}
		for _, item := range req.Items {
			line, err := buildOrderItem(item)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Items = append(input.Items, *line)
		}

		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func buildOrderItem(req orderItemRequest) (*orders.OrderItemInput, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
	}
	line := &orders.OrderItemInput{
		ProductID: productID,
		Quantity:  req.Quantity,
	}
	if req.Weight != nil {
		weight, err := parseMoney(*req.Weight, "weight")
		if err != nil {
			return nil, err
		}
		if !weight.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must be positive")
		}
		line.Weight = &weight
	}
	return line, nil
}

// GetOrder returns one order. Customers only see their own orders; staff see
// everything.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !isStaff(r) {
			userID, err := requireUserID(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if order.UserID == nil || *order.UserID != userID {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
				return
			}
		}
		responses.WriteSuccess(w, order)
	}
}

// ListMyOrders returns the authenticated customer's orders.
func ListMyOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListOrders returns all orders, optionally filtered by status.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var status *enums.OrderStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			status = &parsed
		}
		list, err := svc.List(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ConfirmOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Confirm(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Cancel(r.Context(), id, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// MarkOrderReady flags a confirmed order as packed and returns the pickup
// token alongside the order.
func MarkOrderReady(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, token, err := svc.MarkReady(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"order":        order,
			"pickup_token": token,
		})
	}
}

// VerifyPickup resolves a presented pickup token to its order.
func VerifyPickup(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyPickupRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.VerifyPickupCode(r.Context(), req.Token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ConfirmPickup hands the order over and settles the wallet.
func ConfirmPickup(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.ConfirmPickup(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func isStaff(r *http.Request) bool {
	role := middleware.RoleFromContext(r.Context())
	return role == string(enums.UserRoleAdmin) || role == string(enums.UserRoleStaff)
}

// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/pkg/lock"
	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/cart"
	"ecommerce/internal/service/catalog"
	orderapp "ecommerce/internal/service/order/application"
	orderdomain "ecommerce/internal/service/order/domain"
	pointapp "ecommerce/internal/service/point/application"
	pointdomain "ecommerce/internal/service/point/domain"
	promotionapp "ecommerce/internal/service/promotion/application"
	promotiondomain "ecommerce/internal/service/promotion/domain"
	"ecommerce/internal/service/stock"
	"ecommerce/internal/service/user"
)

const serviceName = "order-service"

// OrderHandler 封装对外的 HTTP 处理器。
type OrderHandler struct {
	orders  *orderapp.OrderApplicationService
	coupons *promotionapp.CouponService
	points  *pointapp.PointService
	tracer  trace.Tracer
}

func NewOrderHandler(orders *orderapp.OrderApplicationService, coupons *promotionapp.CouponService, points *pointapp.PointService) *OrderHandler {
	return &OrderHandler{
		orders:  orders,
		coupons: coupons,
		points:  points,
		tracer:  otel.Tracer(serviceName),
	}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("POST /orders", h.createOrderFromProduct)
	mux.HandleFunc("POST /orders/cart", h.createOrderFromCart)
	mux.HandleFunc("POST /orders/cancel", h.cancelOrder)
	mux.HandleFunc("POST /orders/pay", h.payOrder)
	mux.HandleFunc("POST /orders/payment-failure", h.paymentFailure)
	mux.HandleFunc("POST /coupons/issue", h.issueCoupon)
	mux.HandleFunc("POST /points/charge", h.chargePoints)
}

type createOrderFromProductRequest struct {
	UserID      uint64  `json:"userId"`
	ProductID   uint64  `json:"productId"`
	Quantity    int64   `json:"quantity"`
	PointAmount int64   `json:"pointAmount"`
	CouponID    *uint64 `json:"couponId"`
}

func (h *OrderHandler) createOrderFromProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "api.CreateOrderFromProduct")
	defer span.End()

	var req createOrderFromProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	order, err := h.orders.CreateOrderFromProduct(ctx, orderapp.CreateOrderFromProductCommand{
		UserID:      req.UserID,
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		PointAmount: req.PointAmount,
		CouponID:    req.CouponID,
	})
	if err != nil {
		writeBusinessError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse(order))
}

type createOrderFromCartRequest struct {
	UserID      uint64   `json:"userId"`
	CartItemIDs []uint64 `json:"cartItemIds"`
	PointAmount int64    `json:"pointAmount"`
	CouponID    *uint64  `json:"couponId"`
}

func (h *OrderHandler) createOrderFromCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "api.CreateOrderFromCart")
	defer span.End()

	var req createOrderFromCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	order, err := h.orders.CreateOrderFromCart(ctx, orderapp.CreateOrderFromCartCommand{
		UserID:      req.UserID,
		CartItemIDs: req.CartItemIDs,
		PointAmount: req.PointAmount,
		CouponID:    req.CouponID,
	})
	if err != nil {
		writeBusinessError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse(order))
}

type orderActionRequest struct {
	OrderID string `json:"orderId"`
	UserID  uint64 `json:"userId"`
}

func (h *OrderHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "api.CancelOrder")
	defer span.End()

	var req orderActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if err := h.orders.CancelOrder(ctx, req.OrderID, req.UserID); err != nil {
		writeBusinessError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) payOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "api.PayOrder")
	defer span.End()

	var req orderActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if err := h.orders.MarkPaid(ctx, req.OrderID, req.UserID); err != nil {
		writeBusinessError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) paymentFailure(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "api.PaymentFailure")
	defer span.End()

	var req orderActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if err := h.orders.HandlePaymentFailure(ctx, req.OrderID); err != nil {
		writeBusinessError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type issueCouponRequest struct {
	UserID   uint64 `json:"userId"`
	CouponID uint64 `json:"couponId"`
}

func (h *OrderHandler) issueCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "api.IssueCoupon")
	defer span.End()

	var req issueCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	uc, err := h.coupons.IssueCoupon(ctx, req.UserID, req.CouponID)
	if err != nil {
		writeBusinessError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"userCouponId": uc.ID,
		"couponId":     uc.CouponID,
		"status":       uc.Status,
	})
}

type chargePointsRequest struct {
	UserID    uint64 `json:"userId"`
	Amount    int64  `json:"amount"`
	ValidDays int    `json:"validDays"`
}

func (h *OrderHandler) chargePoints(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.startSpan(r, "api.ChargePoints")
	defer span.End()

	var req chargePointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.ValidDays <= 0 {
		req.ValidDays = 365
	}
	point, err := h.points.Charge(ctx, req.UserID, req.Amount, pointdomain.PointTypeCharge,
		time.Duration(req.ValidDays)*24*time.Hour)
	if err != nil {
		writeBusinessError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"pointId":   point.ID,
		"amount":    point.Amount,
		"expiresAt": point.ExpiresAt,
	})
}

func (h *OrderHandler) startSpan(r *http.Request, name string) (context.Context, trace.Span) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	return h.tracer.Start(ctx, name)
}

func orderResponse(order *orderdomain.Order) map[string]interface{} {
	return map[string]interface{}{
		"orderId":        order.ID,
		"status":         order.Status,
		"totalAmount":    order.TotalAmount,
		"shippingFee":    order.ShippingFee,
		"discountAmount": order.DiscountAmount,
		"pointAmount":    order.PointAmount,
		"finalAmount":    order.FinalAmount,
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// writeBusinessError 把领域错误映射成带稳定错误码的业务响应。
// 未识别的错误一律按内部错误返回，不泄漏细节。
func writeBusinessError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stock.ErrOutOfStock):
		writeError(w, http.StatusConflict, "OUT_OF_STOCK", "insufficient stock")
	case errors.Is(err, promotiondomain.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, "CAPACITY_EXCEEDED", "coupon capacity exceeded")
	case errors.Is(err, promotiondomain.ErrAlreadyIssued):
		writeError(w, http.StatusConflict, "ALREADY_ISSUED", "coupon already issued")
	case errors.Is(err, promotiondomain.ErrCouponNotFound):
		writeError(w, http.StatusNotFound, "COUPON_NOT_FOUND", "coupon not found")
	case errors.Is(err, promotiondomain.ErrCouponNotOwned),
		errors.Is(err, promotiondomain.ErrInvalidCouponState):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_COUPON_STATE", "coupon is not usable")
	case errors.Is(err, pointdomain.ErrInsufficientPoints):
		writeError(w, http.StatusUnprocessableEntity, "INSUFFICIENT_POINTS", "insufficient point balance")
	case errors.Is(err, lock.ErrLockAcquisitionFailed):
		writeError(w, http.StatusServiceUnavailable, "LOCK_ACQUISITION_FAILED", "resource busy, try again")
	case errors.Is(err, orderdomain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
	case errors.Is(err, orderdomain.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "ACCESS_DENIED", "order does not belong to this user")
	case errors.Is(err, orderdomain.ErrInvalidState):
		writeError(w, http.StatusConflict, "INVALID_STATE", "order state does not allow this operation")
	case errors.Is(err, orderdomain.ErrInvalidOrderAmount):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_AMOUNT", "computed final amount is negative")
	case errors.Is(err, catalog.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found")
	case errors.Is(err, user.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
	case errors.Is(err, cart.ErrCartItemNotFound):
		writeError(w, http.StatusNotFound, "CART_ITEM_NOT_FOUND", "cart item not found")
	case errors.Is(err, orderdomain.ErrCompensationFailed):
		logger.Ctx(ctx).Error().Err(err).Msg("compensation failure surfaced to API")
		writeError(w, http.StatusInternalServerError, "COMPENSATION_FAILED", "order rollback incomplete")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

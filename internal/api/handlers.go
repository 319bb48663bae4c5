package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/marketplace/internal/api/middleware"
	"github.com/example/marketplace/internal/auth"
	"github.com/example/marketplace/internal/checkout"
	"github.com/example/marketplace/internal/domain/order"
	"github.com/example/marketplace/internal/lifecycle"
	"github.com/example/marketplace/internal/media"
	"github.com/example/marketplace/internal/query"
	"github.com/example/marketplace/internal/storage"
)

type Handlers struct {
	checkout  *checkout.Orchestrator
	lifecycle *lifecycle.Controller
	query     *query.Handler
	media     media.Pipeline
	log       *zap.Logger
}

func NewHandlers(co *checkout.Orchestrator, lc *lifecycle.Controller, qh *query.Handler, mp media.Pipeline, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{checkout: co, lifecycle: lc, query: qh, media: mp, log: log}
}

// Checkout handles POST /checkout.

type checkoutRequest struct {
	Email   string              `json:"email"`
	Phone   string              `json:"phone"`
	Address string              `json:"address"`
	Notes   string              `json:"notes"`
	Items   []checkout.CartItem `json:"items"`
}

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Detail: "malformed request body", Code: "validation_error"})
		return
	}

	buyer := checkout.BuyerInfo{
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Notes:   req.Notes,
	}
	orders, err := h.checkout.Checkout(r.Context(), buyer, req.Items)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, publicOrderView(o))
	}
	respondJSON(w, http.StatusCreated, views)
}

// GetOrder handles GET /orders/{id}. Public lookup by numeric or zero-padded
// id.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.query.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, publicOrderView(o))
}

// ListStoreOrders handles GET /stores/{storeSlug}/orders. Store owner or
// admin only; supports payment_status, shipping_status and buyer_email
// filters.
func (h *Handlers) ListStoreOrders(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "storeSlug")

	claims, _ := middleware.ClaimsFromContext(r.Context())
	if claims == nil || !claims.OwnsStore(slug) {
		respondJSON(w, http.StatusForbidden, errorBody{Detail: "not your store", Code: "forbidden"})
		return
	}

	filter := storage.OrderFilter{
		PaymentStatus:  r.URL.Query().Get("payment_status"),
		ShippingStatus: r.URL.Query().Get("shipping_status"),
		BuyerEmail:     r.URL.Query().Get("buyer_email"),
	}
	orders, err := h.query.ListStoreOrders(r.Context(), slug, filter)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	views := make([]storeOrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, newStoreOrderView(o))
	}
	respondJSON(w, http.StatusOK, views)
}

// AttachInvoice handles PATCH /orders/{id}/invoice. The invoice reference is
// either an opaque ref already produced by the media pipeline, or a raw
// base64 image which is run through the pipeline here.

type attachInvoiceRequest struct {
	TrackingNumber string `json:"tracking_number"`
	InvoiceRef     string `json:"invoice_ref"`
	InvoiceImage   string `json:"invoice_image,omitempty"` // base64
}

func (h *Handlers) AttachInvoice(w http.ResponseWriter, r *http.Request) {
	o, claims, ok := h.authorizeStoreOrder(w, r)
	if !ok {
		return
	}

	var req attachInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Detail: "malformed request body", Code: "validation_error"})
		return
	}
	if req.TrackingNumber == "" {
		respondJSON(w, http.StatusBadRequest, errorBody{Detail: "tracking_number is required", Code: "validation_error"})
		return
	}

	invoiceRef := req.InvoiceRef
	if req.InvoiceImage != "" {
		raw, err := base64.StdEncoding.DecodeString(req.InvoiceImage)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorBody{Detail: "invoice_image is not valid base64", Code: "validation_error"})
			return
		}
		invoiceRef, err = h.media.Process(r.Context(), bytes.NewReader(raw), "shipping-invoice")
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorBody{Detail: "invoice image rejected", Code: "validation_error"})
			return
		}
	}
	if invoiceRef == "" {
		respondJSON(w, http.StatusBadRequest, errorBody{Detail: "invoice_ref or invoice_image is required", Code: "validation_error"})
		return
	}

	updated, err := h.lifecycle.AttachInvoice(r.Context(), o.ID, claims.Email, invoiceRef, req.TrackingNumber)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newStoreOrderView(updated))
}

// CancelOrder handles PATCH /orders/{id}/cancel. Store owner only; a repeat
// cancel is rejected, not absorbed.
func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	o, claims, ok := h.authorizeStoreOrder(w, r)
	if !ok {
		return
	}

	updated, err := h.lifecycle.Cancel(r.Context(), o.ID, claims.Email)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newStoreOrderView(updated))
}

// ResolveOrder handles PATCH /orders/{id}/resolve. Admin only (enforced by
// router middleware); body selects deliver or refund.

type resolveRequest struct {
	Option string `json:"option"`
}

func (h *Handlers) ResolveOrder(w http.ResponseWriter, r *http.Request) {
	id, err := order.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Detail: "malformed request body", Code: "validation_error"})
		return
	}

	claims, _ := middleware.ClaimsFromContext(r.Context())
	actor := ""
	if claims != nil {
		actor = claims.Email
	}

	updated, err := h.lifecycle.Resolve(r.Context(), id, actor, req.Option)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newStoreOrderView(updated))
}

// authorizeStoreOrder loads the target order and checks the caller owns its
// store. The lifecycle transaction re-reads the order under lock afterwards.
func (h *Handlers) authorizeStoreOrder(w http.ResponseWriter, r *http.Request) (*order.Order, *auth.Claims, bool) {
	o, err := h.query.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return nil, nil, false
	}

	claims, _ := middleware.ClaimsFromContext(r.Context())
	if claims == nil || !claims.OwnsStore(o.StoreSlug) {
		respondJSON(w, http.StatusForbidden, errorBody{Detail: "not your order", Code: "forbidden"})
		return nil, nil, false
	}
	return o, claims, true
}

// Response views. The public view is the buyer-facing invoice payload; the
// store view adds sku snapshots, subtotals and buyer notes.

type publicLineView struct {
	ProductName  string `json:"product_name"`
	Quantity     int    `json:"quantity"`
	PricePerUnit string `json:"price_per_unit"`
}

type orderView struct {
	ID             int64            `json:"id"`
	FormattedID    string           `json:"formatted_id"`
	Store          string           `json:"store"`
	BuyerEmail     string           `json:"buyer_email"`
	BuyerPhone     string           `json:"buyer_phone"`
	Address        string           `json:"shipping_address"`
	TotalAmount    string           `json:"total_amount"`
	PaymentStatus  string           `json:"payment_status"`
	ShippingStatus string           `json:"shipping_status"`
	TrackingNumber string           `json:"tracking_number,omitempty"`
	IssuedAt       time.Time        `json:"issued_at"`
	Items          []publicLineView `json:"items"`
}

func publicOrderView(o *order.Order) orderView {
	items := make([]publicLineView, 0, len(o.Lines))
	for _, line := range o.Lines {
		items = append(items, publicLineView{
			ProductName:  line.ProductName,
			Quantity:     line.Quantity,
			PricePerUnit: line.PricePerUnit.StringFixed(2),
		})
	}
	return orderView{
		ID:             o.ID,
		FormattedID:    o.FormattedID(),
		Store:          o.StoreSlug,
		BuyerEmail:     o.BuyerEmail,
		BuyerPhone:     o.BuyerPhone,
		Address:        o.ShippingAddress,
		TotalAmount:    o.TotalAmount.StringFixed(2),
		PaymentStatus:  string(o.PaymentStatus),
		ShippingStatus: string(o.ShippingStatus),
		TrackingNumber: o.TrackingNumber,
		IssuedAt:       o.IssuedAt,
		Items:          items,
	}
}

type storeLineView struct {
	Seq          int    `json:"seq"`
	ProductName  string `json:"product_name"`
	ProductSKU   string `json:"product_sku,omitempty"`
	Quantity     int    `json:"quantity"`
	PricePerUnit string `json:"price_per_unit"`
	Subtotal     string `json:"subtotal"`
}

type storeOrderView struct {
	orderView
	Notes      string          `json:"notes,omitempty"`
	InvoiceRef string          `json:"shipping_invoice_ref,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Lines      []storeLineView `json:"lines"`
}

func newStoreOrderView(o *order.Order) storeOrderView {
	lines := make([]storeLineView, 0, len(o.Lines))
	for _, line := range o.Lines {
		lines = append(lines, storeLineView{
			Seq:          line.Seq,
			ProductName:  line.ProductName,
			ProductSKU:   line.ProductSKU,
			Quantity:     line.Quantity,
			PricePerUnit: line.PricePerUnit.StringFixed(2),
			Subtotal:     line.Subtotal.StringFixed(2),
		})
	}
	return storeOrderView{
		orderView:  publicOrderView(o),
		Notes:      o.Notes,
		InvoiceRef: o.ShippingInvoiceRef,
		UpdatedAt:  o.UpdatedAt,
		Lines:      lines,
	}
}

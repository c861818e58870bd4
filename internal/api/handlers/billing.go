// Package handlers contains the HTTP handlers of the space purchase API.
//
// billing.go covers the organization-scoped billing endpoints: billing
// details, invoices, hosted payment parameters and the default payment
// method. purchase.go covers the purchase wizard sessions.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"spacepurchase/internal/billing"
	"spacepurchase/internal/core"
	"spacepurchase/internal/types"
)

// BillingService is the billing API wrapper the handler needs.
type BillingService interface {
	GetBillingDetails(ctx context.Context, orgID string) (types.BillingDetails, error)
	CreateBillingDetails(ctx context.Context, orgID string, payload types.BillingDetailsPayload) error
	UpdateBillingDetails(ctx context.Context, orgID string, payload types.BillingDetailsPayload) error
	GetInvoices(ctx context.Context, orgID string) ([]types.Invoice, error)
	GetInvoiceDocument(ctx context.Context, orgID, invoiceID string) (billing.InvoiceDocument, error)
	GetHostedPaymentParams(ctx context.Context, orgID, countryCode string) (types.HostedPaymentParams, error)
	GetDefaultPaymentMethod(ctx context.Context, orgID string) (types.PaymentDetails, error)
	SetDefaultPaymentMethod(ctx context.Context, orgID, paymentMethodRefID string) error
}

// SetDefaultPaymentMethodRequest is the body of PUT default_payment_method.
type SetDefaultPaymentMethodRequest struct {
	PaymentMethodRefID string `json:"paymentMethodRefId" validate:"required,not_blank"`
}

// BillingHandler serves the billing endpoints of an organization.
type BillingHandler struct {
	service   BillingService
	validator *core.Validator
	logger    *slog.Logger
}

// NewBillingHandler creates a BillingHandler.
func NewBillingHandler(svc BillingService, v *core.Validator, l *slog.Logger) *BillingHandler {
	if l == nil {
		l = slog.Default()
	}
	if v == nil {
		v = core.NewValidator(l)
	}
	return &BillingHandler{
		service:   svc,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts the billing endpoints.
func (h *BillingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/organizations/{orgID}", func(r chi.Router) {
		r.Get("/billing_details", h.GetBillingDetails)
		r.Post("/billing_details", h.CreateBillingDetails)
		r.Put("/billing_details", h.UpdateBillingDetails)

		r.Get("/invoices", h.ListInvoices)
		r.Get("/invoices/{invoiceID}", h.DownloadInvoice)

		r.Get("/hosted_payment_params", h.GetHostedPaymentParams)

		r.Get("/default_payment_method", h.GetDefaultPaymentMethod)
		r.Put("/default_payment_method", h.SetDefaultPaymentMethod)
	})
}

// GetBillingDetails handles GET /v1/organizations/{orgID}/billing_details.
func (h *BillingHandler) GetBillingDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.GetBillingDetails(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, details)
}

// CreateBillingDetails handles POST /v1/organizations/{orgID}/billing_details.
func (h *BillingHandler) CreateBillingDetails(w http.ResponseWriter, r *http.Request) {
	h.saveBillingDetails(w, r, http.StatusCreated, h.service.CreateBillingDetails)
}

// UpdateBillingDetails handles PUT /v1/organizations/{orgID}/billing_details.
func (h *BillingHandler) UpdateBillingDetails(w http.ResponseWriter, r *http.Request) {
	h.saveBillingDetails(w, r, http.StatusOK, h.service.UpdateBillingDetails)
}

// saveBillingDetails validates the submitted form the same way the purchase
// wizard does, then writes it with save. The response is the flat shape of
// what was stored.
func (h *BillingHandler) saveBillingDetails(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	save func(ctx context.Context, orgID string, payload types.BillingDetailsPayload) error,
) {
	var form billing.Form
	if err := core.DecodeJSON(w, r, &form); err != nil {
		core.Error(w, r, err)
		return
	}
	if errs := billing.ValidateBillingForm(form); errs != nil {
		core.Error(w, r, errs.AppError())
		return
	}

	payload, err := billing.NewBillingDetailsRequest(form)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	orgID := chi.URLParam(r, "orgID")
	if err := save(r.Context(), orgID, payload); err != nil {
		h.logger.WarnContext(r.Context(), "failed to save billing details",
			"org_id", orgID,
			"error", err,
		)
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "billing details saved", "org_id", orgID, "country", payload.Address.Country)
	core.Data(w, r, status, billing.TransformBillingDetails(payload))
}

// ListInvoices handles GET /v1/organizations/{orgID}/invoices.
func (h *BillingHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.service.GetInvoices(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if invoices == nil {
		invoices = []types.Invoice{}
	}
	core.Data(w, r, http.StatusOK, invoices)
}

// DownloadInvoice handles GET /v1/organizations/{orgID}/invoices/{invoiceID}
// and streams the invoice PDF as an attachment.
func (h *BillingHandler) DownloadInvoice(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.GetInvoiceDocument(r.Context(), chi.URLParam(r, "orgID"), chi.URLParam(r, "invoiceID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Download(w, doc.Filename, doc.ContentType, doc.Data)
}

// GetHostedPaymentParams handles
// GET /v1/organizations/{orgID}/hosted_payment_params?country=Name.
// The country is the display name from the billing form; it is sent upstream
// as its ISO code.
func (h *BillingHandler) GetHostedPaymentParams(w http.ResponseWriter, r *http.Request) {
	var code string
	if name := strings.TrimSpace(r.URL.Query().Get("country")); name != "" {
		var ok bool
		code, ok = billing.GetCountryCodeFromName(name)
		if !ok {
			core.Error(w, r, types.NewAppErrorWithDetails(
				types.ErrCodeValidationInvalidCountry,
				"unknown country",
				nil,
				map[string]any{"country": name},
			))
			return
		}
	}

	params, err := h.service.GetHostedPaymentParams(r.Context(), chi.URLParam(r, "orgID"), code)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, params)
}

// GetDefaultPaymentMethod handles GET /v1/organizations/{orgID}/default_payment_method.
func (h *BillingHandler) GetDefaultPaymentMethod(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.GetDefaultPaymentMethod(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, details)
}

// SetDefaultPaymentMethod handles PUT /v1/organizations/{orgID}/default_payment_method
// and answers with the masked card that is now the default.
func (h *BillingHandler) SetDefaultPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req SetDefaultPaymentMethodRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	orgID := chi.URLParam(r, "orgID")
	if err := h.service.SetDefaultPaymentMethod(r.Context(), orgID, req.PaymentMethodRefID); err != nil {
		core.Error(w, r, err)
		return
	}

	details, err := h.service.GetDefaultPaymentMethod(r.Context(), orgID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "default payment method changed", "org_id", orgID)
	core.Data(w, r, http.StatusOK, details)
}

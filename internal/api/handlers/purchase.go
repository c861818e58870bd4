package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"spacepurchase/internal/billing"
	"spacepurchase/internal/core"
	"spacepurchase/internal/purchase"
	"spacepurchase/internal/types"
)

// SessionLoader builds an initialized purchase session.
type SessionLoader interface {
	Load(ctx context.Context, orgID, spaceID string, wantsApps bool) (*purchase.Session, error)
}

// SessionStore keeps live purchase sessions.
type SessionStore interface {
	Put(s *purchase.Session)
	Get(id string) (*purchase.Session, error)
}

// Action types accepted by POST /purchase_sessions/{sessionID}/actions.
const (
	ActionSelectPlatform = "select_platform"
	ActionSelectPlan     = "select_plan"
	ActionSpaceName      = "space_name"
	ActionTemplate       = "template"
	ActionBillingDetails = "billing_details"
)

// CreateSessionRequest is the body of POST /organizations/{orgID}/purchase_sessions.
// An empty SpaceID starts a new space purchase; otherwise the space is upgraded.
type CreateSessionRequest struct {
	SpaceID        string `json:"spaceId"`
	PurchasingApps bool   `json:"purchasingApps"`
}

// ActionRequest is one user input to a session. Only the field matching Type
// is used.
type ActionRequest struct {
	Type           string         `json:"type" validate:"required,oneof=select_platform select_plan space_name template billing_details"`
	Platform       types.Platform `json:"platform,omitempty" validate:"required_if=Type select_platform,omitempty,platform"`
	PlanID         string         `json:"planId,omitempty" validate:"required_if=Type select_plan"`
	SpaceName      string         `json:"spaceName,omitempty" validate:"required_if=Type space_name"`
	TemplateID     string         `json:"templateId,omitempty"`
	BillingDetails *billing.Form  `json:"billingDetails,omitempty" validate:"-"`
}

// Warnings names the fields that the action type ignores.
func (r ActionRequest) Warnings() []string {
	fields := []struct {
		name   string
		action string
		set    bool
	}{
		{"platform", ActionSelectPlatform, r.Platform != ""},
		{"planId", ActionSelectPlan, r.PlanID != ""},
		{"spaceName", ActionSpaceName, r.SpaceName != ""},
		{"templateId", ActionTemplate, r.TemplateID != ""},
		{"billingDetails", ActionBillingDetails, r.BillingDetails != nil},
	}

	var warnings []string
	for _, f := range fields {
		if f.set && f.action != r.Type {
			warnings = append(warnings, f.name+" is ignored by "+r.Type)
		}
	}
	return warnings
}

// PaymentFieldErrorRequest is a field error reported by the hosted payment
// iframe.
type PaymentFieldErrorRequest struct {
	Key  string `json:"key" validate:"required"`
	Code string `json:"code" validate:"required"`
}

// SessionResponse is a session as returned to the browser.
type SessionResponse struct {
	ID string `json:"id"`
	purchase.View
}

// PurchaseHandler serves the purchase wizard sessions.
type PurchaseHandler struct {
	loader    SessionLoader
	store     SessionStore
	validator *core.Validator
	logger    *slog.Logger
}

// NewPurchaseHandler creates a PurchaseHandler.
func NewPurchaseHandler(loader SessionLoader, store SessionStore, v *core.Validator, l *slog.Logger) *PurchaseHandler {
	if l == nil {
		l = slog.Default()
	}
	if v == nil {
		v = core.NewValidator(l)
	}
	return &PurchaseHandler{
		loader:    loader,
		store:     store,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts the purchase session endpoints.
func (h *PurchaseHandler) RegisterRoutes(r chi.Router) {
	r.Post("/organizations/{orgID}/purchase_sessions", h.CreateSession)

	r.Route("/purchase_sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Post("/actions", h.ApplyAction)
		r.Post("/continue", h.Continue)
		r.Post("/back", h.Back)
		r.Post("/payment", h.CompletePayment)
		r.Post("/payment_field_errors", h.PaymentFieldError)
		r.Post("/receipt", h.StartReceipt)
		r.Get("/receipt", h.GetReceipt)
	})
}

func sessionResponse(s *purchase.Session) SessionResponse {
	return SessionResponse{ID: s.ID(), View: s.View()}
}

// session looks up the path's session and checks it belongs to the caller.
func (h *PurchaseHandler) session(r *http.Request) (*purchase.Session, error) {
	s, err := h.store.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		return nil, err
	}
	if err := s.Authorize(r.Context()); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateSession handles POST /v1/organizations/{orgID}/purchase_sessions.
// It runs the initial fetch and answers with the new session on its first
// step.
func (h *PurchaseHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	s, err := h.loader.Load(r.Context(), chi.URLParam(r, "orgID"), req.SpaceID, req.PurchasingApps)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	h.store.Put(s)

	core.Data(w, r, http.StatusCreated, sessionResponse(s))
}

// GetSession handles GET /v1/purchase_sessions/{sessionID}.
func (h *PurchaseHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, sessionResponse(s))
}

// ApplyAction handles POST /v1/purchase_sessions/{sessionID}/actions.
func (h *PurchaseHandler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	result := h.validator.ValidateStructWithWarnings(req)
	if !result.IsValid() {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrorCode(result.Errors[0].Code),
			result.Errors[0].Message,
			nil,
			map[string]any{"validation_errors": result.Errors},
		))
		return
	}

	s, err := h.session(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if err := applyAction(s, req); err != nil {
		core.Error(w, r, err)
		return
	}
	core.DataWithWarnings(w, r, http.StatusOK, sessionResponse(s), result.Warnings)
}

func applyAction(s *purchase.Session, req ActionRequest) error {
	switch req.Type {
	case ActionSelectPlatform:
		return s.SelectPlatform(req.Platform)
	case ActionSelectPlan:
		return s.SelectPlan(req.PlanID)
	case ActionSpaceName:
		return s.SetSpaceName(req.SpaceName)
	case ActionTemplate:
		return s.SelectTemplate(req.TemplateID)
	case ActionBillingDetails:
		if req.BillingDetails == nil {
			return types.NewAppErrorWithDetails(
				types.ErrCodeValidationMissingField,
				"billingDetails is required for this action",
				nil,
				map[string]any{"field": "billingDetails"},
			)
		}
		return s.SubmitBillingDetails(*req.BillingDetails)
	default:
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidAction, "unknown action", nil, map[string]any{"type": req.Type})
	}
}

// Continue handles POST /v1/purchase_sessions/{sessionID}/continue.
func (h *PurchaseHandler) Continue(w http.ResponseWriter, r *http.Request) {
	h.navigate(w, r, (*purchase.Session).Continue)
}

// Back handles POST /v1/purchase_sessions/{sessionID}/back.
func (h *PurchaseHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.navigate(w, r, (*purchase.Session).Back)
}

func (h *PurchaseHandler) navigate(w http.ResponseWriter, r *http.Request, move func(*purchase.Session, context.Context) (purchase.Step, error)) {
	s, err := h.session(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if _, err := move(s, r.Context()); err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, sessionResponse(s))
}

// CompletePayment handles POST /v1/purchase_sessions/{sessionID}/payment with
// the hosted payment iframe's success callback payload.
func (h *PurchaseHandler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	var cb billing.PaymentCallback
	if err := core.DecodeJSON(w, r, &cb); err != nil {
		core.Error(w, r, err)
		return
	}

	s, err := h.session(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if _, err := s.CompletePayment(r.Context(), cb); err != nil {
		h.logger.WarnContext(r.Context(), "payment capture failed",
			"session_id", s.ID(),
			"error", err,
		)
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, sessionResponse(s))
}

// PaymentFieldError handles POST /v1/purchase_sessions/{sessionID}/payment_field_errors
// and answers with the message to show inside the iframe.
func (h *PurchaseHandler) PaymentFieldError(w http.ResponseWriter, r *http.Request) {
	var req PaymentFieldErrorRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	if _, err := h.session(r); err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, billing.PaymentFieldError(req.Key, req.Code))
}

// StartReceipt handles POST /v1/purchase_sessions/{sessionID}/receipt. It
// runs the receipt pipeline, or retries it from the failed step, and answers
// with its status. Warnings of non-blocking steps are repeated in meta.
func (h *PurchaseHandler) StartReceipt(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	status, err := s.StartReceipt(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.DataWithWarnings(w, r, http.StatusOK, status, statusWarnings(status))
}

// GetReceipt handles GET /v1/purchase_sessions/{sessionID}/receipt.
func (h *PurchaseHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	status, err := s.ReceiptStatus()
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.DataWithWarnings(w, r, http.StatusOK, status, statusWarnings(status))
}

func statusWarnings(st purchase.Status) []string {
	out := make([]string, 0, len(st.Warnings))
	for _, w := range st.Warnings {
		out = append(out, w.Message)
	}
	return out
}

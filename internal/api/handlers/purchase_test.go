package handlers

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacepurchase/internal/billing"
	"spacepurchase/internal/core"
	"spacepurchase/internal/purchase"
	"spacepurchase/internal/spaces"
	"spacepurchase/internal/types"
)

// fakeUpstream serves every read and write a purchase session makes.
type fakeUpstream struct {
	mu       sync.Mutex
	org      types.Organization
	loadErr  error
	createFn func(orgID, name, planID string) (types.Space, error)
	calls    []string
}

func (f *fakeUpstream) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeUpstream) GetOrganization(context.Context, string) (types.Organization, error) {
	return f.org, f.loadErr
}

func (f *fakeUpstream) GetSpace(_ context.Context, spaceID string) (types.Space, error) {
	return types.Space{Sys: types.Sys{ID: spaceID}, Name: "Marketing"}, nil
}

func (f *fakeUpstream) GetSpaceRatePlans(context.Context, string, string) ([]types.ProductRatePlan, error) {
	return []types.ProductRatePlan{
		{Sys: types.Sys{ID: "plan-free"}, Name: "Free", ProductPlanType: types.PlanTypeFreeSpace},
		{Sys: types.Sys{ID: "plan-medium"}, Name: "Medium", Price: 489, ProductPlanType: types.PlanTypeSpace},
	}, nil
}

func (f *fakeUpstream) GetAddOnRatePlans(context.Context, string) ([]types.ProductRatePlan, error) {
	return []types.ProductRatePlan{{Sys: types.Sys{ID: "plan-compose"}, Name: "Compose + Launch", ProductPlanType: types.PlanTypeAddOn}}, nil
}

func (f *fakeUpstream) GetFreeSpaceResource(context.Context, string) (types.FreeSpaceResource, error) {
	return types.FreeSpaceResource{Usage: 0, Limits: types.ResourceLimits{Included: 1, Maximum: 1}}, nil
}

func (f *fakeUpstream) GetAppDefinitions(context.Context, string, []string) ([]types.AppDefinition, error) {
	return nil, nil
}

func (f *fakeUpstream) IsEnabled(context.Context, string, string) (bool, error) {
	return false, nil
}

func (f *fakeUpstream) GetTemplates(context.Context) ([]types.Template, error) {
	return []types.Template{{ID: "tmpl-blog", Name: "Blog"}}, nil
}

func (f *fakeUpstream) GetFAQs(context.Context, string) ([]types.FAQ, error) {
	return []types.FAQ{{Question: "Can I change plans?", Answer: "Yes."}}, nil
}

func (f *fakeUpstream) GetBillingAndPayment(context.Context, string) (types.BillingDetails, types.PaymentDetails, error) {
	return types.BillingDetails{FirstName: "Ada", Country: "DE"}, types.PaymentDetails{Number: "************4242"}, nil
}

func (f *fakeUpstream) CreateBillingDetails(context.Context, string, types.BillingDetailsPayload) error {
	f.record("create_billing_details")
	return nil
}

func (f *fakeUpstream) UpdateBillingDetails(context.Context, string, types.BillingDetailsPayload) error {
	f.record("update_billing_details")
	return nil
}

func (f *fakeUpstream) SetDefaultPaymentMethod(context.Context, string, string) error {
	f.record("set_default_payment_method")
	return nil
}

func (f *fakeUpstream) GetDefaultPaymentMethod(context.Context, string) (types.PaymentDetails, error) {
	f.record("get_default_payment_method")
	return types.PaymentDetails{Number: "************1111"}, nil
}

func (f *fakeUpstream) CreateSpace(_ context.Context, orgID, name, planID string) (types.Space, error) {
	f.record("create_space")
	if f.createFn != nil {
		return f.createFn(orgID, name, planID)
	}
	return types.Space{Sys: types.Sys{ID: "new-space"}, Name: name}, nil
}

func (f *fakeUpstream) ApplyTemplate(context.Context, string, string) error {
	f.record("apply_template")
	return nil
}

func (f *fakeUpstream) RefreshToken(context.Context) (spaces.Token, error) {
	return spaces.Token{}, nil
}

func (f *fakeUpstream) PurchaseAddOn(context.Context, string, string) error {
	f.record("purchase_add_on")
	return nil
}

func (f *fakeUpstream) ChangeSpacePlan(context.Context, string, string) error {
	f.record("change_space_plan")
	return nil
}

func newFakeUpstream(billable bool) *fakeUpstream {
	return &fakeUpstream{org: types.Organization{
		Sys:        types.Sys{ID: "org-1"},
		Name:       "Acme",
		IsBillable: billable,
		Role:       types.RoleOwner,
	}}
}

func newPurchaseRouter(up *fakeUpstream) http.Handler {
	logger := discardLogger()
	loader := purchase.NewLoader(
		purchase.Sources{Orgs: up, Plans: up, Flags: up, Content: up, Billing: up},
		purchase.Deps{
			Payments:   up,
			Spaces:     up,
			Plans:      up,
			AppBaseURL: "https://app.example.com",
			Logger:     logger,
		},
		[]string{"compose", "launch"},
	)

	r := chi.NewRouter()
	NewPurchaseHandler(loader, purchase.NewStore(10, 0), core.NewValidator(logger), logger).RegisterRoutes(r)
	return r
}

// createSession starts a new space purchase and returns its id.
func createSession(t *testing.T, router http.Handler, token string) SessionResponse {
	t.Helper()
	w := doRequest(t, router, http.MethodPost, "/organizations/org-1/purchase_sessions", token, CreateSessionRequest{})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[SessionResponse](t, w).Data
}

func sessionPath(id, suffix string) string {
	return "/purchase_sessions/" + id + suffix
}

func TestPurchase_CreateSession(t *testing.T) {
	router := newPurchaseRouter(newFakeUpstream(false))

	sess := createSession(t, router, "tok")

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, sess.ID, sess.State.SessionID)
	assert.Equal(t, purchase.StepSpacePlanSelection, sess.Step)
	assert.Len(t, sess.State.SpaceRatePlans, 2)
	require.NotNil(t, sess.State.PurchasingApps)
	assert.False(t, *sess.State.PurchasingApps)
}

func TestPurchase_CreateSessionForbiddenRole(t *testing.T) {
	up := newFakeUpstream(false)
	up.org.Role = types.RoleMember

	w := doRequest(t, newPurchaseRouter(up), http.MethodPost, "/organizations/org-1/purchase_sessions", "tok", CreateSessionRequest{})

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, string(types.ErrCodePermissionRole), decodeError(t, w).Code)
}

func TestPurchase_CreateSessionUpstreamFailure(t *testing.T) {
	up := newFakeUpstream(false)
	up.loadErr = types.NewAppError(types.ErrCodeUpstreamUnavailable, "organization API unavailable", nil)

	w := doRequest(t, newPurchaseRouter(up), http.MethodPost, "/organizations/org-1/purchase_sessions", "tok", CreateSessionRequest{})

	require.Equal(t, http.StatusBadGateway, w.Code)
}

func TestPurchase_SessionIsBoundToItsCreator(t *testing.T) {
	router := newPurchaseRouter(newFakeUpstream(false))
	sess := createSession(t, router, "tok")

	w := doRequest(t, router, http.MethodGet, sessionPath(sess.ID, ""), "tok", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodGet, sessionPath(sess.ID, ""), "someone-else", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(types.ErrCodeNotFoundSession), decodeError(t, w).Code)

	w = doRequest(t, router, http.MethodGet, sessionPath("missing", ""), "tok", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPurchase_ActionValidation(t *testing.T) {
	router := newPurchaseRouter(newFakeUpstream(false))
	sess := createSession(t, router, "tok")

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   types.ErrorCode
	}{
		{"missing type", ActionRequest{}, http.StatusBadRequest, types.ErrCodeValidationMissingField},
		{"unknown type", ActionRequest{Type: "jump"}, http.StatusBadRequest, types.ErrCodeValidationInvalidAction},
		{"plan without id", ActionRequest{Type: ActionSelectPlan}, http.StatusBadRequest, types.ErrCodeValidationMissingField},
		{"unknown platform", ActionRequest{Type: ActionSelectPlatform, Platform: "premium"}, http.StatusBadRequest, types.ErrCodeValidationInvalidAction},
		{"billing without details", ActionRequest{Type: ActionBillingDetails}, http.StatusBadRequest, types.ErrCodeValidationMissingField},
		{"unknown plan", ActionRequest{Type: ActionSelectPlan, PlanID: "plan-huge"}, http.StatusBadRequest, types.ErrCodeValidationInvalidAction},
		{"wrong step", ActionRequest{Type: ActionSpaceName, SpaceName: "Docs"}, http.StatusConflict, types.ErrCodeConflictWrongStep},
		{"unknown field", `{"type":"select_plan","planId":"plan-free","color":"red"}`, http.StatusBadRequest, types.ErrCodeValidationInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/actions"), "tok", tt.body)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, string(tt.wantCode), decodeError(t, w).Code)
		})
	}
}

func TestPurchase_ActionIgnoredFieldsAreWarnings(t *testing.T) {
	router := newPurchaseRouter(newFakeUpstream(false))
	sess := createSession(t, router, "tok")

	w := doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/actions"), "tok",
		ActionRequest{Type: ActionSelectPlan, PlanID: "plan-medium", SpaceName: "Docs"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeData[SessionResponse](t, w)
	require.NotNil(t, body.Meta)
	assert.Equal(t, []string{"spaceName is ignored by select_plan"}, body.Meta.Warnings)
	require.NotNil(t, body.Data.State.SelectedPlan)
	assert.Equal(t, "plan-medium", body.Data.State.SelectedPlan.ID())
	assert.Empty(t, body.Data.State.SpaceName)
}

func TestPurchase_FreeSpaceFlow(t *testing.T) {
	up := newFakeUpstream(false)
	router := newPurchaseRouter(up)
	sess := createSession(t, router, "tok")
	actions := sessionPath(sess.ID, "/actions")

	w := doRequest(t, router, http.MethodPost, actions, "tok", ActionRequest{Type: ActionSelectPlan, PlanID: "plan-free"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/continue"), "tok", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, purchase.StepSpaceDetails, decodeData[SessionResponse](t, w).Data.Step)

	w = doRequest(t, router, http.MethodPost, actions, "tok", ActionRequest{Type: ActionSpaceName, SpaceName: "  Docs  "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Docs", decodeData[SessionResponse](t, w).Data.State.SpaceName)

	w = doRequest(t, router, http.MethodPost, actions, "tok", ActionRequest{Type: ActionTemplate, TemplateID: "tmpl-blog"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/continue"), "tok", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, purchase.StepReceipt, decodeData[SessionResponse](t, w).Data.Step)

	w = doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/receipt"), "tok", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	status := decodeData[purchase.Status](t, w).Data
	assert.True(t, status.Done)
	assert.Nil(t, status.Error)
	assert.Equal(t, purchase.ButtonGoToSpace, status.ButtonAction.Kind)
	assert.Equal(t, "https://app.example.com/spaces/new-space", status.ButtonAction.URL)
	assert.Equal(t, []string{"create_space", "apply_template"}, up.calls)

	w = doRequest(t, router, http.MethodGet, sessionPath(sess.ID, "/receipt"), "tok", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeData[purchase.Status](t, w).Data.Done)

	w = doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/back"), "tok", nil)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestPurchase_ReceiptFailureCanBeRetried(t *testing.T) {
	up := newFakeUpstream(false)
	attempts := 0
	up.createFn = func(_, name, _ string) (types.Space, error) {
		attempts++
		if attempts == 1 {
			return types.Space{}, types.NewAppError(types.ErrCodeUpstreamUnavailable, "organization API unavailable", nil)
		}
		return types.Space{Sys: types.Sys{ID: "new-space"}, Name: name}, nil
	}
	router := newPurchaseRouter(up)
	sess := createSession(t, router, "tok")

	doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/actions"), "tok", ActionRequest{Type: ActionSelectPlan, PlanID: "plan-free"})
	doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/continue"), "tok", nil)
	doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/actions"), "tok", ActionRequest{Type: ActionSpaceName, SpaceName: "Docs"})
	doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/continue"), "tok", nil)

	w := doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/receipt"), "tok", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	status := decodeData[purchase.Status](t, w).Data
	require.NotNil(t, status.Error)
	assert.Equal(t, types.ErrCodePurchaseSpaceCreation, status.Error.Kind)
	assert.Equal(t, purchase.ButtonRetry, status.ButtonAction.Kind)

	w = doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/receipt"), "tok", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decodeData[purchase.Status](t, w).Data.Done)
	assert.Equal(t, 2, attempts)
}

func TestPurchase_PaidFlowWithCardCapture(t *testing.T) {
	up := newFakeUpstream(false)
	router := newPurchaseRouter(up)
	sess := createSession(t, router, "tok")
	actions := sessionPath(sess.ID, "/actions")

	doRequest(t, router, http.MethodPost, actions, "tok", ActionRequest{Type: ActionSelectPlan, PlanID: "plan-medium"})
	doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/continue"), "tok", nil)
	doRequest(t, router, http.MethodPost, actions, "tok", ActionRequest{Type: ActionSpaceName, SpaceName: "Docs"})

	w := doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/continue"), "tok", nil)
	require.Equal(t, purchase.StepBillingDetails, decodeData[SessionResponse](t, w).Data.Step)

	form := germanForm()
	w = doRequest(t, router, http.MethodPost, actions, "tok", ActionRequest{Type: ActionBillingDetails, BillingDetails: &form})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/continue"), "tok", nil)
	require.Equal(t, purchase.StepCreditCardDetails, decodeData[SessionResponse](t, w).Data.Step)

	w = doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/payment"), "tok", billing.PaymentCallback{Success: false})
	require.Equal(t, http.StatusPaymentRequired, w.Code)

	w = doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/payment"), "tok", billing.PaymentCallback{Success: true, RefID: "ref-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeData[SessionResponse](t, w).Data
	assert.Equal(t, purchase.StepConfirmation, body.Step)
	require.NotNil(t, body.State.PaymentDetails)
	assert.Equal(t, "************1111", body.State.PaymentDetails.Number)
	assert.Equal(t, []string{"create_billing_details", "set_default_payment_method", "get_default_payment_method"}, up.calls)
}

func TestPurchase_BackWithoutPreviousStep(t *testing.T) {
	router := newPurchaseRouter(newFakeUpstream(false))
	sess := createSession(t, router, "tok")

	w := doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/back"), "tok", nil)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(types.ErrCodeConflictNoPreviousStep), decodeError(t, w).Code)
}

func TestPurchase_ReceiptBeforeConfirmation(t *testing.T) {
	router := newPurchaseRouter(newFakeUpstream(false))
	sess := createSession(t, router, "tok")

	w := doRequest(t, router, http.MethodGet, sessionPath(sess.ID, "/receipt"), "tok", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/receipt"), "tok", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(types.ErrCodeConflictWrongStep), decodeError(t, w).Code)
}

func TestPurchase_PaymentFieldError(t *testing.T) {
	router := newPurchaseRouter(newFakeUpstream(false))
	sess := createSession(t, router, "tok")

	w := doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/payment_field_errors"), "tok",
		PaymentFieldErrorRequest{Key: "creditCardNumber", Code: billing.PaymentFieldRequired})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	msg := decodeData[billing.FieldErrorMessage](t, w).Data
	assert.Equal(t, "Please enter the card number", msg.Message)

	w = doRequest(t, router, http.MethodPost, sessionPath(sess.ID, "/payment_field_errors"), "tok", PaymentFieldErrorRequest{Key: "creditCardNumber"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActionRequest_Warnings(t *testing.T) {
	form := germanForm()
	req := ActionRequest{Type: ActionTemplate, TemplateID: "tmpl-blog", Platform: types.PlatformSpaceOnly, BillingDetails: &form}

	assert.Equal(t, []string{
		"platform is ignored by template",
		"billingDetails is ignored by template",
	}, req.Warnings())
	assert.Empty(t, ActionRequest{Type: ActionSelectPlan, PlanID: "p"}.Warnings())
}

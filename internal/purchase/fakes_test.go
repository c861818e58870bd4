package purchase

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"spacepurchase/internal/billing"
	"spacepurchase/internal/spaces"
	"spacepurchase/internal/types"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []types.AnalyticsMessage
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, msg types.AnalyticsMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.err
}

func (f *fakePublisher) ofType(t types.AnalyticsEventType) []types.AnalyticsMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.AnalyticsMessage
	for _, m := range f.msgs {
		if m.EventType == t {
			out = append(out, m)
		}
	}
	return out
}

type report struct {
	Kind    types.ErrorCode
	Variant string
	Err     error
}

type fakeReporter struct {
	mu      sync.Mutex
	reports []report
}

func (f *fakeReporter) Report(_ context.Context, kind types.ErrorCode, variant string, err error, _ ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report{Kind: kind, Variant: variant, Err: err})
}

type fakePayments struct {
	createFn     func(orgID string, payload types.BillingDetailsPayload) error
	updateFn     func(orgID string, payload types.BillingDetailsPayload) error
	setDefaultFn func(orgID, refID string) error
	getDefaultFn func(orgID string) (types.PaymentDetails, error)
	calls        []string
}

func (f *fakePayments) CreateBillingDetails(_ context.Context, orgID string, payload types.BillingDetailsPayload) error {
	f.calls = append(f.calls, "create_billing_details")
	if f.createFn == nil {
		return nil
	}
	return f.createFn(orgID, payload)
}

func (f *fakePayments) UpdateBillingDetails(_ context.Context, orgID string, payload types.BillingDetailsPayload) error {
	f.calls = append(f.calls, "update_billing_details")
	if f.updateFn == nil {
		return nil
	}
	return f.updateFn(orgID, payload)
}

func (f *fakePayments) SetDefaultPaymentMethod(_ context.Context, orgID, refID string) error {
	f.calls = append(f.calls, "set_default_payment_method")
	if f.setDefaultFn == nil {
		return nil
	}
	return f.setDefaultFn(orgID, refID)
}

func (f *fakePayments) GetDefaultPaymentMethod(_ context.Context, orgID string) (types.PaymentDetails, error) {
	f.calls = append(f.calls, "get_default_payment_method")
	if f.getDefaultFn == nil {
		return types.PaymentDetails{Number: "************4242"}, nil
	}
	return f.getDefaultFn(orgID)
}

type fakeSpaces struct {
	mu            sync.Mutex
	calls         []string
	createFn      func(ctx context.Context, orgID, name, planID string) (types.Space, error)
	applyFn       func(ctx context.Context, spaceID, templateID string) error
	refreshTokenN int
}

func (f *fakeSpaces) record(c string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeSpaces) CreateSpace(ctx context.Context, orgID, name, planID string) (types.Space, error) {
	f.record("create_space:" + name + ":" + planID)
	if f.createFn == nil {
		return types.Space{Sys: types.Sys{ID: "new-space"}, Name: name}, nil
	}
	return f.createFn(ctx, orgID, name, planID)
}

func (f *fakeSpaces) ApplyTemplate(ctx context.Context, spaceID, templateID string) error {
	f.record("apply_template:" + spaceID + ":" + templateID)
	if f.applyFn == nil {
		return nil
	}
	return f.applyFn(ctx, spaceID, templateID)
}

func (f *fakeSpaces) RefreshToken(context.Context) (spaces.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshTokenN++
	return spaces.Token{}, nil
}

func (f *fakeSpaces) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakePlans struct {
	mu       sync.Mutex
	calls    []string
	addOnFn  func(ctx context.Context, orgID, planID string) error
	changeFn func(ctx context.Context, spaceID, planID string) error
}

func (f *fakePlans) record(c string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakePlans) PurchaseAddOn(ctx context.Context, orgID, planID string) error {
	f.record("purchase_add_on:" + planID)
	if f.addOnFn == nil {
		return nil
	}
	return f.addOnFn(ctx, orgID, planID)
}

func (f *fakePlans) ChangeSpacePlan(ctx context.Context, spaceID, planID string) error {
	f.record("change_space_plan:" + spaceID + ":" + planID)
	if f.changeFn == nil {
		return nil
	}
	return f.changeFn(ctx, spaceID, planID)
}

func (f *fakePlans) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeCatalog struct {
	mu          sync.Mutex
	invalidated []string
}

func (f *fakeCatalog) Invalidate(orgID, featureID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, orgID+"/"+featureID)
}

type testEnv struct {
	publisher *fakePublisher
	reporter  *fakeReporter
	payments  *fakePayments
	spaces    *fakeSpaces
	plans     *fakePlans
	catalog   *fakeCatalog
	deps      *Deps
}

func newTestEnv() *testEnv {
	env := &testEnv{
		publisher: &fakePublisher{},
		reporter:  &fakeReporter{},
		payments:  &fakePayments{},
		spaces:    &fakeSpaces{},
		plans:     &fakePlans{},
		catalog:   &fakeCatalog{},
	}
	env.deps = Deps{
		Payments:   env.payments,
		Spaces:     env.spaces,
		Plans:      env.plans,
		Catalog:    env.catalog,
		Publisher:  env.publisher,
		Reporter:   env.reporter,
		AppBaseURL: "https://app.example.com/",
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}.withDefaults()
	return env
}

var (
	freePlan = types.SpaceProductRatePlan{
		ProductRatePlan: types.ProductRatePlan{Sys: types.Sys{ID: "free"}, Name: "Free", ProductPlanType: types.PlanTypeFreeSpace},
		IsFree:          true,
	}
	mediumPlan = types.SpaceProductRatePlan{
		ProductRatePlan: types.ProductRatePlan{Sys: types.Sys{ID: "medium"}, Name: "Medium", Price: 489, ProductPlanType: types.PlanTypeSpace},
	}
	largePlan = types.SpaceProductRatePlan{
		ProductRatePlan: types.ProductRatePlan{Sys: types.Sys{ID: "large"}, Name: "Large", Price: 879, ProductPlanType: types.PlanTypeSpace},
	}
	disabledPlan = types.SpaceProductRatePlan{
		ProductRatePlan: types.ProductRatePlan{Sys: types.Sys{ID: "enterprise"}, Name: "Enterprise"},
		Disabled:        true,
	}
	addOnPlan = types.ProductRatePlan{Sys: types.Sys{ID: "compose-launch"}, Name: "Compose + Launch", ProductPlanType: types.PlanTypeAddOn}
	blogTmpl  = types.Template{ID: "blog", Name: "Blog"}
)

func testData(billable bool) InitialData {
	return InitialData{
		Organization: types.Organization{
			Sys:        types.Sys{ID: "org-1"},
			Name:       "Acme",
			IsBillable: billable,
			Role:       types.RoleOwner,
		},
		SpaceRatePlans: []types.SpaceProductRatePlan{freePlan, mediumPlan, largePlan, disabledPlan},
		AddOnRatePlan:  &addOnPlan,
		Templates:      []types.Template{blogTmpl},
	}
}

// newTestSession returns an initialized session bound to the token "token".
func newTestSession(env *testEnv, data InitialData, purchasingApps bool) *Session {
	s := newSession("sess-1", env.deps)
	s.owner = types.SecretString("token").Fingerprint()
	if err := s.initialize(data, purchasingApps); err != nil {
		panic(err)
	}
	return s
}

func validForm() billing.Form {
	return billing.Form{
		FirstName: "Ada",
		LastName:  "Lovelace",
		WorkEmail: "ada@example.com",
		Address1:  "Max-Urich-Str. 3",
		City:      "Berlin",
		ZipCode:   "13355",
		Country:   "Germany",
		VAT:       "DE123456789",
	}
}

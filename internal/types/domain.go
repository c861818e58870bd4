package types

// Sys is the metadata envelope the upstream API attaches to every entity.
type Sys struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`

	// Organization is set on spaces.
	Organization *Link `json:"organization,omitempty"`
}

// Link references another entity by id.
type Link struct {
	Sys Sys `json:"sys"`
}

// Collection is the upstream list envelope.
type Collection[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total,omitempty"`
}

// Organization is the billing owner of spaces.
type Organization struct {
	Sys        Sys     `json:"sys"`
	Name       string  `json:"name"`
	IsBillable bool    `json:"isBillable"`
	Role       OrgRole `json:"role"`
}

// ID returns the organization identifier.
func (o Organization) ID() string { return o.Sys.ID }

// Space is an upstream content space.
type Space struct {
	Sys  Sys    `json:"sys"`
	Name string `json:"name"`
}

// ID returns the space identifier.
func (s Space) ID() string { return s.Sys.ID }

// OrganizationID returns the id of the owning organization, or "" when the
// upstream omitted the link.
func (s Space) OrganizationID() string {
	if s.Sys.Organization == nil {
		return ""
	}
	return s.Sys.Organization.Sys.ID
}

// UnavailabilityReason explains why a rate plan cannot be purchased.
type UnavailabilityReason struct {
	Type           string `json:"type"`
	AdditionalInfo string `json:"additionalInfo,omitempty"`
}

// Tier is one pricing tier of a rate plan charge. EndingUnit is absent for
// unbounded tiers.
type Tier struct {
	StartingUnit int  `json:"startingUnit"`
	EndingUnit   *int `json:"endingUnit,omitempty"`
}

// RatePlanCharge is an itemized charge on a rate plan; its name matches a ResourceKind.
type RatePlanCharge struct {
	Name  string `json:"name"`
	Tiers []Tier `json:"tiers"`
}

// ProductRatePlan is the raw rate plan record returned by the upstream API.
type ProductRatePlan struct {
	Sys                    Sys                    `json:"sys"`
	Name                   string                 `json:"name"`
	Price                  float64                `json:"price"`
	ProductPlanType        PlanType               `json:"productPlanType"`
	UnavailabilityReasons  []UnavailabilityReason `json:"unavailabilityReasons,omitempty"`
	ProductRatePlanCharges []RatePlanCharge       `json:"productRatePlanCharges,omitempty"`
}

// ID returns the rate plan identifier.
func (p ProductRatePlan) ID() string { return p.Sys.ID }

// IncludedResource is a resource limit displayed on a plan card.
type IncludedResource struct {
	Type   ResourceKind `json:"type"`
	Number int          `json:"number"`
}

// SpaceProductRatePlan is a display-ready rate plan. It is derived from a
// ProductRatePlan and never mutated after construction.
type SpaceProductRatePlan struct {
	ProductRatePlan
	IsFree            bool               `json:"isFree"`
	Disabled          bool               `json:"disabled"`
	CurrentPlan       bool               `json:"currentPlan"`
	IncludedResources []IncludedResource `json:"includedResources"`
}

// ResourceLimits bounds an organization-level resource.
type ResourceLimits struct {
	Included int `json:"included"`
	Maximum  int `json:"maximum"`
}

// FreeSpaceResource is the organization's free space usage.
type FreeSpaceResource struct {
	Usage  int            `json:"usage"`
	Limits ResourceLimits `json:"limits"`
}

// SubscriptionPlan is a plan the organization is already subscribed to.
type SubscriptionPlan struct {
	Sys      Sys      `json:"sys"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	PlanType PlanType `json:"planType"`
	Space    *Space   `json:"space,omitempty"`
}

// BillingAddress is the nested address of the upstream billing details shape.
type BillingAddress struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	State    string `json:"state,omitempty"`
	ZipCode  string `json:"zipCode"`
	Country  string `json:"country"`
}

// BillingDetailsPayload is the nested shape read from and written to the
// billing_details endpoint. Country is an ISO 3166-1 alpha-2 code.
type BillingDetailsPayload struct {
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	WorkEmail string         `json:"workEmail"`
	VAT       string         `json:"vat,omitempty"`
	Address   BillingAddress `json:"address"`
}

// BillingDetails is the flat billing details shape used by the purchase flow.
type BillingDetails struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	WorkEmail string `json:"workEmail"`
	VAT       string `json:"vat,omitempty"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state,omitempty"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
}

// ExpirationDate is a card expiry month/year.
type ExpirationDate struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// PaymentDetails is the masked default payment method of an organization.
type PaymentDetails struct {
	Number         string         `json:"number"`
	ExpirationDate ExpirationDate `json:"expirationDate"`
}

// Invoice is one entry of the organization's invoice list.
type Invoice struct {
	Sys           Sys     `json:"sys"`
	InvoiceNumber string  `json:"invoiceNumber"`
	InvoiceDate   string  `json:"invoiceDate"`
	Amount        float64 `json:"amount"`
	PaymentStatus string  `json:"paymentStatus,omitempty"`
}

// HostedPaymentParams are the signed parameters needed to render the hosted
// payment iframe.
type HostedPaymentParams struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenantId"`
	Token     string `json:"token"`
	Signature string `json:"signature"`
	Key       string `json:"key"`
	URL       string `json:"url"`
}

// Template is a space template from the content API.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// FAQ is one question/answer pair from the content API.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// AppDefinition is an app bundled with a platform.
type AppDefinition struct {
	Sys  Sys    `json:"sys"`
	Name string `json:"name"`
}

// CatalogFeatureSys identifies a product catalog feature.
type CatalogFeatureSys struct {
	FeatureID string `json:"featureId"`
}

// CatalogFeature is an organization's entitlement flag for one feature.
type CatalogFeature struct {
	Sys     CatalogFeatureSys `json:"sys"`
	Enabled bool              `json:"enabled"`
}

package subscription

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"spacepurchase/internal/external"
	"spacepurchase/internal/types"
)

// API is the subset of the organization API client used by subscription.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
}

type ratePlanRequest struct {
	ProductRatePlanID string `json:"productRatePlanId"`
}

// Service wraps the organization- and space-scoped subscription endpoints.
type Service struct {
	api    API
	logger *slog.Logger
}

// NewService creates a subscription Service.
func NewService(api API, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, logger: logger}
}

func planTypeQuery(q types.RatePlanQuery) url.Values {
	return url.Values{"plan_type": {string(q)}}
}

// GetSpaceRatePlans lists space rate plans. With a spaceID the list is scoped
// to that space and carries a currentPlan reason on the plan it already has.
func (s *Service) GetSpaceRatePlans(ctx context.Context, orgID, spaceID string) ([]types.ProductRatePlan, error) {
	path := external.OrgPath(orgID, "product_rate_plans")
	if spaceID != "" {
		path = external.SpacePath(spaceID, "product_rate_plans")
	}

	var out types.Collection[types.ProductRatePlan]
	if err := s.api.Get(ctx, path, planTypeQuery(types.RatePlanQuerySpace), &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetAddOnRatePlans lists add-on rate plans offered to the organization.
func (s *Service) GetAddOnRatePlans(ctx context.Context, orgID string) ([]types.ProductRatePlan, error) {
	var out types.Collection[types.ProductRatePlan]
	if err := s.api.Get(ctx, external.OrgPath(orgID, "product_rate_plans"), planTypeQuery(types.RatePlanQueryAddOn), &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetPlans lists the organization's current subscription plans of one type.
func (s *Service) GetPlans(ctx context.Context, orgID string, planType types.RatePlanQuery) ([]types.SubscriptionPlan, error) {
	var out types.Collection[types.SubscriptionPlan]
	if err := s.api.Get(ctx, external.OrgPath(orgID, "plans"), planTypeQuery(planType), &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// PurchaseAddOn subscribes the organization to an add-on rate plan.
func (s *Service) PurchaseAddOn(ctx context.Context, orgID, productRatePlanID string) error {
	err := s.api.Post(ctx, external.OrgPath(orgID, "plans"), ratePlanRequest{ProductRatePlanID: productRatePlanID}, nil)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "add-on purchased", "org_id", orgID, "rate_plan_id", productRatePlanID)
	return nil
}

// ChangeSpacePlan moves an existing space onto another space rate plan.
func (s *Service) ChangeSpacePlan(ctx context.Context, spaceID, productRatePlanID string) error {
	err := s.api.Put(ctx, external.SpacePath(spaceID, "space_plan"), ratePlanRequest{ProductRatePlanID: productRatePlanID}, nil)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "space plan changed", "space_id", spaceID, "rate_plan_id", productRatePlanID)
	return nil
}

// GetFreeSpaceResource fetches how many free spaces the organization uses.
func (s *Service) GetFreeSpaceResource(ctx context.Context, orgID string) (types.FreeSpaceResource, error) {
	var out types.FreeSpaceResource
	err := s.api.Get(ctx, external.OrgPath(orgID, "resources", "free_space"), nil, &out)
	return out, err
}

// GetCatalogFeatures fetches the organization's entitlement flags for the
// given product catalog features.
func (s *Service) GetCatalogFeatures(ctx context.Context, orgID string, featureIDs ...string) ([]types.CatalogFeature, error) {
	query := url.Values{"sys.featureId[]": featureIDs}

	var out types.Collection[types.CatalogFeature]
	if err := s.api.Get(ctx, external.OrgPath(orgID, "product_catalog_features"), query, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetAppDefinitions resolves app definitions by id. Ids unknown to the public
// endpoint are looked up on the organization's private definitions.
func (s *Service) GetAppDefinitions(ctx context.Context, orgID string, ids []string) ([]types.AppDefinition, error) {
	return lookupAppDefinitions(ctx, s.api, orgID, ids)
}

func idsQuery(ids []string) url.Values {
	return url.Values{"sys.id[in]": {strings.Join(ids, ",")}}
}

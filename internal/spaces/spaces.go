// Package spaces reads organizations and spaces, creates spaces on the
// upstream API, and reads the template and FAQ content shown during a
// purchase.
package spaces

import (
	"context"
	"log/slog"
	"net/url"

	"spacepurchase/internal/external"
	"spacepurchase/internal/types"
)

// API is the subset of the organization API client used by spaces.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// CreateRequest describes a new space.
type CreateRequest struct {
	Name              string `json:"name"`
	DefaultLocale     string `json:"defaultLocale"`
	ProductRatePlanID string `json:"productRatePlanId"`
}

type templateInstallation struct {
	TemplateID string `json:"templateId"`
}

// Token is the refreshed view of what the caller can access. It is fetched
// after a purchase so newly created spaces and entitlements become visible.
type Token struct {
	Organizations []types.Organization `json:"organizations"`
	Spaces        []types.Space        `json:"spaces"`
}

// Service wraps space creation and lookup.
type Service struct {
	api           API
	defaultLocale string
	logger        *slog.Logger
}

// NewService creates a spaces Service. New spaces get defaultLocale.
func NewService(api API, defaultLocale string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, defaultLocale: defaultLocale, logger: logger}
}

// GetOrganization fetches an organization with the caller's role in it.
func (s *Service) GetOrganization(ctx context.Context, orgID string) (types.Organization, error) {
	var org types.Organization
	if err := s.api.Get(ctx, external.OrgPath(orgID), nil, &org); err != nil {
		if types.CodeOf(err) == types.ErrCodeNotFoundResource {
			return types.Organization{}, types.NewAppErrorWithDetails(types.ErrCodeNotFoundOrg, "organization not found", err, map[string]any{"org_id": orgID})
		}
		return types.Organization{}, err
	}
	return org, nil
}

// GetSpace fetches one space.
func (s *Service) GetSpace(ctx context.Context, spaceID string) (types.Space, error) {
	var space types.Space
	if err := s.api.Get(ctx, external.SpacePath(spaceID), nil, &space); err != nil {
		if types.CodeOf(err) == types.ErrCodeNotFoundResource {
			return types.Space{}, types.NewAppErrorWithDetails(types.ErrCodeNotFoundSpace, "space not found", err, map[string]any{"space_id": spaceID})
		}
		return types.Space{}, err
	}
	return space, nil
}

// CreateSpace creates a space on the given rate plan in the organization.
func (s *Service) CreateSpace(ctx context.Context, orgID, name, productRatePlanID string) (types.Space, error) {
	req := CreateRequest{
		Name:              name,
		DefaultLocale:     s.defaultLocale,
		ProductRatePlanID: productRatePlanID,
	}

	var space types.Space
	if err := s.api.Post(ctx, external.OrgPath(orgID, "spaces"), req, &space); err != nil {
		return types.Space{}, err
	}
	s.logger.InfoContext(ctx, "space created", "org_id", orgID, "space_id", space.ID(), "rate_plan_id", productRatePlanID)
	return space, nil
}

// ApplyTemplate installs a template's content model into a space.
func (s *Service) ApplyTemplate(ctx context.Context, spaceID, templateID string) error {
	err := s.api.Post(ctx, external.SpacePath(spaceID, "template_installations"), templateInstallation{TemplateID: templateID}, nil)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "template applied", "space_id", spaceID, "template_id", templateID)
	return nil
}

// RefreshToken re-reads the caller's token.
func (s *Service) RefreshToken(ctx context.Context) (Token, error) {
	var token Token
	err := s.api.Get(ctx, "/token", nil, &token)
	return token, err
}

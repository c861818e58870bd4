package spaces

import (
	"context"
	"net/url"

	"spacepurchase/internal/types"
)

// FAQ pages of the content API, one per purchase flow.
const (
	FAQPageSpacePurchase = "space_purchase"
	FAQPageSpaceUpgrade  = "space_upgrade"
	FAQPageApps          = "apps_purchase"
)

// FAQPage picks the FAQ page shown for a flow.
func FAQPage(upgrading, purchasingApps bool) string {
	switch {
	case purchasingApps:
		return FAQPageApps
	case upgrading:
		return FAQPageSpaceUpgrade
	default:
		return FAQPageSpacePurchase
	}
}

// ContentAPI is the subset of the content API client used here.
type ContentAPI interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// Content reads marketing content for the purchase flow.
type Content struct {
	api ContentAPI
}

// NewContent creates a Content reader.
func NewContent(api ContentAPI) *Content {
	return &Content{api: api}
}

// GetTemplates lists the space templates offered on space creation.
func (c *Content) GetTemplates(ctx context.Context) ([]types.Template, error) {
	var out types.Collection[types.Template]
	if err := c.api.Get(ctx, "/templates", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetFAQs lists the questions of one FAQ page.
func (c *Content) GetFAQs(ctx context.Context, page string) ([]types.FAQ, error) {
	var out types.Collection[types.FAQ]
	if err := c.api.Get(ctx, "/faqs", url.Values{"page": {page}}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

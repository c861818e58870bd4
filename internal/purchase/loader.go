package purchase

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"spacepurchase/internal/spaces"
	"spacepurchase/internal/subscription"
	"spacepurchase/internal/types"
)

// OrgReader reads the organization and the space being upgraded.
type OrgReader interface {
	GetOrganization(ctx context.Context, orgID string) (types.Organization, error)
	GetSpace(ctx context.Context, spaceID string) (types.Space, error)
}

// PlanReader reads the plan catalog offered to an organization.
type PlanReader interface {
	GetSpaceRatePlans(ctx context.Context, orgID, spaceID string) ([]types.ProductRatePlan, error)
	GetAddOnRatePlans(ctx context.Context, orgID string) ([]types.ProductRatePlan, error)
	GetFreeSpaceResource(ctx context.Context, orgID string) (types.FreeSpaceResource, error)
	GetAppDefinitions(ctx context.Context, orgID string, ids []string) ([]types.AppDefinition, error)
}

// FeatureFlags reads product catalog entitlements.
type FeatureFlags interface {
	IsEnabled(ctx context.Context, orgID, featureID string) (bool, error)
}

// ContentReader reads templates and FAQs.
type ContentReader interface {
	GetTemplates(ctx context.Context) ([]types.Template, error)
	GetFAQs(ctx context.Context, page string) ([]types.FAQ, error)
}

// BillingReader reads the billing details and card already on file.
type BillingReader interface {
	GetBillingAndPayment(ctx context.Context, orgID string) (types.BillingDetails, types.PaymentDetails, error)
}

// Sources are the readers of the initial fetch.
type Sources struct {
	Orgs    OrgReader
	Plans   PlanReader
	Flags   FeatureFlags
	Content ContentReader
	Billing BillingReader
}

// Loader builds sessions from one combined initial fetch.
type Loader struct {
	src    Sources
	deps   *Deps
	appIDs []string
	newID  func() string
}

// NewLoader creates a Loader. appIDs are the app definitions bundled with
// Compose+Launch.
func NewLoader(src Sources, deps Deps, appIDs []string) *Loader {
	return &Loader{
		src:    src,
		deps:   deps.withDefaults(),
		appIDs: appIDs,
		newID:  uuid.NewString,
	}
}

// Load fetches everything the wizard needs and returns an initialized
// session. spaceID selects the upgrade path. With wantsApps the session
// starts on platform selection unless the organization already owns
// Compose+Launch.
func (l *Loader) Load(ctx context.Context, orgID, spaceID string, wantsApps bool) (*Session, error) {
	var (
		org       types.Organization
		rawPlans  []types.ProductRatePlan
		addOns    []types.ProductRatePlan
		freeSpace types.FreeSpaceResource
		templates []types.Template
		faqs      []types.FAQ
		entitled  bool
		space     *types.Space
		apps      []types.AppDefinition
	)
	upgrading := spaceID != ""

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		org, err = l.src.Orgs.GetOrganization(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		rawPlans, err = l.src.Plans.GetSpaceRatePlans(gctx, orgID, spaceID)
		return err
	})
	g.Go(func() (err error) {
		addOns, err = l.src.Plans.GetAddOnRatePlans(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		freeSpace, err = l.src.Plans.GetFreeSpaceResource(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		templates, err = l.src.Content.GetTemplates(gctx)
		return err
	})
	g.Go(func() (err error) {
		faqs, err = l.src.Content.GetFAQs(gctx, spaces.FAQPage(upgrading, wantsApps))
		return err
	})
	g.Go(func() (err error) {
		entitled, err = l.src.Flags.IsEnabled(gctx, orgID, types.FeatureComposeLaunch)
		return err
	})
	if upgrading {
		g.Go(func() error {
			s, err := l.src.Orgs.GetSpace(gctx, spaceID)
			if err != nil {
				return err
			}
			space = &s
			return nil
		})
	}
	if wantsApps {
		g.Go(func() (err error) {
			apps, err = l.src.Plans.GetAppDefinitions(gctx, orgID, l.appIDs)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		l.deps.Logger.WarnContext(ctx, "initial purchase fetch failed", "org_id", orgID, "space_id", spaceID, "error", err)
		return nil, err
	}

	if space != nil && space.OrganizationID() != "" && space.OrganizationID() != orgID {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeNotFoundResource,
			"space does not belong to the organization",
			nil,
			map[string]any{"org_id": orgID, "space_id": spaceID},
		)
	}

	if !org.Role.CanPurchase() {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodePermissionRole,
			"only organization owners and admins can purchase",
			nil,
			map[string]any{"org_id": orgID, "role": string(org.Role)},
		)
	}

	data := InitialData{
		Organization:         org,
		CurrentSpace:         space,
		SpaceRatePlans:       subscription.TransformSpaceRatePlans(rawPlans, &freeSpace),
		Templates:            templates,
		FAQs:                 faqs,
		ComposeLaunchApps:    apps,
		ComposeLaunchEnabled: entitled,
	}
	if len(addOns) > 0 {
		data.AddOnRatePlan = &addOns[0]
	}
	if upgrading {
		data.CurrentSpaceRatePlan = currentPlan(data.SpaceRatePlans)
	}

	if org.IsBillable {
		details, payment, err := l.src.Billing.GetBillingAndPayment(ctx, orgID)
		if err != nil {
			return nil, err
		}
		data.BillingDetails = &details
		data.PaymentDetails = &payment
	}

	sess := newSession(l.newID(), l.deps)
	token, _ := types.GetAuthToken(ctx)
	sess.owner = token.Fingerprint()
	if err := sess.initialize(data, wantsApps && !entitled); err != nil {
		return nil, err
	}

	l.deps.Logger.InfoContext(ctx, "purchase session created",
		"session_id", sess.ID(),
		"org_id", orgID,
		"space_id", spaceID,
		"step", string(sess.Step()),
	)
	return sess, nil
}

func currentPlan(plans []types.SpaceProductRatePlan) *types.SpaceProductRatePlan {
	for i := range plans {
		if plans[i].CurrentPlan {
			p := plans[i]
			return &p
		}
	}
	return nil
}

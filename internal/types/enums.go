package types

// OrgRole is the current user's membership role within an organization.
type OrgRole string

const (
	RoleOwner     OrgRole = "owner"
	RoleAdmin     OrgRole = "admin"
	RoleMember    OrgRole = "member"
	RoleDeveloper OrgRole = "developer"
)

// CanPurchase reports whether the role is allowed to buy spaces and add-ons.
func (r OrgRole) CanPurchase() bool {
	return r == RoleOwner || r == RoleAdmin
}

// PlanType is the value of a rate plan's productPlanType field.
type PlanType string

const (
	PlanTypeFreeSpace PlanType = "free_space"
	PlanTypeSpace     PlanType = "space"
	PlanTypeAddOn     PlanType = "add_on"
)

// RatePlanQuery is the plan_type filter accepted by the rate plan and plan list endpoints.
type RatePlanQuery string

const (
	RatePlanQuerySpace RatePlanQuery = "space"
	RatePlanQueryAddOn RatePlanQuery = "add_on"
)

// Platform is the product bundle chosen on the platform selection step.
type Platform string

const (
	PlatformSpaceOnly     Platform = "space_only"
	PlatformComposeLaunch Platform = "compose_launch"
)

// IncludesComposeLaunch reports whether the platform bundles the Compose+Launch add-on.
func (p Platform) IncludesComposeLaunch() bool {
	return p == PlatformComposeLaunch
}

// ResourceKind names a resource itemized on a space rate plan.
type ResourceKind string

const (
	ResourceEnvironments ResourceKind = "Environments"
	ResourceRoles        ResourceKind = "Roles"
	ResourceLocales      ResourceKind = "Locales"
	ResourceContentTypes ResourceKind = "Content types"
	ResourceRecords      ResourceKind = "Records"
)

// IncludedResourceKinds is the fixed display order of included resources.
var IncludedResourceKinds = []ResourceKind{
	ResourceEnvironments,
	ResourceRoles,
	ResourceLocales,
	ResourceContentTypes,
	ResourceRecords,
}

// UnavailabilityCurrentPlan marks the plan a space being upgraded already has.
const UnavailabilityCurrentPlan = "currentPlan"

// NoSpacePlanID is the sentinel plan ID selected when the user defers space
// selection and only buys the Compose+Launch add-on.
const NoSpacePlanID = "no_space_plan"

// FeatureComposeLaunch is the product catalog feature that flags an
// organization as entitled to Compose+Launch.
const FeatureComposeLaunch = "compose_app"

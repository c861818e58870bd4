// Package subscription wraps the rate plan, plan and product catalog endpoints
// and derives the display shape of space rate plans.
package subscription

import (
	"slices"

	"spacepurchase/internal/types"
)

// TransformSpaceRatePlans derives one display-ready plan per raw plan, in input
// order. freeSpace may be nil when the organization's usage is unknown, in
// which case free plans are only disabled by their unavailability reasons.
func TransformSpaceRatePlans(plans []types.ProductRatePlan, freeSpace *types.FreeSpaceResource) []types.SpaceProductRatePlan {
	out := make([]types.SpaceProductRatePlan, 0, len(plans))
	for _, plan := range plans {
		out = append(out, transformSpaceRatePlan(plan, freeSpace))
	}
	return out
}

func transformSpaceRatePlan(plan types.ProductRatePlan, freeSpace *types.FreeSpaceResource) types.SpaceProductRatePlan {
	isFree := plan.ProductPlanType == types.PlanTypeFreeSpace
	freeExhausted := freeSpace != nil && freeSpace.Usage >= freeSpace.Limits.Included

	return types.SpaceProductRatePlan{
		ProductRatePlan:   plan,
		IsFree:            isFree,
		CurrentPlan:       hasReason(plan.UnavailabilityReasons, types.UnavailabilityCurrentPlan),
		Disabled:          len(plan.UnavailabilityReasons) > 0 || (isFree && freeExhausted),
		IncludedResources: includedResources(plan.ProductRatePlanCharges),
	}
}

func hasReason(reasons []types.UnavailabilityReason, reasonType string) bool {
	return slices.ContainsFunc(reasons, func(r types.UnavailabilityReason) bool {
		return r.Type == reasonType
	})
}

// includedResources lists every itemized resource kind, in display order.
// Environments and Roles count the default master environment and admin role,
// which are not part of the charge.
func includedResources(charges []types.RatePlanCharge) []types.IncludedResource {
	out := make([]types.IncludedResource, 0, len(types.IncludedResourceKinds))
	for _, kind := range types.IncludedResourceKinds {
		n := chargeLimit(charges, kind)
		if kind == types.ResourceEnvironments || kind == types.ResourceRoles {
			n++
		}
		out = append(out, types.IncludedResource{Type: kind, Number: n})
	}
	return out
}

func chargeLimit(charges []types.RatePlanCharge, kind types.ResourceKind) int {
	for _, c := range charges {
		if c.Name != string(kind) {
			continue
		}
		if len(c.Tiers) == 0 || c.Tiers[0].EndingUnit == nil {
			return 0
		}
		return *c.Tiers[0].EndingUnit
	}
	return 0
}

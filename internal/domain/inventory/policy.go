package inventory

import (
	"time"
)

// TenantPolicy carries the tenant-wide inventory settings. Negative stock
// defaults to allowed for backward compatibility with legacy device fleets.
type TenantPolicy struct {
	AllowNegativeStock        bool
	RequireManualLotSelection bool
}

// DefaultTenantPolicy returns the policy applied when a tenant has none set.
func DefaultTenantPolicy() TenantPolicy {
	return TenantPolicy{AllowNegativeStock: true}
}

// ItemPolicy carries the per-item tracking and allocation settings.
type ItemPolicy struct {
	TrackBatches            bool
	TrackExpiry             bool
	MinShelfLifeDaysForSale int
	DefaultShelfLifeDays    int
	// AllowNegativeStock overrides warehouse and tenant when set.
	AllowNegativeStock *bool
}

// WarehousePolicy carries the per-warehouse allocation settings.
type WarehousePolicy struct {
	MinShelfLifeDaysDefault int
	// AllowNegativeStock overrides the tenant default when set.
	AllowNegativeStock *bool
}

// ResolveAllowNegativeStock resolves the negative-stock policy with item
// overriding warehouse overriding tenant.
func ResolveAllowNegativeStock(item ItemPolicy, warehouse WarehousePolicy, tenant TenantPolicy) bool {
	if item.AllowNegativeStock != nil {
		return *item.AllowNegativeStock
	}
	if warehouse.AllowNegativeStock != nil {
		return *warehouse.AllowNegativeStock
	}
	return tenant.AllowNegativeStock
}

// MinExpiryDate computes the earliest acceptable batch expiry for an outbound
// allocation on the given business date. The stricter of the item's own
// shelf-life floor and the warehouse default wins; expiry-tracked items never
// draw from already-expired batches even with no configured floor. Returns
// nil when no expiry constraint applies.
func MinExpiryDate(item ItemPolicy, warehouse WarehousePolicy, businessDate time.Time) *time.Time {
	minDays := item.MinShelfLifeDaysForSale
	if warehouse.MinShelfLifeDaysDefault > minDays {
		minDays = warehouse.MinShelfLifeDaysDefault
	}
	if minDays > 0 {
		d := businessDate.AddDate(0, 0, minDays)
		return &d
	}
	if item.TrackExpiry {
		d := businessDate
		return &d
	}
	return nil
}

// AllowUnbatchedRemainder reports whether an outbound allocation may spill
// into an unbatched deficit. Tracked items must account for every unit
// against a known lot.
func AllowUnbatchedRemainder(item ItemPolicy, warehouse WarehousePolicy) bool {
	return !item.TrackBatches && !item.TrackExpiry &&
		item.MinShelfLifeDaysForSale == 0 && warehouse.MinShelfLifeDaysDefault == 0
}

// ManualLotRequired reports whether the event payload must name an explicit
// batch or expiry for this item.
func ManualLotRequired(item ItemPolicy, tenant TenantPolicy) bool {
	return tenant.RequireManualLotSelection && (item.TrackBatches || item.TrackExpiry)
}

package ledger

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/domain/shared"
)

// AccountRole identifies the functional role an account plays in posting.
// Each tenant maps roles to concrete chart-of-accounts entries.
type AccountRole string

const (
	RoleAR             AccountRole = "AR"
	RoleAP             AccountRole = "AP"
	RoleCash           AccountRole = "CASH"
	RoleSales          AccountRole = "SALES"
	RoleSalesReturns   AccountRole = "SALES_RETURNS"
	RoleVATPayable     AccountRole = "VAT_PAYABLE"
	RoleVATRecoverable AccountRole = "VAT_RECOVERABLE"
	RoleInventory      AccountRole = "INVENTORY"
	RoleCOGS           AccountRole = "COGS"
	RoleGRNI           AccountRole = "GRNI"
	RoleRestockFees    AccountRole = "RESTOCK_FEES"
	RoleRounding       AccountRole = "ROUNDING"
)

// IsValid checks if the role is a known posting role
func (r AccountRole) IsValid() bool {
	switch r {
	case RoleAR, RoleAP, RoleCash, RoleSales, RoleSalesReturns,
		RoleVATPayable, RoleVATRecoverable, RoleInventory, RoleCOGS,
		RoleGRNI, RoleRestockFees, RoleRounding:
		return true
	}
	return false
}

func (r AccountRole) String() string {
	return string(r)
}

// AccountDefaults resolves posting roles to account IDs for one tenant.
// Payment methods carry their own mapping so that e.g. "card" settles to a
// bank clearing account while "cash" hits the drawer account.
type AccountDefaults struct {
	Roles          map[AccountRole]uuid.UUID
	PaymentMethods map[string]uuid.UUID
}

// Account returns the account mapped to a role, or a conflict error when the
// tenant has not configured one. Missing mappings are a setup problem, not a
// payload problem, so they are permanent but operator-fixable.
func (d AccountDefaults) Account(role AccountRole) (uuid.UUID, error) {
	if id, ok := d.Roles[role]; ok && id != uuid.Nil {
		return id, nil
	}
	return uuid.Nil, shared.NewConflictError("MISSING_ACCOUNT_DEFAULT",
		fmt.Sprintf("no account configured for role %s", role))
}

// PaymentAccount returns the settlement account for a payment method,
// falling back to the CASH role when the method has no explicit mapping.
func (d AccountDefaults) PaymentAccount(method string) (uuid.UUID, error) {
	if id, ok := d.PaymentMethods[method]; ok && id != uuid.Nil {
		return id, nil
	}
	return d.Account(RoleCash)
}

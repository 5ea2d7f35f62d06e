package trade

import (
	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/shared/valueobject"
)

// Customer carries the credit profile needed to accept credit sales. A zero
// credit limit on a leg means no limit is enforced on that leg.
type Customer struct {
	shared.BaseEntity
	TenantID         uuid.UUID
	Name             string
	CreditLimit      valueobject.DualAmount
	CreditBalance    valueobject.DualAmount
	PaymentTermsDays int
}

// AssertCreditCapacity fails when extending credit would push either leg of
// the balance past its configured limit.
func (c *Customer) AssertCreditCapacity(credit valueobject.DualAmount) error {
	if !c.CreditLimit.USD.IsZero() && c.CreditBalance.USD.Add(credit.USD).GreaterThan(c.CreditLimit.USD) {
		return shared.NewConflictError("CREDIT_LIMIT_EXCEEDED", "credit limit exceeded (USD)")
	}
	if !c.CreditLimit.LBP.IsZero() && c.CreditBalance.LBP.Add(credit.LBP).GreaterThan(c.CreditLimit.LBP) {
		return shared.NewConflictError("CREDIT_LIMIT_EXCEEDED", "credit limit exceeded (LBP)")
	}
	return nil
}

// ExtendCredit increases the outstanding balance after a posted credit sale.
func (c *Customer) ExtendCredit(credit valueobject.DualAmount) {
	c.CreditBalance = c.CreditBalance.Add(credit)
	c.Touch()
}

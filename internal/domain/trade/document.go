package trade

import (
	"context"

	"github.com/google/uuid"
)

// DocumentStatus represents the lifecycle of a business document
type DocumentStatus string

const (
	DocumentStatusDraft    DocumentStatus = "draft"
	DocumentStatusPosted   DocumentStatus = "posted"
	DocumentStatusCanceled DocumentStatus = "canceled"
)

// Document number series prefixes
const (
	DocTypeSalesInvoice    = "SI"
	DocTypeSalesReturn     = "SR"
	DocTypeGoodsReceipt    = "GR"
	DocTypeSupplierInvoice = "PI"
	DocTypeJournal         = "GL"
)

// DocumentNumberer allocates gap-free per-tenant document numbers, e.g.
// SI-000042.
type DocumentNumberer interface {
	Next(ctx context.Context, tenantID uuid.UUID, docType string) (string, error)
}

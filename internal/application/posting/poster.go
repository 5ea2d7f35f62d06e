package posting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ahtrading/backend/internal/domain/inventory"
	"github.com/ahtrading/backend/internal/domain/ledger"
	"github.com/ahtrading/backend/internal/domain/outbox"
	"github.com/ahtrading/backend/internal/domain/shared"
	"github.com/ahtrading/backend/internal/domain/trade"
)

// Stores bundles the repositories a posting transaction operates on. Every
// repository sees the same database transaction.
type Stores struct {
	Events           outbox.Repository
	Journals         ledger.JournalRepository
	Accounts         ledger.AccountDefaultsRepository
	Periods          ledger.PeriodLockRepository
	Invoices         trade.InvoiceRepository
	Returns          trade.SalesReturnRepository
	Receipts         trade.GoodsReceiptRepository
	SupplierInvoices trade.SupplierInvoiceRepository
	CashMovements    trade.CashMovementRepository
	Customers        trade.CustomerRepository
	Shifts           trade.ShiftRepository
	Suppliers        trade.SupplierRepository
	Settings         trade.SettingsRepository
	Batches          inventory.BatchRepository
	Stock            inventory.StockRepository
	Policies         inventory.PolicyRepository
	Numberer         trade.DocumentNumberer
}

// UnitOfWork runs a function inside one database transaction, handing it the
// transactional store set. An error rolls everything back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// Poster turns claimed outbox events into posted documents, stock movements
// and balanced journals, all inside a single transaction per event.
type Poster struct {
	uow    UnitOfWork
	logger *zap.Logger
}

// NewPoster creates a poster.
func NewPoster(uow UnitOfWork, logger *zap.Logger) *Poster {
	return &Poster{uow: uow, logger: logger}
}

// Post processes one claimed event and returns the resulting document ID.
// Replays of an already-posted event return the existing document. A non-nil
// error with a non-nil document ID means the document was committed but the
// event must still fail (a 3-way-match hold).
func (p *Poster) Post(ctx context.Context, ev *outbox.Event) (uuid.UUID, error) {
	now := time.Now().UTC()
	var docID uuid.UUID
	var held error

	err := p.uow.Do(ctx, func(ctx context.Context, s Stores) error {
		var err error
		switch ev.EventType {
		case outbox.EventSaleCompleted:
			docID, err = p.postSale(ctx, s, ev, now)
		case outbox.EventSaleReturned:
			docID, err = p.postReturn(ctx, s, ev, now)
		case outbox.EventPurchaseReceived:
			docID, err = p.postReceipt(ctx, s, ev, now)
		case outbox.EventPurchaseInvoice:
			docID, held, err = p.postPurchaseInvoice(ctx, s, ev, now)
		case outbox.EventCashMovement:
			docID, err = p.postCashMovement(ctx, s, ev)
		default:
			err = shared.NewValidationError("UNSUPPORTED_EVENT_TYPE",
				"unsupported event type: "+ev.EventType)
		}
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	if held != nil {
		p.logger.Warn("document committed but held",
			zap.String("event_id", ev.ID.String()),
			zap.String("document_id", docID.String()),
			zap.Error(held))
		return docID, held
	}
	return docID, nil
}

func (p *Poster) postSale(ctx context.Context, s Stores, ev *outbox.Event, now time.Time) (uuid.UUID, error) {
	if existing, err := s.Invoices.FindBySourceEvent(ctx, ev.TenantID, ev.ID); err != nil {
		return uuid.Nil, err
	} else if existing != nil {
		return existing.ID, nil
	}

	var payload SalePayload
	if err := decodePayload(ev.Payload, &payload); err != nil {
		return uuid.Nil, err
	}

	snap, err := p.saleSnapshot(ctx, s, ev, &payload)
	if err != nil {
		return uuid.Nil, err
	}
	res, err := BuildSale(ev.TenantID, ev.DeviceID, ev.ID, &payload, snap, now)
	if err != nil {
		return uuid.Nil, err
	}
	if err := p.assertPeriodOpen(ctx, s, ev.TenantID, res.Invoice.InvoiceDate); err != nil {
		return uuid.Nil, err
	}

	if err := s.Invoices.Save(ctx, res.Invoice); err != nil {
		return uuid.Nil, err
	}
	if len(res.Movements) > 0 {
		if err := s.Stock.SaveMovements(ctx, res.Movements...); err != nil {
			return uuid.Nil, err
		}
	}

	defaults, err := s.Accounts.Defaults(ctx, ev.TenantID)
	if err != nil {
		return uuid.Nil, err
	}
	j, err := JournalForSale(res, defaults)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.Journals.Save(ctx, j); err != nil {
		return uuid.Nil, err
	}

	if payload.WarehouseID != nil {
		if err := p.issueStock(ctx, s, ev.TenantID, *payload.WarehouseID, res.Invoice.Lines, snap.Items); err != nil {
			return uuid.Nil, err
		}
	}

	if res.Invoice.IsCreditSale() && snap.Customer != nil {
		snap.Customer.ExtendCredit(res.Invoice.CreditAmount)
		if err := s.Customers.UpdateCreditBalance(ctx, snap.Customer); err != nil {
			return uuid.Nil, err
		}
	}
	return res.Invoice.ID, nil
}

func (p *Poster) postReturn(ctx context.Context, s Stores, ev *outbox.Event, now time.Time) (uuid.UUID, error) {
	if existing, err := s.Returns.FindBySourceEvent(ctx, ev.TenantID, ev.ID); err != nil {
		return uuid.Nil, err
	} else if existing != nil {
		return existing.ID, nil
	}

	var payload ReturnPayload
	if err := decodePayload(ev.Payload, &payload); err != nil {
		return uuid.Nil, err
	}

	snap, err := p.returnSnapshot(ctx, s, ev, &payload)
	if err != nil {
		return uuid.Nil, err
	}
	res, err := BuildReturn(ev.TenantID, ev.DeviceID, ev.ID, &payload, snap, now)
	if err != nil {
		return uuid.Nil, err
	}
	if err := p.assertPeriodOpen(ctx, s, ev.TenantID, res.Return.ReturnDate); err != nil {
		return uuid.Nil, err
	}

	if err := s.Returns.Save(ctx, res.Return); err != nil {
		return uuid.Nil, err
	}
	if res.Refund != nil {
		if err := s.Returns.SaveRefund(ctx, res.Refund); err != nil {
			return uuid.Nil, err
		}
	}
	if len(res.Movements) > 0 {
		if err := s.Stock.SaveMovements(ctx, res.Movements...); err != nil {
			return uuid.Nil, err
		}
	}

	defaults, err := s.Accounts.Defaults(ctx, ev.TenantID)
	if err != nil {
		return uuid.Nil, err
	}
	j, err := JournalForReturn(res, defaults)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.Journals.Save(ctx, j); err != nil {
		return uuid.Nil, err
	}

	if payload.WarehouseID != nil {
		for _, line := range res.Return.Lines {
			layer, err := s.Stock.CostLayer(ctx, ev.TenantID, line.ItemID, *payload.WarehouseID)
			if err != nil {
				return uuid.Nil, err
			}
			layer = layer.Receive(line.Qty, line.UnitCost)
			if err := s.Stock.SaveCostLayer(ctx, ev.TenantID, line.ItemID, *payload.WarehouseID, layer); err != nil {
				return uuid.Nil, err
			}
		}
	}

	// A credit refund settles against the customer's AR balance.
	refundsCredit := res.Return.RefundMethod == "" || res.Return.RefundMethod == trade.PaymentMethodCredit
	if refundsCredit && snap.OriginalInvoice != nil && snap.OriginalInvoice.CustomerID != nil {
		customer, err := s.Customers.FindByID(ctx, ev.TenantID, *snap.OriginalInvoice.CustomerID)
		if err != nil {
			return uuid.Nil, err
		}
		if customer != nil {
			customer.ExtendCredit(res.Return.RefundAmount().Neg())
			if err := s.Customers.UpdateCreditBalance(ctx, customer); err != nil {
				return uuid.Nil, err
			}
		}
	}
	return res.Return.ID, nil
}

func (p *Poster) postReceipt(ctx context.Context, s Stores, ev *outbox.Event, now time.Time) (uuid.UUID, error) {
	if existing, err := s.Receipts.FindBySourceEvent(ctx, ev.TenantID, ev.ID); err != nil {
		return uuid.Nil, err
	} else if existing != nil {
		return existing.ID, nil
	}

	var payload ReceiptPayload
	if err := decodePayload(ev.Payload, &payload); err != nil {
		return uuid.Nil, err
	}

	snap, err := p.receiptSnapshot(ctx, s, ev, &payload)
	if err != nil {
		return uuid.Nil, err
	}
	res, err := BuildReceipt(ev.TenantID, ev.DeviceID, ev.ID, &payload, snap, now)
	if err != nil {
		return uuid.Nil, err
	}
	if err := p.assertPeriodOpen(ctx, s, ev.TenantID, res.Receipt.ReceiptDate); err != nil {
		return uuid.Nil, err
	}

	if err := p.resolveReceiptBatches(ctx, s, ev.TenantID, res); err != nil {
		return uuid.Nil, err
	}

	if err := s.Receipts.Save(ctx, res.Receipt); err != nil {
		return uuid.Nil, err
	}
	if err := s.Stock.SaveMovements(ctx, res.Movements...); err != nil {
		return uuid.Nil, err
	}

	defaults, err := s.Accounts.Defaults(ctx, ev.TenantID)
	if err != nil {
		return uuid.Nil, err
	}
	j, err := JournalForReceipt(res, defaults)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.Journals.Save(ctx, j); err != nil {
		return uuid.Nil, err
	}

	for _, line := range res.Receipt.Lines {
		layer, err := s.Stock.CostLayer(ctx, ev.TenantID, line.ItemID, res.Receipt.WarehouseID)
		if err != nil {
			return uuid.Nil, err
		}
		layer = layer.Receive(line.Qty, line.UnitCost)
		if err := s.Stock.SaveCostLayer(ctx, ev.TenantID, line.ItemID, res.Receipt.WarehouseID, layer); err != nil {
			return uuid.Nil, err
		}
	}
	return res.Receipt.ID, nil
}

func (p *Poster) postPurchaseInvoice(ctx context.Context, s Stores, ev *outbox.Event, now time.Time) (uuid.UUID, error, error) {
	if existing, err := s.SupplierInvoices.FindBySourceEvent(ctx, ev.TenantID, ev.ID); err != nil {
		return uuid.Nil, nil, err
	} else if existing != nil {
		return p.replaySupplierInvoice(ctx, s, ev, existing)
	}

	var payload PurchaseInvoicePayload
	if err := decodePayload(ev.Payload, &payload); err != nil {
		return uuid.Nil, nil, err
	}

	snap, err := p.purchaseInvoiceSnapshot(ctx, s, ev, &payload)
	if err != nil {
		return uuid.Nil, nil, err
	}
	res, err := BuildPurchaseInvoice(ev.TenantID, ev.DeviceID, ev.ID, &payload, snap, now)
	if err != nil {
		return uuid.Nil, nil, err
	}

	if res.Held != nil {
		// The held document commits; only the journal is withheld. The
		// period gate still applies, an invoice in a locked period must not
		// land even on hold.
		if err := p.assertPeriodOpen(ctx, s, ev.TenantID, res.Invoice.InvoiceDate); err != nil {
			return uuid.Nil, nil, err
		}
		if err := s.SupplierInvoices.Save(ctx, res.Invoice); err != nil {
			return uuid.Nil, nil, err
		}
		return res.Invoice.ID, res.Held, nil
	}

	if err := p.assertPeriodOpen(ctx, s, ev.TenantID, res.Invoice.InvoiceDate); err != nil {
		return uuid.Nil, nil, err
	}
	if err := s.SupplierInvoices.Save(ctx, res.Invoice); err != nil {
		return uuid.Nil, nil, err
	}

	defaults, err := s.Accounts.Defaults(ctx, ev.TenantID)
	if err != nil {
		return uuid.Nil, nil, err
	}
	j, err := JournalForSupplierInvoice(res.Invoice, defaults)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if err := s.Journals.Save(ctx, j); err != nil {
		return uuid.Nil, nil, err
	}
	return res.Invoice.ID, nil, nil
}

// replaySupplierInvoice settles an event whose invoice already committed. A
// still-held invoice fails the event again instead of posting it silently;
// once the hold is released the withheld journal is booked on the next run.
func (p *Poster) replaySupplierInvoice(ctx context.Context, s Stores, ev *outbox.Event, existing *trade.SupplierInvoice) (uuid.UUID, error, error) {
	if existing.OnHold {
		return existing.ID, shared.NewConflictError("MATCH_VARIANCE_HOLD",
			"supplier invoice "+existing.InvoiceNo+" is held: "+existing.HoldReason), nil
	}

	j, err := s.Journals.FindBySource(ctx, ev.TenantID, ledger.SourceSupplierInvoice, existing.ID)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if j != nil {
		return existing.ID, nil, nil
	}

	if err := p.assertPeriodOpen(ctx, s, ev.TenantID, existing.InvoiceDate); err != nil {
		return uuid.Nil, nil, err
	}
	defaults, err := s.Accounts.Defaults(ctx, ev.TenantID)
	if err != nil {
		return uuid.Nil, nil, err
	}
	journal, err := JournalForSupplierInvoice(existing, defaults)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if err := s.Journals.Save(ctx, journal); err != nil {
		return uuid.Nil, nil, err
	}
	return existing.ID, nil, nil
}

func (p *Poster) postCashMovement(ctx context.Context, s Stores, ev *outbox.Event) (uuid.UUID, error) {
	var payload CashMovementPayload
	if err := decodePayload(ev.Payload, &payload); err != nil {
		return uuid.Nil, err
	}

	var snap CashMovementSnapshot
	if payload.ShiftID == nil {
		shiftID, err := s.Shifts.OpenShiftID(ctx, ev.TenantID, ev.DeviceID)
		if err != nil {
			return uuid.Nil, err
		}
		snap.ShiftID = shiftID
	}

	m, err := BuildCashMovement(ev.TenantID, ev.DeviceID, ev.ID, &payload, snap)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.CashMovements.Save(ctx, m); err != nil {
		return uuid.Nil, err
	}
	return m.ID, nil
}

func (p *Poster) assertPeriodOpen(ctx context.Context, s Stores, tenantID uuid.UUID, date time.Time) error {
	locks, err := s.Periods.ActiveLocks(ctx, tenantID, date)
	if err != nil {
		return err
	}
	return ledger.AssertPeriodOpen(locks, date)
}

// issueStock reduces each item's moving-average position by the sold
// quantity. Issues never move the average itself.
func (p *Poster) issueStock(ctx context.Context, s Stores, tenantID, warehouseID uuid.UUID, lines []trade.InvoiceLine, items map[uuid.UUID]ItemRef) error {
	issued := map[uuid.UUID]trade.InvoiceLine{}
	for _, line := range lines {
		agg := issued[line.ItemID]
		agg.ItemID = line.ItemID
		agg.Qty = agg.Qty.Add(line.Qty)
		issued[line.ItemID] = agg
	}
	for itemID, agg := range issued {
		layer := items[itemID].CostLayer
		layer = layer.Issue(agg.Qty)
		if err := s.Stock.SaveCostLayer(ctx, tenantID, itemID, warehouseID, layer); err != nil {
			return err
		}
	}
	return nil
}

// resolveReceiptBatches creates or finds the batch row for each lot-bearing
// line and stamps it onto the line's movement.
func (p *Poster) resolveReceiptBatches(ctx context.Context, s Stores, tenantID uuid.UUID, res *ReceiptResult) error {
	byLine := map[uuid.UUID]*inventory.StockMovement{}
	for _, mv := range res.Movements {
		if mv.SourceLineID != nil {
			byLine[*mv.SourceLineID] = mv
		}
	}
	for i := range res.Receipt.Lines {
		line := &res.Receipt.Lines[i]
		if line.BatchNo == "" && line.ExpiryDate == nil {
			continue
		}
		batch, err := s.Batches.FindOrCreate(ctx, tenantID, line.ItemID, line.BatchNo, line.ExpiryDate)
		if err != nil {
			return err
		}
		if batch == nil {
			continue
		}
		if mv, ok := byLine[line.ID]; ok {
			id := batch.ID
			mv.BatchID = &id
		}
	}
	return nil
}

func (p *Poster) saleSnapshot(ctx context.Context, s Stores, ev *outbox.Event, payload *SalePayload) (SaleSnapshot, error) {
	snap := SaleSnapshot{Items: map[uuid.UUID]ItemRef{}}

	tenantPol, err := s.Policies.TenantPolicy(ctx, ev.TenantID)
	if err != nil {
		return snap, err
	}
	snap.TenantPolicy = tenantPol

	if payload.WarehouseID != nil {
		whPol, err := s.Policies.WarehousePolicy(ctx, ev.TenantID, *payload.WarehouseID)
		if err != nil {
			return snap, err
		}
		snap.WarehousePolicy = whPol
	}

	itemIDs := make([]uuid.UUID, 0, len(payload.Lines))
	for _, l := range payload.Lines {
		itemIDs = append(itemIDs, l.ItemID)
	}
	policies, err := s.Policies.ItemPolicies(ctx, ev.TenantID, itemIDs)
	if err != nil {
		return snap, err
	}

	for _, l := range payload.Lines {
		if _, done := snap.Items[l.ItemID]; done {
			continue
		}
		ref := ItemRef{Policy: policies[l.ItemID]}
		if payload.WarehouseID != nil {
			if ref.CostLayer, err = s.Stock.CostLayer(ctx, ev.TenantID, l.ItemID, *payload.WarehouseID); err != nil {
				return snap, err
			}
			if ref.Stocks, err = s.Stock.BatchStocks(ctx, ev.TenantID, l.ItemID, *payload.WarehouseID); err != nil {
				return snap, err
			}
			if l.BatchNo != "" || l.ExpiryDate != "" {
				batch, err := s.Batches.Find(ctx, ev.TenantID, l.ItemID, l.BatchNo, parseExpiry(l.ExpiryDate))
				if err != nil {
					return snap, err
				}
				if batch != nil {
					ref.NamedBatch = batch
					id := batch.ID
					if ref.NamedBatchOnHand, err = s.Stock.OnHand(ctx, ev.TenantID, l.ItemID, *payload.WarehouseID, &id); err != nil {
						return snap, err
					}
				}
			}
		}
		snap.Items[l.ItemID] = ref
	}

	if payload.CustomerID != nil {
		if snap.Customer, err = s.Customers.FindByID(ctx, ev.TenantID, *payload.CustomerID); err != nil {
			return snap, err
		}
	}
	if payload.InvoiceNo == "" {
		if snap.InvoiceNo, err = s.Numberer.Next(ctx, ev.TenantID, trade.DocTypeSalesInvoice); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

func (p *Poster) returnSnapshot(ctx context.Context, s Stores, ev *outbox.Event, payload *ReturnPayload) (ReturnSnapshot, error) {
	snap := ReturnSnapshot{Items: map[uuid.UUID]ItemRef{}}
	var err error

	if payload.InvoiceID != nil {
		if snap.OriginalInvoice, err = s.Invoices.FindByID(ctx, ev.TenantID, *payload.InvoiceID); err != nil {
			return snap, err
		}
		if snap.OriginalInvoice != nil {
			costs, err := s.Stock.SourceUnitCosts(ctx, ev.TenantID,
				string(ledger.SourceSalesInvoice), snap.OriginalInvoice.ID)
			if err != nil {
				return snap, err
			}
			snap.SaleCosts = costs

			returned, err := s.Returns.ReturnedQuantities(ctx, ev.TenantID, snap.OriginalInvoice.ID)
			if err != nil {
				return snap, err
			}
			snap.ReturnedQty = returned
		}
	}

	for _, l := range payload.Lines {
		if _, done := snap.Items[l.ItemID]; done {
			continue
		}
		ref := ItemRef{}
		if payload.WarehouseID != nil {
			if ref.CostLayer, err = s.Stock.CostLayer(ctx, ev.TenantID, l.ItemID, *payload.WarehouseID); err != nil {
				return snap, err
			}
			if l.BatchNo != "" || l.ExpiryDate != "" {
				batch, err := s.Batches.FindOrCreate(ctx, ev.TenantID, l.ItemID, l.BatchNo, parseExpiry(l.ExpiryDate))
				if err != nil {
					return snap, err
				}
				ref.NamedBatch = batch
			}
		}
		snap.Items[l.ItemID] = ref
	}

	if payload.ReturnNo == "" {
		if snap.ReturnNo, err = s.Numberer.Next(ctx, ev.TenantID, trade.DocTypeSalesReturn); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

func (p *Poster) receiptSnapshot(ctx context.Context, s Stores, ev *outbox.Event, payload *ReceiptPayload) (ReceiptSnapshot, error) {
	snap := ReceiptSnapshot{Items: map[uuid.UUID]ItemRef{}}

	tenantPol, err := s.Policies.TenantPolicy(ctx, ev.TenantID)
	if err != nil {
		return snap, err
	}
	snap.TenantPolicy = tenantPol

	if payload.WarehouseID != nil {
		if snap.WarehousePolicy, err = s.Policies.WarehousePolicy(ctx, ev.TenantID, *payload.WarehouseID); err != nil {
			return snap, err
		}
	}

	itemIDs := make([]uuid.UUID, 0, len(payload.Lines))
	for _, l := range payload.Lines {
		itemIDs = append(itemIDs, l.ItemID)
	}
	policies, err := s.Policies.ItemPolicies(ctx, ev.TenantID, itemIDs)
	if err != nil {
		return snap, err
	}
	for _, l := range payload.Lines {
		snap.Items[l.ItemID] = ItemRef{Policy: policies[l.ItemID]}
	}

	if payload.ReceiptNo == "" {
		if snap.ReceiptNo, err = s.Numberer.Next(ctx, ev.TenantID, trade.DocTypeGoodsReceipt); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

func (p *Poster) purchaseInvoiceSnapshot(ctx context.Context, s Stores, ev *outbox.Event, payload *PurchaseInvoicePayload) (PurchaseInvoiceSnapshot, error) {
	var snap PurchaseInvoiceSnapshot
	var err error

	if payload.ReceiptID != nil {
		if snap.Receipt, err = s.Receipts.FindByID(ctx, ev.TenantID, *payload.ReceiptID); err != nil {
			return snap, err
		}
	}

	supplierID := payload.SupplierID
	if supplierID == nil && snap.Receipt != nil {
		supplierID = snap.Receipt.SupplierID
	}
	if supplierID != nil {
		if snap.SupplierTermsDays, err = s.Suppliers.PaymentTermsDays(ctx, ev.TenantID, *supplierID); err != nil {
			return snap, err
		}
	}

	if snap.MatchThreshold, err = s.Settings.MatchVarianceThreshold(ctx, ev.TenantID); err != nil {
		return snap, err
	}

	if payload.InvoiceNo == "" {
		if snap.InvoiceNo, err = s.Numberer.Next(ctx, ev.TenantID, trade.DocTypeSupplierInvoice); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

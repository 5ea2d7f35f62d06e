package posting

import (
	"github.com/google/uuid"

	"github.com/ahtrading/backend/internal/domain/ledger"
	"github.com/ahtrading/backend/internal/domain/trade"
)

// Journal construction for each document kind. Every function returns a
// posted, balanced journal or an error; quantization residue within tolerance
// is absorbed into the rounding account.

func journalNo(docNo string) string {
	return "GL-" + docNo
}

// JournalForSale posts receipts and receivables against revenue, VAT and the
// cost of goods sold.
func JournalForSale(res *SaleResult, defaults ledger.AccountDefaults) (*ledger.Journal, error) {
	inv := res.Invoice
	j := ledger.NewJournal(inv.TenantID, journalNo(inv.InvoiceNo), ledger.SourceSalesInvoice,
		inv.ID, inv.InvoiceDate, inv.ExchangeRate, "POS sale "+inv.InvoiceNo)
	dev := inv.DeviceID
	j.DeviceID = &dev
	j.CashierID = inv.CashierID

	for _, p := range inv.SettledPayments() {
		acct, err := defaults.PaymentAccount(p.Method)
		if err != nil {
			return nil, err
		}
		j.AddDebit(acct, p.Applied, "Sales receipt", nil)
	}
	if inv.IsCreditSale() {
		ar, err := defaults.Account(ledger.RoleAR)
		if err != nil {
			return nil, err
		}
		j.AddDebit(ar, inv.CreditAmount, "Sales receivable", nil)
	}

	sales, err := defaults.Account(ledger.RoleSales)
	if err != nil {
		return nil, err
	}
	j.AddCredit(sales, inv.Subtotal, "Sales revenue", inv.WarehouseID)

	if inv.TaxTotal.IsPositiveEither() {
		vat, err := defaults.Account(ledger.RoleVATPayable)
		if err != nil {
			return nil, err
		}
		j.AddCredit(vat, inv.TaxTotal, "VAT payable", nil)
	}

	if res.CostOfGoods.IsPositiveEither() {
		cogs, err := defaults.Account(ledger.RoleCOGS)
		if err != nil {
			return nil, err
		}
		stock, err := defaults.Account(ledger.RoleInventory)
		if err != nil {
			return nil, err
		}
		j.AddDebit(cogs, res.CostOfGoods, "COGS", inv.WarehouseID)
		j.AddCredit(stock, res.CostOfGoods, "Inventory reduction", inv.WarehouseID)
	}

	return finalize(j, defaults)
}

// JournalForReturn reverses revenue and VAT, pays the refund out of the
// refund method's account (or reverses AR for credit refunds), books the
// restocking fee as income and restores inventory at cost.
func JournalForReturn(res *ReturnResult, defaults ledger.AccountDefaults) (*ledger.Journal, error) {
	ret := res.Return
	shortID := ret.ID.String()[:8]
	j := ledger.NewJournal(ret.TenantID, journalNo(ret.ReturnNo), ledger.SourceSalesReturn,
		ret.ID, ret.ReturnDate, ret.ExchangeRate, "POS return "+shortID)
	dev := ret.DeviceID
	j.DeviceID = &dev
	j.CashierID = ret.CashierID

	returns, err := defaults.Account(ledger.RoleSalesReturns)
	if err != nil {
		return nil, err
	}
	base := ret.Total.Sub(res.Tax)
	j.AddDebit(returns, base, "Sales returns", ret.WarehouseID)

	if res.Tax.IsPositiveEither() {
		vat, err := defaults.Account(ledger.RoleVATPayable)
		if err != nil {
			return nil, err
		}
		j.AddDebit(vat, res.Tax, "VAT reversal", nil)
	}

	refund := ret.RefundAmount()
	if refund.IsPositiveEither() {
		var acct uuid.UUID
		if ret.RefundMethod == "" || ret.RefundMethod == trade.PaymentMethodCredit {
			acct, err = defaults.Account(ledger.RoleAR)
		} else {
			acct, err = defaults.PaymentAccount(ret.RefundMethod)
		}
		if err != nil {
			return nil, err
		}
		j.AddCredit(acct, refund, "Customer refund", nil)
	}
	// Fee income is whatever of the total the refund did not consume, which
	// caps the fee at the return total per leg.
	if fee := ret.Total.Sub(refund); fee.IsPositiveEither() {
		fees, err := defaults.Account(ledger.RoleRestockFees)
		if err != nil {
			return nil, err
		}
		j.AddCredit(fees, fee, "Restocking fee", nil)
	}

	if res.CostOfGoods.IsPositiveEither() {
		stock, err := defaults.Account(ledger.RoleInventory)
		if err != nil {
			return nil, err
		}
		cogs, err := defaults.Account(ledger.RoleCOGS)
		if err != nil {
			return nil, err
		}
		j.AddDebit(stock, res.CostOfGoods, "Inventory restock", ret.WarehouseID)
		j.AddCredit(cogs, res.CostOfGoods, "COGS reversal", ret.WarehouseID)
	}

	return finalize(j, defaults)
}

// JournalForReceipt accrues received stock to GRNI until the supplier
// invoice clears it.
func JournalForReceipt(res *ReceiptResult, defaults ledger.AccountDefaults) (*ledger.Journal, error) {
	gr := res.Receipt
	j := ledger.NewJournal(gr.TenantID, journalNo(gr.ReceiptNo), ledger.SourceGoodsReceipt,
		gr.ID, gr.ReceiptDate, gr.ExchangeRate, "POS goods receipt "+gr.ReceiptNo)
	dev := gr.DeviceID
	j.DeviceID = &dev

	stock, err := defaults.Account(ledger.RoleInventory)
	if err != nil {
		return nil, err
	}
	grni, err := defaults.Account(ledger.RoleGRNI)
	if err != nil {
		return nil, err
	}
	wh := gr.WarehouseID
	j.AddDebit(stock, gr.Total, "Inventory received", &wh)
	j.AddCredit(grni, gr.Total, "Goods received not invoiced", nil)

	return finalize(j, defaults)
}

// JournalForSupplierInvoice clears GRNI, books recoverable VAT and credits
// accounts payable with the gross total. Immediate payments settle AP in the
// same journal.
func JournalForSupplierInvoice(inv *trade.SupplierInvoice, defaults ledger.AccountDefaults) (*ledger.Journal, error) {
	j := ledger.NewJournal(inv.TenantID, journalNo(inv.InvoiceNo), ledger.SourceSupplierInvoice,
		inv.ID, inv.InvoiceDate, inv.ExchangeRate, "POS supplier invoice "+inv.InvoiceNo)
	dev := inv.DeviceID
	j.DeviceID = &dev

	grni, err := defaults.Account(ledger.RoleGRNI)
	if err != nil {
		return nil, err
	}
	ap, err := defaults.Account(ledger.RoleAP)
	if err != nil {
		return nil, err
	}
	j.AddDebit(grni, inv.NetTotal, "GRNI clearing", nil)

	if inv.TaxTotal.IsPositiveEither() {
		vat, err := defaults.Account(ledger.RoleVATRecoverable)
		if err != nil {
			return nil, err
		}
		j.AddDebit(vat, inv.TaxTotal, "VAT recoverable", nil)
	}
	j.AddCredit(ap, inv.Total, "Supplier payable", nil)

	for _, p := range inv.Payments {
		acct, err := defaults.PaymentAccount(p.Method)
		if err != nil {
			return nil, err
		}
		j.AddDebit(ap, p.Amount, "Supplier payment", nil)
		j.AddCredit(acct, p.Amount, "Supplier payment", nil)
	}

	return finalize(j, defaults)
}

func finalize(j *ledger.Journal, defaults ledger.AccountDefaults) (*ledger.Journal, error) {
	rounding := defaults.Roles[ledger.RoleRounding]
	if err := j.AutoBalance(rounding); err != nil {
		return nil, err
	}
	if err := j.Post(); err != nil {
		return nil, err
	}
	return j, nil
}

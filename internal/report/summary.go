package report

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"reportpdf/internal/config"
	"reportpdf/internal/domain"
)

// ProjectDetails heads the customer payment summary.
type ProjectDetails struct {
	Code         Text `json:"code"`
	Name         Text `json:"name"`
	CustomerName Text `json:"customer_name"`
	Group        Text `json:"p_group"`
	SiteAddress  Text `json:"site_address"`
	CapacityKWp  Text `json:"project_kwp"`
}

// Credit is money received from the customer.
type Credit struct {
	CreditDate Text   `json:"CreditDate"`
	Mode       Text   `json:"mode"`
	Amount     Amount `json:"amount"`
}

// Debit is money paid out on the customer's behalf.
type Debit struct {
	Date     Text   `json:"date"`
	PONumber Text   `json:"po_number"`
	PaidFor  Text   `json:"paid_for"`
	PaidTo   Text   `json:"paid_to"`
	UTR      Text   `json:"utr"`
	Amount   Amount `json:"amount"`
}

// Adjustment corrects the ledger in either direction.
type Adjustment struct {
	Date         Text   `json:"date"`
	Reason       Text   `json:"reason"`
	PONumber     Text   `json:"po_number"`
	PaidFor      Text   `json:"paid_for"`
	Description  Text   `json:"description"`
	CreditAdjust Amount `json:"credit_adjust"`
	DebitAdjust  Amount `json:"debit_adjust"`
}

// Figures is a basic value, its GST and the total.
type Figures struct {
	Basic decimal.Decimal
	GST   decimal.Decimal
	Total decimal.Decimal
}

func (f Figures) add(o Figures) Figures {
	return Figures{Basic: f.Basic.Add(o.Basic), GST: f.GST.Add(o.GST), Total: f.Total.Add(o.Total)}
}

// resolveFigures derives a missing GST as total minus basic and a missing
// total as basic plus GST.
func resolveFigures(basic, gst, total decimal.Decimal) Figures {
	if gst.IsZero() && !total.IsZero() && !basic.IsZero() {
		gst = total.Sub(basic)
	}
	if total.IsZero() {
		total = basic.Add(gst)
	}
	return Figures{Basic: basic, GST: gst, Total: total}
}

// PurchaseEntry is one purchase order placed for the project. Its figures
// are read from several historical key spellings.
type PurchaseEntry struct {
	PONumber         Text
	Vendor           Text
	Item             Text
	PO               Figures
	Billed           Figures
	AdvancePaid      decimal.Decimal
	AdvanceRemaining decimal.Decimal
}

func (p *PurchaseEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*p = PurchaseEntry{}
		return nil
	}
	*p = PurchaseEntry{
		PONumber: pickText(raw, "po_number"),
		Vendor:   pickText(raw, "vendor"),
		Item:     pickText(raw, "item_name", "item"),
		PO: resolveFigures(
			pickAmount(raw, "po_basic", "poBasic", "basic", "po_value_basic").Decimal,
			pickAmount(raw, "po_gst", "poGst", "gst").Decimal,
			pickAmount(raw, "po_total", "poTotal", "total", "po_value").Decimal,
		),
		Billed: resolveFigures(
			pickAmount(raw, "billed_basic", "billedBasic", "total_billed_basic").Decimal,
			pickAmount(raw, "billed_gst", "billedGst", "total_billed_gst").Decimal,
			pickAmount(raw, "billed_total", "billedTotal", "total_billed_value").Decimal,
		),
		AdvancePaid:      pickAmount(raw, "Advance_paid", "advance_paid").Decimal,
		AdvanceRemaining: pickAmount(raw, "remain_amount", "advance_remaining").Decimal,
	}
	return nil
}

// SaleEntry is one sale invoiced to the customer.
type SaleEntry struct {
	PONumber    Text
	ConvertedAt Text
	Vendor      Text
	Item        Text
	BillBasic   decimal.Decimal
	Value       decimal.Decimal
	GST         decimal.Decimal
	Total       decimal.Decimal
}

func (s *SaleEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = SaleEntry{}
		return nil
	}
	value := pickAmount(raw, "value", "sales_basic").Decimal
	gst := pickAmount(raw, "gst_on_sales").Decimal
	total := pickAmount(raw, "total_sales_value", "total").Decimal
	if total.IsZero() {
		total = value.Add(gst)
	}
	if gst.IsZero() && !total.IsZero() && !value.IsZero() {
		gst = total.Sub(value)
	}
	*s = SaleEntry{
		PONumber:    pickText(raw, "po_number"),
		ConvertedAt: pickText(raw, "converted_at"),
		Vendor:      pickText(raw, "vendor"),
		Item:        pickText(raw, "item"),
		BillBasic:   pickAmount(raw, "bill_basic", "billBasic", "basic").Decimal,
		Value:       value,
		GST:         gst,
		Total:       total,
	}
	return nil
}

// BalanceInputs are the upstream balance figures.
type BalanceInputs struct {
	TotalReceived decimal.Decimal
	TotalReturn   decimal.Decimal
	NetBalance    decimal.Decimal
}

func (b *BalanceInputs) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*b = BalanceInputs{}
		return nil
	}
	*b = BalanceInputs{
		TotalReceived: pickAmount(raw, "total_received").Decimal,
		TotalReturn:   pickAmount(raw, "total_return").Decimal,
		NetBalance:    pickAmount(raw, "netBalance", "net_balance").Decimal,
	}
	return nil
}

// PaymentSummary is everything the customer payment summary prints. Every
// section is optional.
type PaymentSummary struct {
	Project     Ref[ProjectDetails] `json:"projectDetails"`
	Credits     []Credit            `json:"creditHistorys"`
	Debits      []Debit             `json:"DebitHistorys"`
	Purchases   []PurchaseEntry     `json:"purchaseHistorys"`
	Sales       []SaleEntry         `json:"saleHistorys"`
	Adjustments []Adjustment        `json:"AdjustmentHistorys"`
	Balance     BalanceInputs       `json:"balanceSummary"`
	ReportDate  Text                `json:"reportDate"`
}

// CustomerTotals are the column totals of every section.
type CustomerTotals struct {
	Credited         decimal.Decimal
	Debited          decimal.Decimal
	AdjustCredit     decimal.Decimal
	AdjustDebit      decimal.Decimal
	PO               Figures
	Billed           Figures
	AdvancePaid      decimal.Decimal
	AdvanceRemaining decimal.Decimal
	SalesBillBasic   decimal.Decimal
	SalesValue       decimal.Decimal
	SalesGST         decimal.Decimal
	SalesTotal       decimal.Decimal
}

// SummarizeCustomer folds every section of s into its totals.
func SummarizeCustomer(s PaymentSummary) CustomerTotals {
	t := CustomerTotals{}
	t = fold(s.Credits, t, func(t CustomerTotals, c Credit) CustomerTotals {
		t.Credited = t.Credited.Add(c.Amount.Decimal)
		return t
	})
	t = fold(s.Debits, t, func(t CustomerTotals, d Debit) CustomerTotals {
		t.Debited = t.Debited.Add(d.Amount.Decimal)
		return t
	})
	t = fold(s.Adjustments, t, func(t CustomerTotals, a Adjustment) CustomerTotals {
		t.AdjustCredit = t.AdjustCredit.Add(a.CreditAdjust.Decimal)
		t.AdjustDebit = t.AdjustDebit.Add(a.DebitAdjust.Decimal)
		return t
	})
	t = fold(s.Purchases, t, func(t CustomerTotals, p PurchaseEntry) CustomerTotals {
		t.PO = t.PO.add(p.PO)
		t.Billed = t.Billed.add(p.Billed)
		t.AdvancePaid = t.AdvancePaid.Add(p.AdvancePaid)
		t.AdvanceRemaining = t.AdvanceRemaining.Add(p.AdvanceRemaining)
		return t
	})
	return fold(s.Sales, t, func(t CustomerTotals, e SaleEntry) CustomerTotals {
		t.SalesBillBasic = t.SalesBillBasic.Add(e.BillBasic)
		t.SalesValue = t.SalesValue.Add(e.Value)
		t.SalesGST = t.SalesGST.Add(e.GST)
		t.SalesTotal = t.SalesTotal.Add(e.Total)
		return t
	})
}

// AdvancesLeft is what remains of the vendor advances once invoiced sales
// and received bills are set against them. Under the conditional rule the
// figure is only reported while bills are below the advances paid.
func AdvancesLeft(advances, invoiced, billed decimal.Decimal, rule string) decimal.Decimal {
	left := advances.Sub(invoiced).Sub(billed)
	if rule == config.AdvanceRuleFormula {
		return left
	}
	if billed.LessThan(advances) {
		return left
	}
	return decimal.Zero
}

// BalanceRow is one numbered line of the balance summary.
type BalanceRow struct {
	No    int
	Label string
	Value decimal.Decimal
	Class string
}

// BalanceSheet returns the nine balance rows. Rows 1 to 4 are the receipts
// section, 5 to 9 the billing section.
func BalanceSheet(s PaymentSummary, t CustomerTotals, rule string) []BalanceRow {
	invoiced := t.SalesTotal
	billed := t.Billed.Total
	left := AdvancesLeft(t.AdvancePaid, invoiced, billed, rule)
	adjustment := t.AdjustDebit.Sub(t.AdjustCredit)
	net := s.Balance.NetBalance

	return []BalanceRow{
		{No: 1, Label: "Total Received", Value: s.Balance.TotalReceived, Class: "highlight1"},
		{No: 2, Label: "Total Return", Value: s.Balance.TotalReturn, Class: "highlight1"},
		{No: 3, Label: "Net Balance [(1)-(2)]", Value: net, Class: "highlight2 strong"},
		{No: 4, Label: "Total Advances Paid to Vendors", Value: t.AdvancePaid},
		{No: 5, Label: "Invoice issued to customer", Value: invoiced},
		{No: 6, Label: "Bills received, yet to be invoiced to customer", Value: billed},
		{No: 7, Label: "Advances left after bills received [4-5-6]", Value: left},
		{No: 8, Label: "Adjustment (Debit-Credit)", Value: adjustment},
		{No: 9, Label: "Balance With Company [3 - 5 - 6 - 7 - 8]",
			Value: net.Sub(invoiced).Sub(billed).Sub(left).Sub(adjustment), Class: "highlight2 strong"},
	}
}

type creditRow struct{ Date, Mode, Amount string }

type debitRow struct{ Date, PONumber, PaidFor, PaidTo, UTR, Amount string }

type purchaseEntryRow struct {
	PONumber, Vendor, Item              string
	POBasic, POGST, POTotal             string
	AdvancePaid, AdvanceRemaining       string
	BilledBasic, BilledGST, BilledTotal string
}

type saleRow struct {
	PONumber, ConvertedAt, Vendor, Item string
	BillBasic, Value, GST, Total        string
}

type adjustmentRow struct {
	Date, Reason, PONumber, PaidFor, Description string
	Credit, Debit                                string
}

type balanceRowView struct {
	No           int
	Label, Value string
	Class        string
}

type summaryView struct {
	ReportDate  string
	Project     ProjectDetails
	Credits     []creditRow
	Debits      []debitRow
	Purchases   []purchaseEntryRow
	Sales       []saleRow
	Adjustments []adjustmentRow
	Totals      map[string]string
	Receipts    []balanceRowView
	Billing     []balanceRowView
}

// CustomerSummary composes the landscape customer payment summary.
func (b *Builder) CustomerSummary(s PaymentSummary) (domain.Document, error) {
	t := SummarizeCustomer(s)

	when := b.now()
	if rd, ok := ParseTime(string(s.ReportDate)); ok {
		when = rd
	}
	pd := s.Project.V
	v := summaryView{
		ReportDate: b.fmt.LongDate(when),
		Project: ProjectDetails{
			Code:         Text(pd.Code.Or(Dash)),
			Name:         Text(pd.Name.Or(Dash)),
			CustomerName: Text(pd.CustomerName.Or(Dash)),
			Group:        Text(pd.Group.Or(Dash)),
			SiteAddress:  Text(pd.SiteAddress.Or(Dash)),
			CapacityKWp:  Text(pd.CapacityKWp.Or(Dash)),
		},
		Totals: map[string]string{
			"credited":          INRCompact(t.Credited),
			"debited":           INRCompact(t.Debited),
			"po_basic":          INRCompact(t.PO.Basic),
			"po_gst":            INRCompact(t.PO.GST),
			"po_total":          INRCompact(t.PO.Total),
			"advance_paid":      INRCompact(t.AdvancePaid),
			"advance_remaining": INRCompact(t.AdvanceRemaining),
			"billed_basic":      INRCompact(t.Billed.Basic),
			"billed_gst":        INRCompact(t.Billed.GST),
			"billed_total":      INRCompact(t.Billed.Total),
			"sales_bill_basic":  INRCompact(t.SalesBillBasic),
			"sales_value":       INRCompact(t.SalesValue),
			"sales_gst":         INRCompact(t.SalesGST),
			"sales_total":       INRCompact(t.SalesTotal),
			"adjust_credit":     INRCompact(t.AdjustCredit),
			"adjust_debit":      INRCompact(t.AdjustDebit),
		},
	}
	for _, c := range s.Credits {
		v.Credits = append(v.Credits, creditRow{Date: string(c.CreditDate), Mode: string(c.Mode), Amount: INRCompact(c.Amount.Decimal)})
	}
	for _, d := range s.Debits {
		v.Debits = append(v.Debits, debitRow{
			Date: string(d.Date), PONumber: string(d.PONumber), PaidFor: string(d.PaidFor),
			PaidTo: string(d.PaidTo), UTR: string(d.UTR), Amount: INRCompact(d.Amount.Decimal),
		})
	}
	for _, p := range s.Purchases {
		v.Purchases = append(v.Purchases, purchaseEntryRow{
			PONumber:         string(p.PONumber),
			Vendor:           string(p.Vendor),
			Item:             p.Item.Or("N/A"),
			POBasic:          INRCompact(p.PO.Basic),
			POGST:            INRCompact(p.PO.GST),
			POTotal:          INRCompact(p.PO.Total),
			AdvancePaid:      INRCompact(p.AdvancePaid),
			AdvanceRemaining: INRCompact(p.AdvanceRemaining),
			BilledBasic:      INRCompact(p.Billed.Basic),
			BilledGST:        INRCompact(p.Billed.GST),
			BilledTotal:      INRCompact(p.Billed.Total),
		})
	}
	for _, e := range s.Sales {
		v.Sales = append(v.Sales, saleRow{
			PONumber: string(e.PONumber), ConvertedAt: string(e.ConvertedAt),
			Vendor: string(e.Vendor), Item: string(e.Item),
			BillBasic: INRCompact(e.BillBasic), Value: INRCompact(e.Value),
			GST: INRCompact(e.GST), Total: INRCompact(e.Total),
		})
	}
	for _, a := range s.Adjustments {
		v.Adjustments = append(v.Adjustments, adjustmentRow{
			Date: string(a.Date), Reason: string(a.Reason), PONumber: string(a.PONumber),
			PaidFor: string(a.PaidFor), Description: string(a.Description),
			Credit: INRCompact(a.CreditAdjust.Decimal), Debit: INRCompact(a.DebitAdjust.Decimal),
		})
	}
	for _, r := range BalanceSheet(s, t, b.advanceRule) {
		row := balanceRowView{No: r.No, Label: r.Label, Value: INRCompact(r.Value), Class: r.Class}
		if r.No <= 4 {
			v.Receipts = append(v.Receipts, row)
		} else {
			v.Billing = append(v.Billing, row)
		}
	}

	html, err := b.render("summary", page[summaryView]{Brand: b.brand, Title: "Customer Payment Summary", Body: v})
	if err != nil {
		return domain.Document{}, err
	}
	layout := b.layout(domain.Page{Format: "A4", Landscape: true})
	layout.PreferCSSPageSize = true
	layout.HeaderTemplate = `<div style="font-size:1px;"></div>`
	layout.FooterTemplate = b.copyrightFooter(footerCopyright)
	return domain.Document{HTML: html, Layout: layout}, nil
}

package report

import (
	"github.com/shopspring/decimal"

	"reportpdf/internal/domain"
)

// Payment is one debit made to a vendor.
type Payment struct {
	DebitDate    Text   `json:"debit_date"`
	PONumber     Text   `json:"po_number"`
	PaidTo       Text   `json:"paid_to"`
	PaidFor      Text   `json:"paid_for"`
	AmountPaid   Amount `json:"amount_paid"`
	UTR          Text   `json:"utr"`
	UTRSubmitted Text   `json:"utr_submited"`
}

// SummarizePayments sums paid amounts per payee in first-seen order.
func SummarizePayments(payments []Payment) GroupTotals {
	return sumBy(payments,
		func(p Payment) string { return p.PaidTo.Or("Others") },
		func(p Payment) decimal.Decimal { return p.AmountPaid.Decimal })
}

type paymentRow struct {
	DebitDate, PONumber, PaidTo, PaidFor, Amount, UTR, UTRSubmitted string
}

type historyView struct {
	Rows    []paymentRow
	Summary []amountRow
	Total   string
}

// PaymentHistory composes the payment history sheet for all of payments.
func (b *Builder) PaymentHistory(payments []Payment) (domain.Document, error) {
	totals := SummarizePayments(payments)

	v := historyView{Total: Fixed(totals.Total)}
	for _, p := range payments {
		v.Rows = append(v.Rows, paymentRow{
			DebitDate:    b.fmt.ShortDate(string(p.DebitDate), "NA"),
			PONumber:     p.PONumber.Or(Dash),
			PaidTo:       p.PaidTo.Or(Dash),
			PaidFor:      p.PaidFor.Or(Dash),
			Amount:       Fixed(p.AmountPaid.Decimal),
			UTR:          p.UTR.Or(Dash),
			UTRSubmitted: b.fmt.ShortDate(string(p.UTRSubmitted), "NA"),
		})
	}
	for _, g := range totals.Groups {
		v.Summary = append(v.Summary, amountRow{Label: g.Label, Requested: Fixed(g.Amount)})
	}

	html, err := b.render("history", page[historyView]{Brand: b.brand, Title: "Payment History Sheet", Body: v})
	if err != nil {
		return domain.Document{}, err
	}
	layout := b.layout(domain.Page{Format: "A4"})
	layout.FooterTemplate = b.copyrightFooter(footerCopyright)
	return domain.Document{HTML: html, Layout: layout}, nil
}

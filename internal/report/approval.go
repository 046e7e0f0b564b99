package report

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"reportpdf/internal/domain"
)

// GroupAmount is the summed amount of one label.
type GroupAmount struct {
	Label  string
	Amount decimal.Decimal
}

// GroupTotals is a labelled breakdown and its grand total.
type GroupTotals struct {
	Groups []GroupAmount
	Total  decimal.Decimal
}

// sumBy folds items into per-label sums in first-seen order.
func sumBy[T any](items []T, label func(T) string, amount func(T) decimal.Decimal) GroupTotals {
	return fold(items, GroupTotals{}, func(t GroupTotals, it T) GroupTotals {
		l, a := label(it), amount(it)
		i := slices.IndexFunc(t.Groups, func(g GroupAmount) bool { return g.Label == l })
		if i < 0 {
			t.Groups = append(t.Groups, GroupAmount{Label: l})
			i = len(t.Groups) - 1
		}
		t.Groups[i].Amount = t.Groups[i].Amount.Add(a)
		t.Total = t.Total.Add(a)
		return t
	})
}

// Approval is one payment awaiting approval.
type Approval struct {
	ProjectCode    Text   `json:"project_code"`
	ProjectName    Text   `json:"project_name"`
	GroupName      Text   `json:"group_name"`
	PayID          Text   `json:"pay_id"`
	PaidFor        Text   `json:"paid_for"`
	Vendor         Text   `json:"vendor"`
	PONumber       Text   `json:"po_number"`
	DebitDate      Text   `json:"dbt_date"`
	Comment        Text   `json:"comment"`
	AmtForCustomer Amount `json:"amt_for_customer"`
}

func (a Approval) debitTime() time.Time {
	t, _ := ParseTime(string(a.DebitDate))
	return t
}

// SummarizeApprovals sums requested amounts per paid_for category, largest
// first, with "Others" always last.
func SummarizeApprovals(pos []Approval) GroupTotals {
	t := sumBy(pos,
		func(a Approval) string { return a.PaidFor.Or("Others") },
		func(a Approval) decimal.Decimal { return a.AmtForCustomer.Decimal })
	slices.SortStableFunc(t.Groups, func(x, y GroupAmount) int {
		switch {
		case x.Label == y.Label:
			return 0
		case x.Label == "Others":
			return 1
		case y.Label == "Others":
			return -1
		}
		return y.Amount.Cmp(x.Amount)
	})
	return t
}

// SortApprovals returns pos ordered by debit date, undated first, then by
// project code and name.
func SortApprovals(pos []Approval) []Approval {
	out := slices.Clone(pos)
	slices.SortStableFunc(out, func(a, b Approval) int {
		if c := a.debitTime().Compare(b.debitTime()); c != 0 {
			return c
		}
		return cmp.Compare(
			strings.ToLower(string(a.ProjectCode)+string(a.ProjectName)),
			strings.ToLower(string(b.ProjectCode)+string(b.ProjectName)),
		)
	})
	return out
}

const emDash = "—"

type approvalRow struct {
	ProjectCode, ProjectName, Group   string
	PayID, Category, Vendor, PONumber string
	Date, Remark, Amount              string
}

type approvalView struct {
	ApprovalDate string
	Requested    string
	Rows         []approvalRow
	Summary      []amountRow
	Total        string
}

// Approval composes the payment approval sheet for all of pos.
func (b *Builder) Approval(pos []Approval) (domain.Document, error) {
	totals := SummarizeApprovals(pos)

	v := approvalView{
		ApprovalDate: b.fmt.MediumDate(b.now()),
		Requested:    INRCompact(totals.Total),
		Total:        INRCompact(totals.Total),
	}
	for _, a := range SortApprovals(pos) {
		v.Rows = append(v.Rows, approvalRow{
			ProjectCode: a.ProjectCode.Or(emDash),
			ProjectName: a.ProjectName.Or(emDash),
			Group:       a.GroupName.Or(emDash),
			PayID:       a.PayID.Or(emDash),
			Category:    a.PaidFor.Or(emDash),
			Vendor:      a.Vendor.Or(emDash),
			PONumber:    a.PONumber.Or("N/A"),
			Date:        b.fmt.ShortDate(string(a.DebitDate), "NA"),
			Remark:      a.Comment.Or(Dash),
			Amount:      INRCompact(a.AmtForCustomer.Decimal),
		})
	}
	for _, g := range totals.Groups {
		v.Summary = append(v.Summary, amountRow{Label: g.Label, Requested: INRCompact(g.Amount)})
	}

	html, err := b.render("approval", page[approvalView]{Brand: b.brand, Title: "Payment Approval Sheet", Body: v})
	if err != nil {
		return domain.Document{}, err
	}
	layout := b.layout(domain.Page{Format: "A4"})
	layout.HeaderTemplate = "<div></div>"
	layout.FooterTemplate = b.copyrightFooter(footerCopyright)
	return domain.Document{HTML: html, Layout: layout}, nil
}

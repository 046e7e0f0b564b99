package report

import (
	"html/template"
	"slices"

	"github.com/shopspring/decimal"

	"reportpdf/internal/domain"
)

// ProjectRef is the populated project of a line item.
type ProjectRef struct {
	Name Text `json:"name"`
	Code Text `json:"code"`
}

// ExpenseItem is one claimed expense.
type ExpenseItem struct {
	Category       Text   `json:"category"`
	Description    Text   `json:"description"`
	ExpenseDate    Text   `json:"expense_date"`
	ApprovedAmount Amount `json:"approved_amount"`
	Invoice        Ref[struct {
		InvoiceAmount Amount `json:"invoice_amount"`
	}] `json:"invoice"`
	Project Ref[ProjectRef] `json:"project_id"`
}

// Requested is the invoiced amount of the item.
func (it ExpenseItem) Requested() decimal.Decimal {
	return it.Invoice.V.InvoiceAmount.Decimal
}

// ExpenseSheet is one employee's expense claim.
type ExpenseSheet struct {
	ExpenseCode   Text `json:"expense_code"`
	EmpName       Text `json:"emp_name"`
	EmpID         Text `json:"emp_id"`
	CurrentStatus Text `json:"current_status"`
	User          Ref[struct {
		Department Text `json:"department"`
		Phone      Text `json:"phone"`
	}] `json:"user_id"`
	Term Ref[struct {
		From Text `json:"from"`
		To   Text `json:"to"`
	}] `json:"expense_term"`
	Items           []ExpenseItem `json:"items"`
	AttachmentLinks []Text        `json:"attachmentLinks"`
}

// Validate rejects sheets that cannot be identified.
func (s ExpenseSheet) Validate(index int) error {
	if s.ExpenseCode.Or("") == "" {
		return domain.Validationf("sheet %d: missing expense_code", index)
	}
	return nil
}

// Links returns the non-blank attachment URLs.
func (s ExpenseSheet) Links() []string {
	out := make([]string, 0, len(s.AttachmentLinks))
	for _, l := range s.AttachmentLinks {
		if v := l.Or(""); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// CategoryTotal is the requested and approved sum of one category.
type CategoryTotal struct {
	Category  string
	Requested decimal.Decimal
	Approved  decimal.Decimal
}

// ExpenseTotals groups a sheet's items by category in first-seen order.
type ExpenseTotals struct {
	Categories []CategoryTotal
	Requested  decimal.Decimal
	Approved   decimal.Decimal
}

// SummarizeExpenses folds items into per-category and overall totals.
// Items without a category count as "Others".
func SummarizeExpenses(items []ExpenseItem) ExpenseTotals {
	return fold(items, ExpenseTotals{}, func(t ExpenseTotals, it ExpenseItem) ExpenseTotals {
		cat := it.Category.Or("Others")
		i := slices.IndexFunc(t.Categories, func(c CategoryTotal) bool { return c.Category == cat })
		if i < 0 {
			t.Categories = append(t.Categories, CategoryTotal{Category: cat})
			i = len(t.Categories) - 1
		}
		t.Categories[i].Requested = t.Categories[i].Requested.Add(it.Requested())
		t.Categories[i].Approved = t.Categories[i].Approved.Add(it.ApprovedAmount.Decimal)
		t.Requested = t.Requested.Add(it.Requested())
		t.Approved = t.Approved.Add(it.ApprovedAmount.Decimal)
		return t
	})
}

// ExpenseOptions are the per-request settings of an expense sheet.
type ExpenseOptions struct {
	Page domain.Page
	// Attachments are already fetched images, printed after the summary.
	Attachments []template.URL
}

type expenseRow struct {
	ProjectCode, ProjectName, Category, Description, Date, Requested, Approved string
}

type amountRow struct {
	Label     string
	Requested string
	Approved  string
}

type expenseView struct {
	Code, EmpName, EmpID, Department, Phone, Status string
	From, To                                        string
	Items                                           []expenseRow
	Summary                                         []amountRow
	Total                                           amountRow
	Attachments                                     []template.URL
}

// Expense composes one expense sheet.
func (b *Builder) Expense(s ExpenseSheet, opts ExpenseOptions) (domain.Document, error) {
	totals := SummarizeExpenses(s.Items)

	v := expenseView{
		Code:        s.ExpenseCode.Or(Dash),
		EmpName:     s.EmpName.Or(Dash),
		EmpID:       s.EmpID.Or(Dash),
		Department:  s.User.V.Department.Or(Dash),
		Phone:       s.User.V.Phone.Or(Dash),
		Status:      s.CurrentStatus.Or(Dash),
		From:        b.fmt.ShortDate(string(s.Term.V.From), Dash),
		To:          b.fmt.ShortDate(string(s.Term.V.To), Dash),
		Attachments: opts.Attachments,
		Total: amountRow{
			Label:     "Total",
			Requested: Fixed(totals.Requested),
			Approved:  Fixed(totals.Approved),
		},
	}
	for _, it := range s.Items {
		v.Items = append(v.Items, expenseRow{
			ProjectCode: it.Project.V.Code.Or(""),
			ProjectName: it.Project.V.Name.Or(""),
			Category:    it.Category.Or(Dash),
			Description: it.Description.Or(Dash),
			Date:        b.fmt.ShortDate(string(it.ExpenseDate), Dash),
			Requested:   FixedOrDash(it.Requested()),
			Approved:    FixedOrDash(it.ApprovedAmount.Decimal),
		})
	}
	for _, c := range totals.Categories {
		v.Summary = append(v.Summary, amountRow{Label: c.Category, Requested: Fixed(c.Requested), Approved: Fixed(c.Approved)})
	}

	html, err := b.render("expense", page[expenseView]{Brand: b.brand, Title: "Expense Sheet", Body: v})
	if err != nil {
		return domain.Document{}, err
	}
	layout := b.layout(opts.Page)
	layout.Margins = domain.MarginsPX(10)
	return domain.Document{HTML: html, Layout: layout}, nil
}

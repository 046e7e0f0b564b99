package report

import (
	"encoding/json"
	"errors"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportpdf/internal/config"
	"reportpdf/internal/domain"
)

var fixedNow = time.Date(2024, 2, 5, 6, 30, 0, 0, time.UTC)

func newBuilder(t *testing.T, mutate ...func(*config.Config)) *Builder {
	t.Helper()
	cfg := config.Default()
	cfg.Branding.CompanyName = "Acme Power Pvt Ltd"
	cfg.Branding.Address = []string{"Plot 7, Sector 5", "Noida 201301"}
	cfg.Branding.Email = "info@acme.test"
	cfg.Branding.Website = "https://acme.test/"
	cfg.Branding.Watermark = "Acme Power"
	for _, m := range mutate {
		m(&cfg)
	}
	b, err := NewBuilder(cfg)
	require.NoError(t, err)
	return b.WithClock(func() time.Time { return fixedNow })
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decode[T any](t *testing.T, raw string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestSummarizeExpensesGroupsInFirstSeenOrder(t *testing.T) {
	items := decode[[]ExpenseItem](t, `[
		{"category":"Travel","approved_amount":100,"invoice":{"invoice_amount":"120"}},
		{"approved_amount":"50.5","invoice":{"invoice_amount":60}},
		{"category":"Food","approved_amount":20},
		{"category":"Travel","approved_amount":"1,000","invoice":{"invoice_amount":1000}}
	]`)

	got := SummarizeExpenses(items)
	require.Len(t, got.Categories, 3)
	assert.Equal(t, "Travel", got.Categories[0].Category)
	assert.Equal(t, "Others", got.Categories[1].Category)
	assert.Equal(t, "Food", got.Categories[2].Category)
	assert.True(t, got.Categories[0].Approved.Equal(dec("1100")))
	assert.True(t, got.Categories[0].Requested.Equal(dec("1120")))
	assert.True(t, got.Approved.Equal(dec("1170.5")))
	assert.True(t, got.Requested.Equal(dec("1180")))

	// The input is left untouched and a second fold agrees.
	again := SummarizeExpenses(items)
	assert.Equal(t, Fixed(got.Approved), Fixed(again.Approved))
}

func TestExpenseValidate(t *testing.T) {
	ok := decode[ExpenseSheet](t, `{"expense_code":"EXP-1"}`)
	assert.NoError(t, ok.Validate(0))

	missing := decode[ExpenseSheet](t, `{"emp_name":"A"}`)
	err := missing.Validate(2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Contains(t, err.Error(), "sheet 2")
}

func TestExpenseRendersFallbacksForMissingNestedFields(t *testing.T) {
	b := newBuilder(t)
	sheet := decode[ExpenseSheet](t, `{
		"expense_code":"EXP-9",
		"user_id":"65f0c0ffee",
		"items":[{"category":"Travel","description":"","approved_amount":0}]
	}`)

	doc, err := b.Expense(sheet, ExpenseOptions{})
	require.NoError(t, err)
	assert.Contains(t, doc.HTML, "EXP-9")
	assert.Contains(t, doc.HTML, "<strong>Department:</strong> -")
	assert.Contains(t, doc.HTML, "<strong>Mobile Number:</strong> -")
	assert.Contains(t, doc.HTML, "From: -")
	assert.Contains(t, doc.HTML, `<div class="watermark">Acme Power</div>`)
	assert.NotContains(t, doc.HTML, "Attachments")

	assert.InDelta(t, 8.27, doc.Layout.Paper.Width, 0.001)
	assert.InDelta(t, 10.0/96, doc.Layout.Margins.Top, 0.0001)
	assert.True(t, doc.Layout.PrintBackground)
}

func TestExpenseEscapesAndEmbedsAttachments(t *testing.T) {
	b := newBuilder(t)
	sheet := decode[ExpenseSheet](t, `{
		"expense_code":"EXP-1","emp_name":"<b>Ravi</b>",
		"expense_term":{"from":"2024-01-01T00:00:00Z","to":"2024-01-31T00:00:00Z"},
		"items":[{"category":"Food","expense_date":"2024-01-10","approved_amount":250,"invoice":{"invoice_amount":300},"project_id":{"code":"P-1","name":"Solar Park"}}]
	}`)
	img := DataURI([]byte("\x89PNG\r\n\x1a\n0000"), "")

	doc, err := b.Expense(sheet, ExpenseOptions{
		Page:        b.Page(domain.PageOptions{Format: "letter", Landscape: true}),
		Attachments: []template.URL{img},
	})
	require.NoError(t, err)
	assert.Contains(t, doc.HTML, "&lt;b&gt;Ravi&lt;/b&gt;")
	assert.Contains(t, doc.HTML, "From: 1/1/2024")
	assert.Contains(t, doc.HTML, "<td>250.00</td>")
	assert.Contains(t, doc.HTML, "Solar Park")
	assert.Contains(t, doc.HTML, `src="data:image/png;base64,`)
	assert.True(t, doc.Layout.Landscape)
	assert.InDelta(t, 8.5, doc.Layout.Paper.Width, 0.001)
}

func TestColumnRequestDecoding(t *testing.T) {
	cols := decode[[]ColumnRequest](t, `["po_number", {"key":" etd ","label":"Dispatch"}, 7, {"label":"x"}]`)
	require.Len(t, cols, 4)
	assert.Equal(t, ColumnRequest{Key: "po_number"}, cols[0])
	assert.Equal(t, ColumnRequest{Key: " etd ", Label: "Dispatch"}, cols[1])
	assert.Equal(t, ColumnRequest{}, cols[2])
	assert.Equal(t, ColumnRequest{Label: "x"}, cols[3])
}

func TestResolveColumns(t *testing.T) {
	keys := func(cols []Column) []string {
		out := make([]string, len(cols))
		for i, c := range cols {
			out[i] = c.Key
		}
		return out
	}

	assert.Equal(t, DefaultScopeColumns, keys(ResolveColumns(nil)))

	got := ResolveColumns([]ColumnRequest{{Key: "uom"}, {Key: " etd ", Label: "Dispatch"}, {Key: "uom"}, {Key: "bogus"}})
	assert.Equal(t, []string{"uom", "etd"}, keys(got))
	assert.Equal(t, "UoM", got[0].Label)
	assert.Equal(t, "Dispatch", got[1].Label)

	fallback := ResolveColumns([]ColumnRequest{{Key: "bogus"}, {}})
	assert.Equal(t, []string{"po_number"}, keys(fallback))
	assert.Equal(t, "PO Number", fallback[0].Label)
}

func TestScopeRowsAndFallbacks(t *testing.T) {
	b := newBuilder(t)
	scope := decode[Scope](t, `{
		"project":{"name":"sunrise HT plant","code":"SR-01"},
		"project_status":"to_be_started",
		"createdAt":"2024-03-05T00:00:00Z",
		"rows":[
			{"sr_no":"A","name":"module mounting","po_number":"","po_status":"po_created","etd":"soon"},
			{"name":"bolts","_isChild":true,"po_number":"PO-7"},
			{"name":"cables","quantity":12,"uom":"m"}
		]
	}`)

	doc, err := b.Scope(scope, ScopeOptions{Columns: ResolveColumns([]ColumnRequest{{Key: "po_number"}, {Key: "po_status"}, {Key: "etd"}, {Key: "quantity"}})})
	require.NoError(t, err)
	html := doc.HTML

	assert.Contains(t, html, "Sunrise HT Plant")
	assert.Contains(t, html, "To Be Started")
	assert.Contains(t, html, "05-03-2024")
	assert.Contains(t, html, "<td>PO Created</td>")
	assert.Contains(t, html, "<td>soon</td>")
	assert.Contains(t, html, `<tr class="child-row">`)
	assert.Contains(t, html, `<td class="sno">A</td>`)
	assert.Contains(t, html, `<td class="sno"></td>`)
	assert.Contains(t, html, `<td class="sno">3</td>`)
	assert.Contains(t, html, "<td>12</td>")
	// createdBy and handover are absent.
	assert.Contains(t, html, `<td class="label">Created By:</td><td>-</td>`)
	assert.Contains(t, html, `<td class="label">CAM Person Name:</td><td>-</td>`)

	assert.True(t, doc.Layout.PreferCSSPageSize)
	assert.InDelta(t, 10/25.4, doc.Layout.Margins.Top, 0.0001)
	assert.InDelta(t, 5/25.4, doc.Layout.Margins.Left, 0.0001)
}

func TestScopeUsesDefaultColumnsWhenNoneGiven(t *testing.T) {
	b := newBuilder(t)
	doc, err := b.Scope(Scope{}, ScopeOptions{})
	require.NoError(t, err)
	for _, label := range []string{"Scope", "Commitment Date", "PO Number", "PO Status", "PO Date", "ETD", "Delivered Date"} {
		assert.Contains(t, doc.HTML, "<th>"+label+"</th>")
	}
}

func TestSummarizePurchase(t *testing.T) {
	lines := decode[[]PurchaseLine](t, `[
		{"amount":1000,"taxes":18},
		{"amount":"250.50","taxes":"5"},
		{"amount":"n/a","taxes":12}
	]`)
	got := SummarizePurchase(lines)
	assert.Equal(t, "1250.50", Fixed(got.Untaxed))
	assert.Equal(t, "192.53", Fixed(got.Tax))
	assert.Equal(t, "1443.03", Fixed(got.Total))
}

func TestPurchaseOrderDateAndFooter(t *testing.T) {
	b := newBuilder(t)

	withDate := decode[PurchaseOrder](t, `{"orderNumber":"PO/24/001","vendorName":"Volt Traders","Date":"2024-03-01T10:00:00Z",
		"Purchase":[{"product":"Inverter","amount":100000,"taxes":18,"unit_price":100000,"quantity":1}]}`)
	doc, err := b.PurchaseOrder(withDate, domain.Page{Format: "A4"})
	require.NoError(t, err)
	assert.Contains(t, doc.HTML, "#PO/24/001")
	assert.Contains(t, doc.HTML, "01/03/2024 15:30:00")
	assert.Contains(t, doc.HTML, "₹1,18,000.00")
	assert.Contains(t, doc.HTML, "<td>NA</td>")
	assert.Contains(t, doc.Layout.FooterTemplate, "does not require signature")
	assert.True(t, doc.Layout.DisplayHeaderFooter())

	noDate := decode[PurchaseOrder](t, `{"Purchase":[]}`)
	doc, err = b.PurchaseOrder(noDate, domain.Page{})
	require.NoError(t, err)
	assert.Contains(t, doc.HTML, "05/02/2024 12:00:00")
	assert.Contains(t, doc.HTML, "#-")
}

func TestSummarizeApprovalsOrdersOthersLast(t *testing.T) {
	pos := decode[[]Approval](t, `[
		{"paid_for":"Civil","amt_for_customer":100},
		{"amt_for_customer":5000},
		{"paid_for":"Modules","amt_for_customer":"2500"},
		{"paid_for":"Civil","amt_for_customer":50}
	]`)
	got := SummarizeApprovals(pos)
	require.Len(t, got.Groups, 3)
	assert.Equal(t, "Modules", got.Groups[0].Label)
	assert.Equal(t, "Civil", got.Groups[1].Label)
	assert.Equal(t, "Others", got.Groups[2].Label)
	assert.True(t, got.Total.Equal(dec("7650")))
}

func TestSortApprovals(t *testing.T) {
	pos := decode[[]Approval](t, `[
		{"project_code":"B","dbt_date":"2024-02-01"},
		{"project_code":"b","project_name":"a","dbt_date":"2024-01-01"},
		{"project_code":"A","dbt_date":"2024-01-01"},
		{"project_code":"Z"}
	]`)
	sorted := SortApprovals(pos)
	got := make([]string, len(sorted))
	for i, p := range sorted {
		got[i] = string(p.ProjectCode)
	}
	assert.Equal(t, []string{"Z", "A", "b", "B"}, got)
	assert.Equal(t, Text("B"), pos[0].ProjectCode, "input must not be reordered")
}

func TestApprovalSheet(t *testing.T) {
	b := newBuilder(t)
	doc, err := b.Approval(decode[[]Approval](t, `[{"amt_for_customer":123456}]`))
	require.NoError(t, err)
	assert.Contains(t, doc.HTML, "Approval Date: <strong>05 Feb 2024</strong>")
	assert.Contains(t, doc.HTML, "₹ 1,23,456")
	assert.Contains(t, doc.HTML, "PO: N/A")
	assert.Contains(t, doc.HTML, "Project ID: —")
	assert.Contains(t, doc.HTML, "<td>NA</td>")
	assert.Contains(t, doc.HTML, "Acme Power Pvt Ltd")
	assert.Contains(t, doc.Layout.FooterTemplate, "&copy; Acme Power Pvt Ltd")

	empty, err := b.Approval(nil)
	require.NoError(t, err)
	assert.Contains(t, empty.HTML, "No records found.")
}

func TestPaymentHistory(t *testing.T) {
	payments := decode[[]Payment](t, `[
		{"paid_to":"Volt","amount_paid":100,"debit_date":"2024-01-05T00:00:00Z"},
		{"amount_paid":"20"},
		{"paid_to":"Volt","amount_paid":1.5}
	]`)
	got := SummarizePayments(payments)
	require.Len(t, got.Groups, 2)
	assert.Equal(t, "Volt", got.Groups[0].Label)
	assert.Equal(t, "101.50", Fixed(got.Groups[0].Amount))
	assert.Equal(t, "Others", got.Groups[1].Label)

	doc, err := newBuilder(t).PaymentHistory(payments)
	require.NoError(t, err)
	assert.Contains(t, doc.HTML, "<td>5/1/2024</td>")
	assert.Contains(t, doc.HTML, "<td>NA</td>")
	assert.Contains(t, doc.HTML, "121.50")
}

func TestScheduleEscapesCellsAndIsLandscape(t *testing.T) {
	b := newBuilder(t)
	s := decode[Schedule](t, `{"project_code":"P-9","customer":"<x>","data":[{"sno":1,"activity":"Piling & <b>","duration":5,"pred":"1FS+2"}]}`)
	doc, err := b.Schedule(s)
	require.NoError(t, err)
	assert.Contains(t, doc.HTML, "Piling &amp; &lt;b&gt;")
	assert.Contains(t, doc.HTML, "&lt;x&gt;")
	assert.Contains(t, doc.HTML, "1FS&#43;2")
	assert.Contains(t, doc.HTML, "Generated: 05 Feb 2024")
	assert.True(t, doc.Layout.Landscape)
	w, h := doc.Layout.Dimensions()
	assert.Greater(t, w, h)
}

const summaryPayload = `{
	"projectDetails":{"code":"CP-1","name":"Hill Top"},
	"creditHistorys":[{"CreditDate":"01-01-2024","mode":"NEFT","amount":500000}],
	"DebitHistorys":[{"amount":"100000"},{"amount":50000}],
	"purchaseHistorys":[
		{"po_number":"PO-1","poBasic":100000,"po_value":118000,"advance_paid":80000,"remain_amount":20000,
		 "total_billed_basic":40000,"total_billed_value":47200},
		{"po_number":"PO-2","basic":"50,000","gst":9000,"Advance_paid":"20000","billed_basic":0}
	],
	"saleHistorys":[{"bill_basic":30000,"sales_basic":30000,"total":35400}],
	"AdjustmentHistorys":[{"credit_adjust":1000,"debit_adjust":5000}],
	"balanceSummary":{"total_received":500000,"total_return":0,"net_balance":"500000"}
}`

func TestPaymentSummaryAliasesAndTotals(t *testing.T) {
	s := decode[PaymentSummary](t, summaryPayload)
	require.Len(t, s.Purchases, 2)

	p1 := s.Purchases[0]
	assert.Equal(t, "18000.00", Fixed(p1.PO.GST), "gst derived from total minus basic")
	assert.Equal(t, "7200.00", Fixed(p1.Billed.GST))
	p2 := s.Purchases[1]
	assert.Equal(t, "59000.00", Fixed(p2.PO.Total), "total derived from basic plus gst")
	assert.Equal(t, "N/A", p2.Item.Or("N/A"))

	require.Len(t, s.Sales, 1)
	assert.Equal(t, "5400.00", Fixed(s.Sales[0].GST))

	tot := SummarizeCustomer(s)
	assert.Equal(t, "500000.00", Fixed(tot.Credited))
	assert.Equal(t, "150000.00", Fixed(tot.Debited))
	assert.Equal(t, "100000.00", Fixed(tot.AdvancePaid))
	assert.Equal(t, "47200.00", Fixed(tot.Billed.Total))
	assert.Equal(t, "35400.00", Fixed(tot.SalesTotal))
	assert.Equal(t, "177000.00", Fixed(tot.PO.Total))
}

func TestAdvancesLeftRules(t *testing.T) {
	adv, inv, billed := dec("100000"), dec("35400"), dec("47200")
	assert.Equal(t, "17400.00", Fixed(AdvancesLeft(adv, inv, billed, config.AdvanceRuleConditional)))
	assert.Equal(t, "17400.00", Fixed(AdvancesLeft(adv, inv, billed, config.AdvanceRuleFormula)))

	// Bills exceed advances: the conditional rule reports nothing left.
	bigBills := dec("120000")
	assert.True(t, AdvancesLeft(adv, inv, bigBills, config.AdvanceRuleConditional).IsZero())
	assert.Equal(t, "-55400.00", Fixed(AdvancesLeft(adv, inv, bigBills, config.AdvanceRuleFormula)))
}

func TestBalanceSheet(t *testing.T) {
	s := decode[PaymentSummary](t, summaryPayload)
	rows := BalanceSheet(s, SummarizeCustomer(s), config.AdvanceRuleConditional)
	require.Len(t, rows, 9)
	for i, r := range rows {
		assert.Equal(t, i+1, r.No)
	}
	assert.Equal(t, "500000.00", Fixed(rows[2].Value))
	assert.Equal(t, "17400.00", Fixed(rows[6].Value))
	assert.Equal(t, "4000.00", Fixed(rows[7].Value))
	// 500000 - 35400 - 47200 - 17400 - 4000
	assert.Equal(t, "396000.00", Fixed(rows[8].Value))
}

func TestCustomerSummaryDocument(t *testing.T) {
	b := newBuilder(t, func(c *config.Config) { c.Reports.AdvanceBalanceRule = config.AdvanceRuleFormula })
	s := decode[PaymentSummary](t, summaryPayload)
	doc, err := b.CustomerSummary(s)
	require.NoError(t, err)

	assert.Contains(t, doc.HTML, "Monday, 5 February 2024")
	assert.Contains(t, doc.HTML, "Hill Top")
	assert.Contains(t, doc.HTML, `<p class="label">Client Name</p><p class="value">-</p>`)
	assert.Contains(t, doc.HTML, "₹ 5,00,000")
	assert.Contains(t, doc.HTML, "Billing Details")
	assert.True(t, doc.Layout.Landscape)

	empty, err := b.CustomerSummary(PaymentSummary{})
	require.NoError(t, err)
	assert.Equal(t, 9, strings.Count(empty.HTML, `<td class="sno">`))
}

func TestNewBuilderLoadsLogo(t *testing.T) {
	dir := t.TempDir()
	logo := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(logo, []byte("\x89PNG\r\n\x1a\n....."), 0o600))

	b := newBuilder(t, func(c *config.Config) { c.Branding.LogoPath = logo })
	doc, err := b.PaymentHistory(nil)
	require.NoError(t, err)
	assert.Contains(t, doc.HTML, `<img src="data:image/png;base64,`)

	cfg := config.Default()
	cfg.Branding.LogoPath = filepath.Join(dir, "missing.png")
	_, err = NewBuilder(cfg)
	assert.Error(t, err)
}

func TestDataURI(t *testing.T) {
	assert.Equal(t, "data:text/plain;base64,aGk=", string(DataURI([]byte("hi"), "")))
	assert.Equal(t, "data:image/jpeg;base64,aGk=", string(DataURI([]byte("hi"), "image/jpeg; charset=binary")))
}

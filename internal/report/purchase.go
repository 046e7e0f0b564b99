package report

import (
	"github.com/shopspring/decimal"

	"reportpdf/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// PurchaseLine is one ordered product.
type PurchaseLine struct {
	Category    Text   `json:"category"`
	Product     Text   `json:"product"`
	Description Text   `json:"description"`
	Make        Text   `json:"make"`
	Quantity    Text   `json:"quantity"`
	UnitPrice   Amount `json:"unit_price"`
	Taxes       Amount `json:"taxes"`
	Amount      Amount `json:"amount"`
}

// Tax is the line's tax, its amount times the tax percentage.
func (l PurchaseLine) Tax() decimal.Decimal {
	return l.Amount.Mul(l.Taxes.Decimal).Div(hundred)
}

// PurchaseOrder is one order to a vendor.
type PurchaseOrder struct {
	OrderNumber Text           `json:"orderNumber"`
	VendorName  Text           `json:"vendorName"`
	Date        Text           `json:"Date"`
	ProjectID   Text           `json:"project_id"`
	Message     Text           `json:"message"`
	Purchase    []PurchaseLine `json:"Purchase"`
}

// PurchaseTotals are the order's untaxed sum, tax and grand total.
type PurchaseTotals struct {
	Untaxed decimal.Decimal
	Tax     decimal.Decimal
	Total   decimal.Decimal
}

// SummarizePurchase folds the order lines into totals.
func SummarizePurchase(lines []PurchaseLine) PurchaseTotals {
	t := fold(lines, PurchaseTotals{}, func(t PurchaseTotals, l PurchaseLine) PurchaseTotals {
		t.Untaxed = t.Untaxed.Add(l.Amount.Decimal)
		t.Tax = t.Tax.Add(l.Tax())
		return t
	})
	t.Total = t.Untaxed.Add(t.Tax)
	return t
}

type purchaseRow struct {
	Category, Product, Description, Make string
	Quantity, UnitPrice, Taxes, Amount   string
}

type purchaseView struct {
	OrderNumber, Vendor, OrderDate string
	Message                        string
	Rows                           []purchaseRow
	Untaxed, Tax, Total            string
}

// PurchaseOrder composes one purchase order. The order date is the record's
// Date, or the current time when it has none.
func (b *Builder) PurchaseOrder(po PurchaseOrder, p domain.Page) (domain.Document, error) {
	totals := SummarizePurchase(po.Purchase)

	when := b.now()
	if t, ok := ParseTime(string(po.Date)); ok {
		when = t
	}

	v := purchaseView{
		OrderNumber: po.OrderNumber.Or(Dash),
		Vendor:      po.VendorName.Or(Dash),
		OrderDate:   b.fmt.DateTime(when),
		Message:     po.Message.Or(""),
		Untaxed:     INR(totals.Untaxed),
		Tax:         INR(totals.Tax),
		Total:       INR(totals.Total),
	}
	for _, l := range po.Purchase {
		v.Rows = append(v.Rows, purchaseRow{
			Category:    l.Category.Or("NA"),
			Product:     l.Product.Or(Dash),
			Description: l.Description.Or(Dash),
			Make:        l.Make.Or(Dash),
			Quantity:    l.Quantity.Or("0"),
			UnitPrice:   INR(l.UnitPrice.Decimal),
			Taxes:       l.Taxes.String(),
			Amount:      INR(l.Amount.Decimal),
		})
	}

	html, err := b.render("purchase", page[purchaseView]{Brand: b.brand, Title: "Purchase Order", Body: v})
	if err != nil {
		return domain.Document{}, err
	}
	layout := b.layout(p)
	layout.Margins = domain.MarginsMM(6, 2, 20, 2)
	layout.PreferCSSPageSize = true
	layout.HeaderTemplate = "<div></div>"
	layout.FooterTemplate = footerPurchase
	return domain.Document{HTML: html, Layout: layout}, nil
}

package handlers

import (
	"context"
	"encoding/json"
	"html/template"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	"reportpdf/internal/domain"
	"reportpdf/internal/infra/logging"
	"reportpdf/internal/pipeline"
	"reportpdf/internal/report"
)

type expenseRequest struct {
	Sheets           []report.ExpenseSheet `json:"sheets"`
	Sheet            *report.ExpenseSheet  `json:"sheet"`
	PrintAttachments domain.Flag           `json:"printAttachments"`
	PDFOptions       domain.PageOptions    `json:"pdfOptions"`
	AttachmentLinks  []report.Text         `json:"attachmentLinks"`
}

// HandleExpense merges one expense sheet per entry of "sheets". A single
// "sheet" object is accepted as a one-element list; top-level
// "attachmentLinks" belong to that sheet.
func (s *Service) HandleExpense(c *fiber.Ctx) error {
	var req expenseRequest
	if err := decode(c, &req); err != nil {
		return s.fail(c, err)
	}
	sheets := req.Sheets
	if len(sheets) == 0 && req.Sheet != nil {
		sheet := *req.Sheet
		sheet.AttachmentLinks = append(slices.Clone(sheet.AttachmentLinks), req.AttachmentLinks...)
		sheets = []report.ExpenseSheet{sheet}
	}
	if len(sheets) == 0 {
		return s.fail(c, domain.Validationf("Invalid or missing expense sheet data"))
	}
	if err := s.checkCount(len(sheets)); err != nil {
		return s.fail(c, err)
	}
	for i, sheet := range sheets {
		if err := sheet.Validate(i); err != nil {
			return s.fail(c, err)
		}
	}

	name := "Expense_Sheets.pdf"
	if len(sheets) == 1 {
		name = pdfName("Expense", string(sheets[0].ExpenseCode))
	}
	page := s.Reports.Page(req.PDFOptions)
	attach := bool(req.PrintAttachments)

	return s.respond(c, name, func(ctx context.Context) ([]byte, error) {
		return pipeline.Merge(ctx, s.Pipeline, sheets, func(ctx context.Context, _ int, sheet report.ExpenseSheet) (domain.Document, error) {
			opts := report.ExpenseOptions{Page: page}
			if attach {
				opts.Attachments = s.attachments(ctx, sheet.Links())
			}
			return s.Reports.Expense(sheet, opts)
		})
	})
}

// attachments fetches links and keeps the images.
func (s *Service) attachments(ctx context.Context, links []string) []template.URL {
	if s.Fetcher == nil || len(links) == 0 {
		return nil
	}
	var out []template.URL
	for _, body := range s.Fetcher.All(ctx, links) {
		uri := report.DataURI(body, "")
		if !strings.HasPrefix(string(uri), "data:image/") {
			logging.Debug("Attachment is not an image", "bytes", len(body))
			continue
		}
		out = append(out, uri)
	}
	return out
}

type purchaseRequest struct {
	Orders     []report.PurchaseOrder `json:"orders"`
	PDFOptions domain.PageOptions     `json:"pdfOptions"`
}

// HandlePurchaseOrders merges one purchase order per entry of "orders".
func (s *Service) HandlePurchaseOrders(c *fiber.Ctx) error {
	var req purchaseRequest
	if err := decode(c, &req); err != nil {
		return s.fail(c, err)
	}
	if len(req.Orders) == 0 {
		return s.fail(c, domain.Validationf("No Purchase Data Provided"))
	}
	if err := s.checkCount(len(req.Orders)); err != nil {
		return s.fail(c, err)
	}

	page := s.Reports.Page(req.PDFOptions)
	return s.respond(c, "Purchase_Order.pdf", func(ctx context.Context) ([]byte, error) {
		return pipeline.Merge(ctx, s.Pipeline, req.Orders, func(_ context.Context, _ int, po report.PurchaseOrder) (domain.Document, error) {
			return s.Reports.PurchaseOrder(po, page)
		})
	})
}

type scopeRequest struct {
	Scopes     []report.Scope     `json:"scopes"`
	PDFOptions domain.PageOptions `json:"pdfOptions"`
	Columns    json.RawMessage    `json:"columns"`
}

// columns decodes the requested columns. Anything but a list selects the
// defaults.
func (r scopeRequest) columns() []report.Column {
	var req []report.ColumnRequest
	if len(r.Columns) > 0 {
		if err := json.Unmarshal(r.Columns, &req); err != nil {
			req = nil
		}
	}
	return report.ResolveColumns(req)
}

// HandleScopes merges one scope sheet per entry of "scopes".
func (s *Service) HandleScopes(c *fiber.Ctx) error {
	var req scopeRequest
	if err := decode(c, &req); err != nil {
		return s.fail(c, err)
	}
	if len(req.Scopes) == 0 {
		return s.fail(c, domain.Validationf("No scope data provided"))
	}
	if err := s.checkCount(len(req.Scopes)); err != nil {
		return s.fail(c, err)
	}

	opts := report.ScopeOptions{Page: s.Reports.Page(req.PDFOptions), Columns: req.columns()}
	return s.respond(c, "Scope_Summary.pdf", func(ctx context.Context) ([]byte, error) {
		return pipeline.Merge(ctx, s.Pipeline, req.Scopes, func(_ context.Context, _ int, sc report.Scope) (domain.Document, error) {
			return s.Reports.Scope(sc, opts)
		})
	})
}

// single renders one composed document through the pipeline.
func (s *Service) single(ctx context.Context, compose func() (domain.Document, error)) ([]byte, error) {
	return pipeline.Merge(ctx, s.Pipeline, []struct{}{{}}, func(context.Context, int, struct{}) (domain.Document, error) {
		return compose()
	})
}

type approvalRequest struct {
	Pos []report.Approval `json:"Pos"`
}

// HandleApprovals renders the payment approval sheet for "Pos".
func (s *Service) HandleApprovals(c *fiber.Ctx) error {
	var req approvalRequest
	if err := decode(c, &req); err != nil {
		return s.fail(c, err)
	}
	if len(req.Pos) == 0 {
		return s.fail(c, domain.Validationf("No PO data Provided"))
	}
	return s.respond(c, "Multiple_Po.pdf", func(ctx context.Context) ([]byte, error) {
		return s.single(ctx, func() (domain.Document, error) { return s.Reports.Approval(req.Pos) })
	})
}

type historyRequest struct {
	Payments []report.Payment `json:"Payments"`
}

// HandlePaymentHistory renders the payment history for "Payments".
func (s *Service) HandlePaymentHistory(c *fiber.Ctx) error {
	var req historyRequest
	if err := decode(c, &req); err != nil {
		return s.fail(c, err)
	}
	if len(req.Payments) == 0 {
		return s.fail(c, domain.Validationf("No Payment Data Provided"))
	}
	return s.respond(c, "Payment_History.pdf", func(ctx context.Context) ([]byte, error) {
		return s.single(ctx, func() (domain.Document, error) { return s.Reports.PaymentHistory(req.Payments) })
	})
}

// HandleSchedule renders a project schedule.
func (s *Service) HandleSchedule(c *fiber.Ctx) error {
	var req report.Schedule
	if err := decode(c, &req); err != nil {
		return s.fail(c, err)
	}
	if len(req.Data) == 0 {
		return s.fail(c, domain.Validationf("No Project Data Provided"))
	}
	return s.respond(c, "Project_Schedule.pdf", func(ctx context.Context) ([]byte, error) {
		return s.single(ctx, func() (domain.Document, error) { return s.Reports.Schedule(req) })
	})
}

// HandleCustomerSummary renders a customer payment summary. Every section is
// optional.
func (s *Service) HandleCustomerSummary(c *fiber.Ctx) error {
	var req report.PaymentSummary
	if err := decode(c, &req); err != nil {
		return s.fail(c, err)
	}
	return s.respond(c, "Customer_Payment_Summary.pdf", func(ctx context.Context) ([]byte, error) {
		return s.single(ctx, func() (domain.Document, error) { return s.Reports.CustomerSummary(req) })
	})
}

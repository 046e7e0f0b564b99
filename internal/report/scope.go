package report

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"reportpdf/internal/domain"
)

// ScopeRow is one material line of a scope sheet.
type ScopeRow struct {
	SrNo           Text        `json:"sr_no"`
	Name           Text        `json:"name"`
	Type           Text        `json:"type"`
	Scope          Text        `json:"scope"`
	Quantity       Text        `json:"quantity"`
	UOM            Text        `json:"uom"`
	Remarks        Text        `json:"remarks"`
	CommitmentDate Text        `json:"commitment_date"`
	PONumber       Text        `json:"po_number"`
	POStatus       Text        `json:"po_status"`
	PODate         Text        `json:"po_date"`
	ETD            Text        `json:"etd"`
	DeliveredDate  Text        `json:"delivered_date"`
	IsChild        domain.Flag `json:"_isChild"`
}

// Scope is the material status of one project.
type Scope struct {
	CreatedBy Ref[struct {
		Name Text `json:"name"`
	}] `json:"createdBy"`
	CurrentStatus Ref[struct {
		Status Text `json:"status"`
	}] `json:"current_status"`
	Rows     []ScopeRow      `json:"rows"`
	Project  Ref[ProjectRef] `json:"project"`
	Handover Ref[struct {
		CamMemberName Text `json:"cam_member_name"`
	}] `json:"handover"`
	ProjectStatus Text `json:"project_status"`
	CreatedAt     Text `json:"createdAt"`
	UpdatedAt     Text `json:"updatedAt"`
}

// ColumnRequest asks for a scope column, optionally relabelled. It decodes
// from "po_number" or {"key": "po_number", "label": "PO #"}.
type ColumnRequest struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

func (c *ColumnRequest) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*c = ColumnRequest{}
	switch {
	case len(data) == 0:
		return nil
	case data[0] == '"':
		return json.Unmarshal(data, &c.Key)
	case data[0] == '{':
		var raw struct {
			Key   Text `json:"key"`
			Label Text `json:"label"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		c.Key, c.Label = string(raw.Key), string(raw.Label)
	}
	return nil
}

// Column is a resolved scope table column.
type Column struct {
	Key   string
	Label string
	value func(Formatter, ScopeRow) string
}

var scopeColumns = map[string]Column{
	"type":     {Label: "Type", value: func(_ Formatter, r ScopeRow) string { return TitleCase(string(r.Type)) }},
	"scope":    {Label: "Scope", value: func(_ Formatter, r ScopeRow) string { return TitleCase(string(r.Scope)) }},
	"quantity": {Label: "Qty", value: func(_ Formatter, r ScopeRow) string { return string(r.Quantity) }},
	"uom":      {Label: "UoM", value: func(_ Formatter, r ScopeRow) string { return string(r.UOM) }},
	"remarks":  {Label: "Remarks", value: func(f Formatter, r ScopeRow) string { return f.Date(string(r.Remarks)) }},
	"commitment_date": {Label: "Commitment Date", value: func(f Formatter, r ScopeRow) string {
		return f.Date(string(r.CommitmentDate))
	}},
	"po_number": {Label: "PO Number", value: func(_ Formatter, r ScopeRow) string { return r.PONumber.Or(Dash) }},
	"po_status": {Label: "PO Status", value: func(_ Formatter, r ScopeRow) string { return PrettyStatus(string(r.POStatus)) }},
	"po_date":   {Label: "PO Date", value: func(f Formatter, r ScopeRow) string { return f.Date(string(r.PODate)) }},
	"etd":       {Label: "ETD", value: func(f Formatter, r ScopeRow) string { return f.Date(string(r.ETD)) }},
	"delivered_date": {Label: "Delivered Date", value: func(f Formatter, r ScopeRow) string {
		return f.Date(string(r.DeliveredDate))
	}},
}

// DefaultScopeColumns is used when a request names no usable column.
var DefaultScopeColumns = []string{"scope", "commitment_date", "po_number", "po_status", "po_date", "etd", "delivered_date"}

// ResolveColumns keeps the known, non-duplicate keys of req in order. With
// nothing requested the default set applies; if nothing survives, the PO
// number column is used alone.
func ResolveColumns(req []ColumnRequest) []Column {
	if len(req) == 0 {
		req = make([]ColumnRequest, len(DefaultScopeColumns))
		for i, k := range DefaultScopeColumns {
			req[i] = ColumnRequest{Key: k}
		}
	}

	seen := make(map[string]bool, len(req))
	out := make([]Column, 0, len(req))
	for _, r := range req {
		key := strings.TrimSpace(r.Key)
		col, ok := scopeColumns[key]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		col.Key = key
		if label := strings.TrimSpace(r.Label); label != "" {
			col.Label = label
		}
		out = append(out, col)
	}
	if len(out) == 0 {
		col := scopeColumns["po_number"]
		col.Key = "po_number"
		out = append(out, col)
	}
	return out
}

// ScopeOptions are the per-request settings of a scope sheet.
type ScopeOptions struct {
	Page    domain.Page
	Columns []Column
}

type scopeRowView struct {
	SNo   string
	Name  string
	Cells []string
	Child bool
}

type scopeView struct {
	ProjectName, ProjectCode string
	CreatedBy, Status        string
	CreatedAt, UpdatedAt     string
	CamMember, ProjectStatus string
	Columns                  []Column
	Rows                     []scopeRowView
}

// Scope composes one scope sheet.
func (b *Builder) Scope(s Scope, opts ScopeOptions) (domain.Document, error) {
	cols := opts.Columns
	if len(cols) == 0 {
		cols = ResolveColumns(nil)
	}

	v := scopeView{
		ProjectName:   TitleCase(s.Project.V.Name.Or(Dash)),
		ProjectCode:   s.Project.V.Code.Or(Dash),
		CreatedBy:     s.CreatedBy.V.Name.Or(Dash),
		Status:        Or(PrettyStatus(string(s.CurrentStatus.V.Status)), Dash),
		CreatedAt:     b.fmt.Date(string(s.CreatedAt)),
		UpdatedAt:     b.fmt.Date(string(s.UpdatedAt)),
		CamMember:     TitleCase(s.Handover.V.CamMemberName.Or(Dash)),
		ProjectStatus: Or(PrettyStatus(string(s.ProjectStatus)), Dash),
		Columns:       cols,
	}
	for i, r := range s.Rows {
		row := scopeRowView{Name: TitleCase(string(r.Name)), Child: bool(r.IsChild)}
		if !row.Child {
			row.SNo = r.SrNo.Or(strconv.Itoa(i + 1))
		}
		for _, c := range cols {
			row.Cells = append(row.Cells, c.value(b.fmt, r))
		}
		v.Rows = append(v.Rows, row)
	}

	html, err := b.render("scope", page[scopeView]{Brand: b.brand, Title: "Material Status", Body: v})
	if err != nil {
		return domain.Document{}, err
	}
	layout := b.layout(opts.Page)
	layout.Margins = domain.MarginsMM(10, 5, 10, 5)
	layout.PreferCSSPageSize = true
	return domain.Document{HTML: html, Layout: layout}, nil
}

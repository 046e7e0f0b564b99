package report

import "reportpdf/internal/domain"

// ScheduleRow is one activity of a project schedule.
type ScheduleRow struct {
	SNo      Text `json:"sno"`
	Activity Text `json:"activity"`
	Duration Text `json:"duration"`
	BStart   Text `json:"bstart"`
	BEnd     Text `json:"bend"`
	AStart   Text `json:"astart"`
	AEnd     Text `json:"aend"`
	Status   Text `json:"status"`
	Pred     Text `json:"pred"`
}

// Schedule is a project's baseline and actual timeline.
type Schedule struct {
	Data        []ScheduleRow `json:"data"`
	ProjectCode Text          `json:"project_code"`
	ProjectName Text          `json:"project_name"`
	Customer    Text          `json:"customer"`
	State       Text          `json:"state"`
}

type scheduleView struct {
	Generated                string
	ProjectCode, ProjectName string
	Customer, State          string
	Rows                     []ScheduleRow
}

// Schedule composes a landscape project schedule. Cells are printed as
// given.
func (b *Builder) Schedule(s Schedule) (domain.Document, error) {
	v := scheduleView{
		Generated:   b.fmt.MediumDate(b.now()),
		ProjectCode: string(s.ProjectCode),
		ProjectName: string(s.ProjectName),
		Customer:    string(s.Customer),
		State:       string(s.State),
		Rows:        s.Data,
	}
	html, err := b.render("schedule", page[scheduleView]{Brand: b.brand, Title: "Project Schedule", Body: v})
	if err != nil {
		return domain.Document{}, err
	}
	layout := b.layout(domain.Page{Format: "A4", Landscape: true})
	layout.PreferCSSPageSize = true
	layout.HeaderTemplate = "<div></div>"
	layout.FooterTemplate = b.copyrightFooter(footerSchedule)
	return domain.Document{HTML: html, Layout: layout}, nil
}

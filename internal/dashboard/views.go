package dashboard

import (
	"errors"
	"html/template"
	"sort"
	"strconv"

	"github.com/refset/churn-insight-dashboard/internal/churnapi"
	"github.com/refset/churn-insight-dashboard/internal/customer"
	"github.com/refset/churn-insight-dashboard/internal/form"
	"github.com/refset/churn-insight-dashboard/internal/normalize"
	"github.com/refset/churn-insight-dashboard/internal/panel"
)

type navLink struct {
	ID    string
	Title string
}

func navLinks() []navLink {
	links := make([]navLink, 0, len(churnapi.Endpoints()))
	for _, e := range churnapi.Endpoints() {
		links = append(links, navLink{ID: string(e), Title: e.Title()})
	}
	return links
}

type indexView struct {
	Nav        []navLink
	BackendURL string
}

type fieldView struct {
	Name    string
	Label   string
	Select  bool
	Options []customer.Option
	Value   string
	Min     string
	Max     string
	Step    string
	Problem string
}

type echoItem struct {
	Name  string
	Value string
}

type predictView struct {
	Nav         []navLink
	Fields      []fieldView
	Error       string
	ErrorKind   string
	Customer    []echoItem
	Predictions []churnapi.PredictionResult
	HasResponse bool
}

func newPredictView(v form.View) predictView {
	out := predictView{Nav: navLinks()}

	var verr *customer.ValidationError
	if v.Err != nil {
		out.Error = v.Err.Error()
		out.ErrorKind = string(churnapi.KindOf(v.Err))
		errors.As(v.Err, &verr)
	}

	for _, f := range customer.Schema {
		fv := fieldView{
			Name:    string(f.Name),
			Label:   f.Label,
			Select:  f.Input == customer.SelectInput,
			Options: f.Options,
			Value:   v.Draft[f.Name],
			Step:    "any",
		}
		if f.Integer {
			fv.Step = "1"
		}
		if f.Min != nil {
			fv.Min = formatNumber(*f.Min)
		}
		if f.Max != nil {
			fv.Max = formatNumber(*f.Max)
		}
		if verr != nil {
			fv.Problem, _ = verr.Reason(f.Name)
		}
		out.Fields = append(out.Fields, fv)
	}

	if v.Response != nil {
		out.HasResponse = true
		out.Customer = customerEcho(v.Response.Customer)
		out.Predictions = v.Response.Predictions
	}
	return out
}

// customerEcho lists schema fields first, in form order, then any extra keys
// the backend echoed.
func customerEcho(m map[string]string) []echoItem {
	seen := make(map[string]bool, len(m))
	var items []echoItem
	for _, f := range customer.Schema {
		if v, ok := m[string(f.Name)]; ok {
			items = append(items, echoItem{Name: f.Label, Value: v})
			seen[string(f.Name)] = true
		}
	}
	var extra []string
	for k := range m {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		items = append(items, echoItem{Name: k, Value: m[k]})
	}
	return items
}

type rowView struct {
	Name   string
	Value  string
	Header bool
	Depth  int
}

type entryView struct {
	Key   string
	Label string
	Image template.URL
	Rows  []rowView
}

// IsImage reports whether the entry renders as an image.
func (e entryView) IsImage() bool { return e.Image != "" }

type panelView struct {
	Nav         []navLink
	ID          string
	Mount       string
	Title       string
	Phase       string
	Placeholder bool
	Failed      bool
	Reason      string
	ErrorKind   string
	Entries     []entryView
}

func newPanelView(e churnapi.Endpoint, s panel.State) panelView {
	v := panelView{
		Nav:   navLinks(),
		ID:    string(e),
		Title: e.Title(),
		Phase: s.Phase.String(),
	}
	switch s.Phase {
	case panel.Failed:
		v.Failed = true
		v.Reason = s.Reason
		v.ErrorKind = string(s.ErrorKind)
	case panel.Ready:
		for _, entry := range s.Bundle.Entries {
			v.Entries = append(v.Entries, newEntryView(entry))
		}
	default:
		v.Placeholder = true
	}
	return v
}

func newEntryView(e normalize.Entry) entryView {
	ev := entryView{Key: e.Key, Label: e.Label}
	switch {
	case e.Kind == normalize.KindImage && e.Image != nil:
		ev.Image = template.URL(e.Image.DataURI())
	case e.Table != nil:
		ev.Rows = flattenTable(e.Table, 0, nil)
	}
	return ev
}

func flattenTable(t *normalize.Table, depth int, rows []rowView) []rowView {
	for _, r := range t.Rows {
		if r.Sub != nil {
			rows = append(rows, rowView{Name: r.Name, Header: true, Depth: depth})
			rows = flattenTable(r.Sub, depth+1, rows)
			continue
		}
		value := "n/a"
		if r.Value != nil {
			value = formatNumber(*r.Value)
		}
		rows = append(rows, rowView{Name: r.Name, Value: value, Depth: depth})
	}
	return rows
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

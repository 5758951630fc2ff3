// Package view maps controller state onto flat view models for the
// templates. Nothing here touches HTTP or HTML.
package view

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/conorfennell/cellarfront/internal/catalog"
	"github.com/conorfennell/cellarfront/internal/domain"
	"github.com/conorfennell/cellarfront/internal/quiz"
	"github.com/conorfennell/cellarfront/internal/stock"
	"github.com/conorfennell/cellarfront/internal/winedraft"
)

// BusyLabel replaces a button label while its action runs.
const BusyLabel = "Even geduld…"

// OptionView is one radio choice.
type OptionView struct {
	ID      string
	Label   string
	Checked bool
}

// StepView renders the current quiz question.
type StepView struct {
	Heading      string
	QuestionID   string
	Options      []OptionView
	PrevDisabled bool
	NextDisabled bool
	IsLast       bool
	ProgressPct  float64
}

// Step maps the quiz controller onto its current question.
func Step(c *quiz.Controller) StepView {
	q, ok := c.Current()
	if !ok {
		return StepView{PrevDisabled: true, NextDisabled: true}
	}
	chosen, _ := c.AnswerFor(q.ID)
	opts := make([]OptionView, len(q.Options))
	for i, o := range q.Options {
		opts[i] = OptionView{ID: o.ID, Label: o.Label, Checked: o.ID == chosen}
	}
	return StepView{
		Heading:      fmt.Sprintf("%d/%d — %s", c.Step()+1, c.Len(), q.Title),
		QuestionID:   q.ID,
		Options:      opts,
		PrevDisabled: !c.CanGoBack(),
		NextDisabled: !c.CanAdvance(),
		IsLast:       c.Step() == c.Len()-1,
		ProgressPct:  float64(c.Step()) / float64(c.Len()) * 100,
	}
}

// Bar is one axis of a profile chart.
type Bar struct {
	Axis  string
	Value int
}

// MatchView is one ranked wine card.
type MatchView struct {
	Name       string
	Region     string
	Price      string
	Why        string
	Similarity string
	Axes       string
}

// ResultsView renders the quiz outcome.
type ResultsView struct {
	Bars    []Bar
	Matches []MatchView
}

// Bars returns one bar per axis in display order.
func Bars(p domain.Profile) []Bar {
	out := make([]Bar, len(domain.Axes))
	for i, a := range domain.Axes {
		out[i] = Bar{Axis: string(a), Value: p.Get(a)}
	}
	return out
}

// Results maps a match result in the order the server ranked it.
func Results(r *domain.MatchResult) ResultsView {
	if r == nil {
		return ResultsView{}
	}
	v := ResultsView{Bars: scoreBars(r.UserProfile)}
	for _, m := range r.Matches {
		v.Matches = append(v.Matches, MatchView{
			Name:       m.Wine.Name,
			Region:     m.Wine.Region,
			Price:      Price(m.Wine.PriceEUR),
			Why:        m.Why,
			Similarity: fmt.Sprintf("%.1f%%", m.Similarity*100),
			Axes:       axesText(m.Wine.Profile),
		})
	}
	return v
}

// Price formats euros with two decimals; an unknown price shows as 0.00.
func Price(p *float64) string {
	var v float64
	if p != nil {
		v = *p
	}
	return fmt.Sprintf("€%.2f", v)
}

// scoreBars keeps only the axes the server reported, in display order.
func scoreBars(s domain.Scores) []Bar {
	var out []Bar
	for _, a := range domain.Axes {
		if v, ok := s.Get(a); ok {
			out = append(out, Bar{Axis: string(a), Value: v})
		}
	}
	return out
}

func axesText(s domain.Scores) string {
	var parts []string
	for _, b := range scoreBars(s) {
		parts = append(parts, fmt.Sprintf("%s:%d", b.Axis, b.Value))
	}
	return strings.Join(parts, " ")
}

// RowView is one stock table row.
type RowView struct {
	ID         int64
	Name       string
	Region     string
	Vintage    string
	Grapes     string
	Bottles    int
	DeleteText string
}

// TableView renders the stock list.
type TableView struct {
	Query   string
	Rows    []RowView
	Info    string
	HasPrev bool
	HasNext bool
}

// GrapesText lists a row's varieties, falling back to the server's joined
// text and then to a dash.
func GrapesText(it domain.StockItem) string {
	if it.Grapes != nil {
		var names []string
		for _, g := range it.Grapes {
			if g.Variety != "" {
				names = append(names, g.Variety)
			}
		}
		return strings.Join(names, ", ")
	}
	if it.GrapesJoin != "" {
		return it.GrapesJoin
	}
	return "—"
}

// Table maps the stock list.
func Table(l *stock.List) TableView {
	st := l.State()
	v := TableView{Query: st.Query, Info: l.Info(), HasPrev: l.HasPrev(), HasNext: l.HasNext()}
	for _, it := range st.Items {
		row := RowView{
			ID:         it.ID,
			Name:       it.Name,
			Region:     it.Region,
			Grapes:     GrapesText(it),
			DeleteText: stock.DeletePrompt(it.ID, it.Name),
		}
		if it.Vintage != nil {
			row.Vintage = strconv.Itoa(*it.Vintage)
		}
		if it.Bottles != nil {
			row.Bottles = *it.Bottles
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}

// Choice is one entry of a select box.
type Choice struct {
	Value    string
	Selected bool
}

// GrapeRowView is one editable grape line.
type GrapeRowView struct {
	Index   int
	Variety string
	Weight  string
}

// SliderView is one profile slider.
type SliderView struct {
	Axis  string
	Value int
}

// FormView renders the admin form.
type FormView struct {
	Mode             string
	ID               int64
	Title            string
	Fields           winedraft.Fields
	Countries        []Choice
	Regions          []Choice
	RegionOtherOn    bool
	RegionOtherHint  string
	Climates         []Choice
	Colors           []Choice
	Sweetness        []Choice
	Grapes           []GrapeRowView
	GrapeSuggestions []string
	Sliders          []SliderView
	Sources          []domain.Source
	Message          winedraft.Message
	SaveMessage      winedraft.Message
	WindowMessage    string
	Verify           string
	Dirty            bool
	DrinkingFrom     string
	DrinkingTo       string
	ABV              string
	PriceEUR         string
	PurchasePriceEUR string
}

var (
	climates  = []string{"cool", "temperate", "warm"}
	colors    = []string{"", "rood", "wit", "rosé", "mousserend"}
	sweetness = []string{"dry", "off-dry", "medium", "sweet"}
)

func choices(values []string, selected string) []Choice {
	out := make([]Choice, len(values))
	for i, v := range values {
		out[i] = Choice{Value: v, Selected: v == selected}
	}
	return out
}

// Weight formats a grape weight for its input; zero shows as blank.
func Weight(w float64) string {
	if w == 0 {
		return ""
	}
	return strconv.FormatFloat(math.Round(w*100)/100, 'f', -1, 64)
}

func decimal(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func year(y *int) string {
	if y == nil {
		return ""
	}
	return strconv.Itoa(*y)
}

// Form maps the admin form.
func Form(f *winedraft.Form) FormView {
	st := f.State()
	v := FormView{
		Mode:             st.Mode.String(),
		ID:               st.ID,
		Title:            st.Title,
		Fields:           st.Fields,
		Countries:        choices(catalog.Countries(), st.Fields.Country),
		Regions:          choices(catalog.Regions(st.Fields.Country), st.Fields.Region),
		RegionOtherOn:    f.RegionOtherEnabled(),
		Climates:         choices(climates, st.Fields.Climate),
		Colors:           choices(colors, st.Fields.Color),
		Sweetness:        choices(sweetness, st.Fields.Sweetness),
		GrapeSuggestions: catalog.GrapeSuggestions(),
		Sources:          st.Sources,
		Message:          st.Message,
		SaveMessage:      st.SaveMessage,
		WindowMessage:    st.WindowMessage,
		Verify:           st.Verify,
		Dirty:            f.Dirty(),
		DrinkingFrom:     year(st.Fields.DrinkingFrom),
		DrinkingTo:       year(st.Fields.DrinkingTo),
		ABV:              decimal(st.Fields.ABV),
		PriceEUR:         decimal(st.Fields.PriceEUR),
		PurchasePriceEUR: decimal(st.Fields.PurchasePriceEUR),
	}
	v.RegionOtherHint = "(niet nodig)"
	if v.RegionOtherOn {
		v.RegionOtherHint = "Schrijf hier de regio"
	}
	for i, g := range st.Grapes {
		v.Grapes = append(v.Grapes, GrapeRowView{Index: i, Variety: g.Variety, Weight: Weight(g.Weight)})
	}
	for _, b := range Bars(st.Profile) {
		v.Sliders = append(v.Sliders, SliderView{Axis: b.Axis, Value: b.Value})
	}
	return v
}

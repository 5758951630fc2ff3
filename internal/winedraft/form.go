// Package winedraft is the admin wine form: it mirrors a draft wine into
// editable fields, runs the backend-assisted enrichment actions and saves
// the draft through either the create or the update call.
package winedraft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/conorfennell/cellarfront/internal/catalog"
	"github.com/conorfennell/cellarfront/internal/cellarapi"
	"github.com/conorfennell/cellarfront/internal/domain"
	"github.com/conorfennell/cellarfront/internal/drinkwindow"
	"github.com/conorfennell/cellarfront/internal/fingerprint"
)

// Mode selects which persistence call a form saves through.
type Mode int

const (
	Create Mode = iota
	Edit
)

func (m Mode) String() string {
	if m == Edit {
		return "edit"
	}
	return "create"
}

// User-facing messages.
const (
	MsgAutoProfileApplied = "Auto-profiel toegepast."
	MsgAutoProfileFailed  = "Fout bij auto-profiel"
	MsgEnrichApplied      = "Verrijking toegepast."
	MsgEnrichFailed       = "Fout bij verrijking"
	MsgNoWindow           = "Geen duidelijke suggestie gevonden."
	MsgSaved              = "Opgeslagen"
	MsgSaveFailed         = "Opslaan mislukt"
	VerifyRules           = "Profiel uit regels toegepast"
	VerifyEnriched        = "Verrijking toegepast"
)

var ErrNotFound = errors.New("wijn niet gevonden")

// Backend is the part of the wine API the form uses.
type Backend interface {
	GetWine(ctx context.Context, id int64) (*domain.Wine, error)
	CreateWine(ctx context.Context, w domain.Wine) (int64, error)
	UpdateWine(ctx context.Context, id int64, w domain.Wine) error
	AutoProfile(ctx context.Context, in cellarapi.AutoProfileRequest) (*cellarapi.AutoProfileResponse, error)
	Enrich(ctx context.Context, in cellarapi.EnrichRequest) (*cellarapi.EnrichResponse, error)
}

// Message is an inline status line.
type Message struct {
	Text string `json:"text"`
	OK   bool   `json:"ok"`
}

// GrapeRow is one editable grape line. Rows with a blank variety are kept
// in the form but left out of the draft.
type GrapeRow struct {
	Variety string  `json:"variety"`
	Weight  float64 `json:"weight"`
}

// Fields are the plain input widgets of the form.
type Fields struct {
	Name             string   `json:"name"`
	Producer         string   `json:"producer"`
	Color            string   `json:"color"`
	Sweetness        string   `json:"sweetness"`
	Country          string   `json:"country"`
	Region           string   `json:"region"`
	RegionOther      string   `json:"region_other"`
	Climate          string   `json:"climate"`
	Vintage          int      `json:"vintage"`
	Soil             string   `json:"soil"`
	OakMonths        int      `json:"oak_months"`
	Elevage          string   `json:"elevage"`
	ABV              *float64 `json:"abv"`
	PriceEUR         *float64 `json:"price_eur"`
	PurchasePriceEUR *float64 `json:"purchase_price_eur"`
	BottleSizeML     int      `json:"bottle_size_ml"`
	StorageLocation  string   `json:"storage_location"`
	Bottles          int      `json:"bottles"`
	DrinkingFrom     *int     `json:"drinking_from"`
	DrinkingTo       *int     `json:"drinking_to"`
	FoodPairings     string   `json:"food_pairings"`
	Notes            string   `json:"notes"`
}

// State is everything a form holds between requests.
type State struct {
	Mode          Mode            `json:"mode"`
	ID            int64           `json:"id,omitempty"`
	Title         string          `json:"title,omitempty"`
	Fields        Fields          `json:"fields"`
	Grapes        []GrapeRow      `json:"grapes"`
	Profile       domain.Profile  `json:"profile"`
	Sources       []domain.Source `json:"sources"`
	Message       Message         `json:"message"`
	SaveMessage   Message         `json:"save_message"`
	WindowMessage string          `json:"window_message"`
	Verify        string          `json:"verify"`
	Saved         string          `json:"saved"`
}

// Form is one admin form session. It is not safe for concurrent use.
type Form struct {
	st           State
	backend      Backend
	persist      func(ctx context.Context, w domain.Wine) (int64, error)
	fallbackYear int
	now          func() time.Time
}

// Option configures a form.
type Option func(*Form)

// WithFallbackYear sets the year the window heuristic assumes for a draft
// without a vintage. Zero means the current year.
func WithFallbackYear(y int) Option {
	return func(f *Form) { f.fallbackYear = y }
}

// WithClock replaces the clock used for the current year.
func WithClock(now func() time.Time) Option {
	return func(f *Form) { f.now = now }
}

func newForm(backend Backend, st State, opts []Option) *Form {
	f := &Form{st: st, backend: backend, now: time.Now}
	for _, o := range opts {
		o(f)
	}
	if st.Mode == Edit {
		id := st.ID
		f.persist = func(ctx context.Context, w domain.Wine) (int64, error) {
			return id, backend.UpdateWine(ctx, id, w)
		}
	} else {
		f.persist = backend.CreateWine
	}
	return f
}

// NewCreate returns an empty form that saves through the create call.
// It starts with the default country and two blank grape rows.
func NewCreate(backend Backend, opts ...Option) *Form {
	st := State{
		Mode: Create,
		Fields: Fields{
			Country:      catalog.DefaultCountry,
			Region:       catalog.Regions(catalog.DefaultCountry)[0],
			Climate:      "temperate",
			Sweetness:    "dry",
			BottleSizeML: 750,
			Bottles:      1,
		},
		Grapes:  []GrapeRow{{}, {}},
		Profile: domain.DefaultProfile(),
	}
	f := newForm(backend, st, opts)
	f.st.Saved = f.fingerprint()
	return f
}

// LoadEdit fetches wine id and returns a form that saves through the
// update call.
func LoadEdit(ctx context.Context, backend Backend, id int64, opts ...Option) (*Form, error) {
	w, err := backend.GetWine(ctx, id)
	if err != nil {
		if cellarapi.IsNotFound(err) {
			return nil, fmt.Errorf("%w: #%d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("load wine %d: %w", id, err)
	}
	f := newForm(backend, stateFromWine(id, w), opts)
	f.st.Saved = f.fingerprint()
	return f, nil
}

// Restore rebuilds a form from saved state.
func Restore(backend Backend, st State, opts ...Option) *Form {
	return newForm(backend, st, opts)
}

func stateFromWine(id int64, w *domain.Wine) State {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	fl := Fields{
		Name:             w.Name,
		Producer:         deref(w.Producer),
		Color:            deref(w.Color),
		Sweetness:        deref(w.Sweetness),
		Climate:          w.Climate,
		Vintage:          w.Vintage,
		Soil:             deref(w.Soil),
		OakMonths:        w.OakMonths,
		Elevage:          deref(w.Elevage),
		ABV:              w.ABV,
		PriceEUR:         w.PriceEUR,
		PurchasePriceEUR: w.PurchasePriceEUR,
		BottleSizeML:     w.BottleSizeML,
		StorageLocation:  deref(w.StorageLocation),
		Bottles:          w.Bottles,
		DrinkingFrom:     w.DrinkingFrom,
		DrinkingTo:       w.DrinkingTo,
		FoodPairings:     deref(w.FoodPairings),
		Notes:            deref(w.Notes),
	}
	if fl.Climate == "" {
		fl.Climate = "temperate"
	}
	if fl.BottleSizeML == 0 {
		fl.BottleSizeML = 750
	}
	fl.Country, fl.Region, fl.RegionOther = placeRegion(w.Country, w.Region)

	rows := make([]GrapeRow, 0, len(w.Grapes))
	for _, g := range w.Grapes {
		rows = append(rows, GrapeRow{Variety: g.Variety, Weight: g.Weight})
	}
	if len(rows) == 0 {
		rows = []GrapeRow{{}}
	}

	profile := domain.DefaultProfile()
	if w.Profile != nil {
		profile = *w.Profile
	}

	return State{
		Mode:    Edit,
		ID:      id,
		Title:   fmt.Sprintf("#%d — %s", id, w.Name),
		Fields:  fl,
		Grapes:  rows,
		Profile: profile,
		Sources: w.Sources,
	}
}

// placeRegion maps a stored country/region onto the pickers. A region that
// is not listed goes into the free-text field behind the catch-all entry.
func placeRegion(country, region string) (string, string, string) {
	if country == "" {
		for _, c := range catalog.Countries() {
			if catalog.HasRegion(c, region) {
				return c, region, ""
			}
		}
	} else if catalog.HasRegion(country, region) {
		return country, region, ""
	}
	return country, catalog.OtherRegion, region
}

// State returns a copy of the form state.
func (f *Form) State() State {
	st := f.st
	st.Grapes = append([]GrapeRow(nil), f.st.Grapes...)
	st.Sources = append([]domain.Source(nil), f.st.Sources...)
	return st
}

// Mode returns how the form saves.
func (f *Form) Mode() Mode { return f.st.Mode }

// ID returns the id of the wine being edited, or of the wine last created.
func (f *Form) ID() int64 { return f.st.ID }

// SetFields replaces the plain fields. A region that the selected country
// does not list falls back to the country's first region.
func (f *Form) SetFields(fl Fields) {
	if !catalog.HasRegion(fl.Country, fl.Region) {
		fl.Region = catalog.Regions(fl.Country)[0]
	}
	f.st.Fields = fl
}

// SetCountry selects a country and resets the region to its first entry.
func (f *Form) SetCountry(country string) {
	f.st.Fields.Country = country
	f.st.Fields.Region = catalog.Regions(country)[0]
}

// RegionOtherEnabled reports whether the free-text region is in use.
func (f *Form) RegionOtherEnabled() bool {
	return catalog.IsOther(f.st.Fields.Region)
}

// AddGrape appends a blank grape row.
func (f *Form) AddGrape() {
	f.st.Grapes = append(f.st.Grapes, GrapeRow{})
}

// RemoveGrape deletes row i. Out-of-range indexes are ignored.
func (f *Form) RemoveGrape(i int) {
	if i < 0 || i >= len(f.st.Grapes) {
		return
	}
	f.st.Grapes = append(f.st.Grapes[:i], f.st.Grapes[i+1:]...)
}

// SetGrapes replaces all grape rows.
func (f *Form) SetGrapes(rows []GrapeRow) {
	f.st.Grapes = append([]GrapeRow(nil), rows...)
}

// NormalizeWeights divides every weight by the total so they sum to 1.0,
// rounded to two decimals. Nothing changes when the total is not positive.
func (f *Form) NormalizeWeights() {
	var sum float64
	for _, r := range f.st.Grapes {
		sum += r.Weight
	}
	if sum <= 0 {
		return
	}
	for i := range f.st.Grapes {
		f.st.Grapes[i].Weight = math.Round(f.st.Grapes[i].Weight/sum*100) / 100
	}
}

// Grapes returns the rows that name a variety, trimmed.
func (f *Form) Grapes() []domain.Grape {
	var out []domain.Grape
	for _, r := range f.st.Grapes {
		if v := strings.TrimSpace(r.Variety); v != "" {
			out = append(out, domain.Grape{Variety: v, Weight: r.Weight})
		}
	}
	return out
}

// SetAxis moves one profile slider; the value is clamped.
func (f *Form) SetAxis(a domain.Axis, v int) {
	f.st.Profile.Set(a, v)
}

// SetProfile replaces all sliders.
func (f *Form) SetProfile(p domain.Profile) {
	for _, a := range domain.Axes {
		f.st.Profile.Set(a, p.Get(a))
	}
}

// Profile returns the slider values.
func (f *Form) Profile() domain.Profile { return f.st.Profile }

// Draft assembles the wine to persist from the current widgets.
func (f *Form) Draft() domain.Wine {
	fl := f.st.Fields
	opt := func(s string) *string {
		if s = strings.TrimSpace(s); s == "" {
			return nil
		}
		return &s
	}
	profile := f.st.Profile
	w := domain.Wine{
		Name:             strings.TrimSpace(fl.Name),
		Producer:         opt(fl.Producer),
		Color:            opt(fl.Color),
		Sweetness:        opt(fl.Sweetness),
		Country:          fl.Country,
		Region:           catalog.ResolveRegion(fl.Region, fl.RegionOther),
		Climate:          fl.Climate,
		Grapes:           f.Grapes(),
		Vintage:          fl.Vintage,
		Soil:             opt(fl.Soil),
		OakMonths:        f.oakMonths(),
		Elevage:          opt(fl.Elevage),
		ABV:              fl.ABV,
		PriceEUR:         fl.PriceEUR,
		PurchasePriceEUR: fl.PurchasePriceEUR,
		BottleSizeML:     fl.BottleSizeML,
		StorageLocation:  opt(fl.StorageLocation),
		Bottles:          fl.Bottles,
		DrinkingFrom:     fl.DrinkingFrom,
		DrinkingTo:       fl.DrinkingTo,
		FoodPairings:     opt(fl.FoodPairings),
		Profile:          &profile,
		Notes:            opt(fl.Notes),
		Sources:          f.st.Sources,
	}
	if w.Sweetness == nil && f.st.Mode == Create {
		w.Sweetness = domain.Ptr("dry")
	}
	if w.Bottles == 0 && f.st.Mode == Create {
		w.Bottles = 1
	}
	return w
}

var firstNumber = regexp.MustCompile(`\d+`)

// oakMonths prefers a number written in the elevage text on edit forms,
// where oak time is usually described rather than entered.
func (f *Form) oakMonths() int {
	if f.st.Mode == Edit {
		if m := firstNumber.FindString(f.st.Fields.Elevage); m != "" {
			if n, err := strconv.Atoi(m); err == nil {
				return n
			}
		}
	}
	return f.st.Fields.OakMonths
}

func (f *Form) fingerprint() string {
	return fingerprint.Hash(f.Draft())
}

// Dirty reports whether the draft differs from what was last loaded or
// saved.
func (f *Form) Dirty() bool {
	return f.fingerprint() != f.st.Saved
}

func (f *Form) setMessage(text string, ok bool) {
	f.st.Message = Message{Text: text, OK: ok}
}

// AutoProfile replaces the sliders with the backend's rule-based profile.
func (f *Form) AutoProfile(ctx context.Context) error {
	f.setMessage("", false)
	grapes := f.Grapes()
	if len(grapes) == 0 {
		f.setMessage(MsgNoGrapes, false)
		return ErrNoGrapes
	}
	req := cellarapi.AutoProfileRequest{
		Grapes:    grapes,
		Climate:   f.st.Fields.Climate,
		OakMonths: f.oakMonths(),
	}
	if s := strings.TrimSpace(f.st.Fields.Soil); s != "" {
		req.Soil = &s
	}
	resp, err := f.backend.AutoProfile(ctx, req)
	if err != nil {
		f.setMessage(cellarapi.Detail(err, MsgAutoProfileFailed), false)
		return fmt.Errorf("auto profile: %w", err)
	}
	f.st.Profile = resp.Profile
	f.st.Verify = VerifyRules
	f.setMessage(MsgAutoProfileApplied, true)
	return nil
}

func (f *Form) enrichRequest() cellarapi.EnrichRequest {
	d := f.Draft()
	terms := make([]string, 0, len(d.Grapes))
	for _, g := range d.Grapes {
		terms = append(terms, g.Variety)
	}
	req := cellarapi.EnrichRequest{
		Region:     d.Region,
		Country:    d.Country,
		Climate:    d.Climate,
		Vintage:    d.Vintage,
		Grapes:     d.Grapes,
		GrapeTerms: terms,
	}
	if d.Color != nil {
		req.Color = *d.Color
	}
	return req
}

// Enrich merges external enrichment into the draft: axis deltas are added
// and clamped, notes are appended after a blank line, sources are
// replaced. Other fields are left alone.
func (f *Form) Enrich(ctx context.Context) error {
	f.setMessage("", false)
	resp, err := f.backend.Enrich(ctx, f.enrichRequest())
	if err != nil {
		f.setMessage(cellarapi.Detail(err, MsgEnrichFailed), false)
		return fmt.Errorf("enrich: %w", err)
	}
	if resp.AxesDelta != nil {
		f.st.Profile.AddDeltas(resp.AxesDelta)
	}
	if resp.Notes != "" {
		if f.st.Fields.Notes != "" {
			f.st.Fields.Notes += "\n\n"
		}
		f.st.Fields.Notes += resp.Notes
	}
	f.st.Sources = resp.Sources
	f.st.Verify = VerifyEnriched
	f.setMessage(MsgEnrichApplied, true)
	return nil
}

// SuggestWindow fills the drinking window. A window from the enrichment
// call wins; otherwise the color/grape/climate heuristic decides.
func (f *Form) SuggestWindow(ctx context.Context) drinkwindow.Window {
	var w drinkwindow.Window
	resp, err := f.backend.Enrich(ctx, f.enrichRequest())
	if err != nil {
		slog.Warn("Window enrichment failed, using heuristic", "error", err)
	} else if from, to, ok := resp.Window(); ok {
		w = drinkwindow.Window{From: from, To: to}
	}

	if !w.Valid() {
		d := f.Draft()
		in := drinkwindow.Input{Grapes: d.Grapes, Climate: d.Climate, Vintage: d.Vintage}
		if d.Color != nil {
			in.Color = *d.Color
		}
		w = drinkwindow.Estimate(in, f.year())
	}

	if !w.Valid() {
		f.st.Fields.DrinkingFrom, f.st.Fields.DrinkingTo = nil, nil
		f.st.WindowMessage = MsgNoWindow
		return w
	}
	f.st.Fields.DrinkingFrom = domain.Ptr(w.From)
	f.st.Fields.DrinkingTo = domain.Ptr(w.To)
	f.st.WindowMessage = fmt.Sprintf("Suggestie: %d–%d", w.From, w.To)
	return w
}

func (f *Form) year() int {
	if f.fallbackYear != 0 {
		return f.fallbackYear
	}
	return f.now().Year()
}

// Save validates the required fields and persists the draft. On success
// it returns the wine id; a create form then remembers that id.
func (f *Form) Save(ctx context.Context) (int64, error) {
	f.setMessage("", false)
	f.st.SaveMessage = Message{}
	d := f.Draft()
	if err := Validate(d); err != nil {
		f.setMessage(err.Error(), false)
		return 0, err
	}

	id, err := f.persist(ctx, d)
	if err != nil {
		f.st.SaveMessage = Message{Text: cellarapi.Detail(err, MsgSaveFailed)}
		slog.Warn("Saving wine failed", "mode", f.st.Mode, "id", f.st.ID, "error", err)
		return 0, fmt.Errorf("save wine: %w", err)
	}

	f.st.Saved = fingerprint.Hash(d)
	if f.st.Mode == Create {
		f.st.ID = id
		f.st.SaveMessage = Message{Text: fmt.Sprintf("%s (#%d)", MsgSaved, id), OK: true}
	} else {
		f.st.SaveMessage = Message{Text: MsgSaved, OK: true}
	}
	slog.Info("Wine saved", "mode", f.st.Mode, "id", id)
	return id, nil
}

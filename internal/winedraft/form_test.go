package winedraft

import (
	"context"
	"errors"
	"testing"

	"github.com/conorfennell/cellarfront/internal/catalog"
	"github.com/conorfennell/cellarfront/internal/cellarapi"
	"github.com/conorfennell/cellarfront/internal/domain"
)

type fakeBackend struct {
	wine        *domain.Wine
	created     []domain.Wine
	updated     map[int64]domain.Wine
	autoReq     *cellarapi.AutoProfileRequest
	autoResp    *cellarapi.AutoProfileResponse
	enrichResp  *cellarapi.EnrichResponse
	enrichErr   error
	saveErr     error
	enrichCalls int
}

func (f *fakeBackend) GetWine(ctx context.Context, id int64) (*domain.Wine, error) {
	if f.wine == nil {
		return nil, &cellarapi.APIError{Status: 404, Detail: "Wine not found"}
	}
	w := *f.wine
	return &w, nil
}

func (f *fakeBackend) CreateWine(ctx context.Context, w domain.Wine) (int64, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.created = append(f.created, w)
	return int64(len(f.created)), nil
}

func (f *fakeBackend) UpdateWine(ctx context.Context, id int64, w domain.Wine) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.updated == nil {
		f.updated = map[int64]domain.Wine{}
	}
	f.updated[id] = w
	return nil
}

func (f *fakeBackend) AutoProfile(ctx context.Context, in cellarapi.AutoProfileRequest) (*cellarapi.AutoProfileResponse, error) {
	f.autoReq = &in
	return f.autoResp, nil
}

func (f *fakeBackend) Enrich(ctx context.Context, in cellarapi.EnrichRequest) (*cellarapi.EnrichResponse, error) {
	f.enrichCalls++
	if f.enrichErr != nil {
		return nil, f.enrichErr
	}
	if f.enrichResp == nil {
		return &cellarapi.EnrichResponse{}, nil
	}
	return f.enrichResp, nil
}

func TestNewCreate(t *testing.T) {
	f := NewCreate(&fakeBackend{})
	st := f.State()
	if st.Fields.Country != catalog.DefaultCountry || st.Fields.Region != "Bordeaux" {
		t.Errorf("Expected France/Bordeaux, but got %s/%s", st.Fields.Country, st.Fields.Region)
	}
	if len(st.Grapes) != 2 {
		t.Errorf("Expected two blank grape rows, but got %d", len(st.Grapes))
	}
	if f.Profile() != domain.DefaultProfile() {
		t.Errorf("Expected default sliders, but got %v", f.Profile())
	}
	if f.Dirty() {
		t.Error("Expected a fresh form not to be dirty")
	}
}

func TestNormalizeWeights(t *testing.T) {
	testCases := []struct {
		name     string
		weights  []float64
		expected []float64
	}{
		{name: "three rows", weights: []float64{2, 1, 1}, expected: []float64{0.5, 0.25, 0.25}},
		{name: "rounded", weights: []float64{1, 1, 1}, expected: []float64{0.33, 0.33, 0.33}},
		{name: "already normal", weights: []float64{0.6, 0.4}, expected: []float64{0.6, 0.4}},
		{name: "zero sum unchanged", weights: []float64{0, 0}, expected: []float64{0, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewCreate(&fakeBackend{})
			rows := make([]GrapeRow, len(tc.weights))
			for i, w := range tc.weights {
				rows[i] = GrapeRow{Variety: "g", Weight: w}
			}
			f.SetGrapes(rows)
			f.NormalizeWeights()
			for i, r := range f.State().Grapes {
				if r.Weight != tc.expected[i] {
					t.Errorf("Row %d: expected weight %.2f, but got %.2f", i, tc.expected[i], r.Weight)
				}
			}
		})
	}
}

func TestGrapeRows(t *testing.T) {
	f := NewCreate(&fakeBackend{})
	f.SetGrapes([]GrapeRow{{Variety: " Merlot ", Weight: 0.7}, {Variety: "  "}, {Variety: "Cabernet Franc", Weight: 0.3}})
	f.AddGrape()
	f.RemoveGrape(1)
	f.RemoveGrape(10)

	if n := len(f.State().Grapes); n != 3 {
		t.Fatalf("Expected 3 rows, but got %d", n)
	}
	g := f.Grapes()
	if len(g) != 2 || g[0].Variety != "Merlot" || g[1].Variety != "Cabernet Franc" {
		t.Errorf("Expected blank rows to be dropped and names trimmed, but got %+v", g)
	}
}

func TestSetAxisClamps(t *testing.T) {
	f := NewCreate(&fakeBackend{})
	f.SetAxis(domain.AxisZB, 140)
	f.SetAxis(domain.AxisMG, -3)
	if f.Profile().Get(domain.AxisZB) != 100 || f.Profile().Get(domain.AxisMG) != 0 {
		t.Errorf("Expected clamped sliders, but got %v", f.Profile())
	}
}

func TestSetFieldsRegion(t *testing.T) {
	f := NewCreate(&fakeBackend{})
	fl := f.State().Fields
	fl.Country = "Spain"
	fl.Region = "Bordeaux"
	f.SetFields(fl)
	if got := f.State().Fields.Region; got != "Rioja" {
		t.Errorf("Expected region to reset to 'Rioja', but got '%s'", got)
	}

	fl = f.State().Fields
	fl.Region = catalog.OtherRegion
	fl.RegionOther = "Bierzo"
	f.SetFields(fl)
	if !f.RegionOtherEnabled() {
		t.Error("Expected the free-text region to be enabled")
	}
	if got := f.Draft().Region; got != "Bierzo" {
		t.Errorf("Expected resolved region 'Bierzo', but got '%s'", got)
	}
}

func TestEnrichMerges(t *testing.T) {
	b := &fakeBackend{enrichResp: &cellarapi.EnrichResponse{
		AxesDelta: map[string]float64{"ZB": 80, "MG": -90, "LS": 5, "XX": 10},
		Notes:     "Kalkrijke bodem.",
		Sources:   []domain.Source{{Type: "wiki", Term: "Chablis", URL: "https://example.org"}},
	}}
	f := NewCreate(b)
	fl := f.State().Fields
	fl.Name = "Chablis"
	fl.Notes = "Eigen notitie"
	f.SetFields(fl)
	f.SetAxis(domain.AxisMG, 20)

	if err := f.Enrich(context.Background()); err != nil {
		t.Fatalf("Enrich() returned an unexpected error: %v", err)
	}
	p := f.Profile()
	if p.Get(domain.AxisZB) != 100 || p.Get(domain.AxisMG) != 0 || p.Get(domain.AxisLS) != 55 || p.Get(domain.AxisPA) != 50 {
		t.Errorf("Unexpected profile after deltas: %v", p)
	}
	st := f.State()
	if st.Fields.Notes != "Eigen notitie\n\nKalkrijke bodem." {
		t.Errorf("Expected notes to be appended, but got %q", st.Fields.Notes)
	}
	if len(st.Sources) != 1 || st.Sources[0].Term != "Chablis" {
		t.Errorf("Expected sources to be replaced, but got %+v", st.Sources)
	}
	if st.Fields.Name != "Chablis" {
		t.Error("Expected unrelated fields to be kept")
	}
	if !st.Message.OK || st.Message.Text != MsgEnrichApplied || st.Verify != VerifyEnriched {
		t.Errorf("Unexpected status %+v / %s", st.Message, st.Verify)
	}
}

func TestEnrichFailureUsesDetail(t *testing.T) {
	b := &fakeBackend{enrichErr: &cellarapi.APIError{Status: 502, Detail: "Wikipedia onbereikbaar"}}
	f := NewCreate(b)
	if err := f.Enrich(context.Background()); err == nil {
		t.Fatal("Expected an error")
	}
	if msg := f.State().Message; msg.OK || msg.Text != "Wikipedia onbereikbaar" {
		t.Errorf("Expected the server detail as message, but got %+v", msg)
	}

	b.enrichErr = errors.New("connection refused")
	f.Enrich(context.Background())
	if msg := f.State().Message; msg.Text != MsgEnrichFailed {
		t.Errorf("Expected the generic message, but got %+v", msg)
	}
}

func TestAutoProfile(t *testing.T) {
	b := &fakeBackend{autoResp: &cellarapi.AutoProfileResponse{Profile: domain.FromValues(map[string]float64{"ZB": 72})}}
	f := NewCreate(b)

	if err := f.AutoProfile(context.Background()); !errors.Is(err, ErrNoGrapes) {
		t.Fatalf("Expected ErrNoGrapes without grapes, but got %v", err)
	}
	if b.autoReq != nil {
		t.Fatal("Expected no backend call without grapes")
	}

	f.SetGrapes([]GrapeRow{{Variety: "Chenin Blanc", Weight: 1}})
	fl := f.State().Fields
	fl.Soil = "schist"
	fl.OakMonths = 6
	f.SetFields(fl)
	if err := f.AutoProfile(context.Background()); err != nil {
		t.Fatalf("AutoProfile() returned an unexpected error: %v", err)
	}
	if b.autoReq.OakMonths != 6 || b.autoReq.Soil == nil || *b.autoReq.Soil != "schist" {
		t.Errorf("Unexpected request %+v", b.autoReq)
	}
	if f.Profile().Get(domain.AxisZB) != 72 || f.Profile().Get(domain.AxisGF) != 50 {
		t.Errorf("Expected the rule profile with defaults, but got %v", f.Profile())
	}
	if f.State().Verify != VerifyRules {
		t.Errorf("Expected verify pill '%s'", VerifyRules)
	}
}

func TestSuggestWindow(t *testing.T) {
	draft := func(b *fakeBackend) *Form {
		f := NewCreate(b, WithFallbackYear(2025))
		fl := f.State().Fields
		fl.Color = "rood"
		fl.Vintage = 2015
		fl.Climate = "temperate"
		f.SetFields(fl)
		f.SetGrapes([]GrapeRow{{Variety: "Cabernet Sauvignon", Weight: 1}})
		return f
	}

	t.Run("heuristic fallback", func(t *testing.T) {
		f := draft(&fakeBackend{})
		w := f.SuggestWindow(context.Background())
		if w.From != 2018 || w.To != 2030 {
			t.Errorf("Expected 2018–2030, but got %d–%d", w.From, w.To)
		}
		st := f.State()
		if *st.Fields.DrinkingFrom != 2018 || *st.Fields.DrinkingTo != 2030 {
			t.Error("Expected the window to be written into the form")
		}
		if st.WindowMessage != "Suggestie: 2018–2030" {
			t.Errorf("Unexpected window message %q", st.WindowMessage)
		}
	})

	t.Run("server window wins", func(t *testing.T) {
		b := &fakeBackend{enrichResp: &cellarapi.EnrichResponse{WindowFrom: domain.Ptr(2019), WindowTo: domain.Ptr(2027)}}
		w := draft(b).SuggestWindow(context.Background())
		if w.From != 2019 || w.To != 2027 {
			t.Errorf("Expected 2019–2027, but got %d–%d", w.From, w.To)
		}
	})

	t.Run("server failure falls back", func(t *testing.T) {
		b := &fakeBackend{enrichErr: errors.New("boom")}
		w := draft(b).SuggestWindow(context.Background())
		if w.From != 2018 || w.To != 2030 {
			t.Errorf("Expected 2018–2030, but got %d–%d", w.From, w.To)
		}
	})
}

func TestSaveValidation(t *testing.T) {
	testCases := []struct {
		name     string
		fill     func(f *Form)
		expected string
	}{
		{name: "missing name", fill: func(f *Form) {}, expected: MsgNameRequired},
		{name: "missing vintage", fill: func(f *Form) {
			fl := f.State().Fields
			fl.Name = "Barolo"
			f.SetFields(fl)
		}, expected: MsgVintageRequired},
		{name: "missing grapes", fill: func(f *Form) {
			fl := f.State().Fields
			fl.Name = "Barolo"
			fl.Vintage = 2016
			f.SetFields(fl)
		}, expected: MsgNoGrapes},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := &fakeBackend{}
			f := NewCreate(b)
			tc.fill(f)
			_, err := f.Save(context.Background())
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Message != tc.expected {
				t.Errorf("Expected validation message '%s', but got %v", tc.expected, err)
			}
			if len(b.created) != 0 {
				t.Error("Expected no create call for an invalid draft")
			}
		})
	}
}

func TestSaveCreate(t *testing.T) {
	b := &fakeBackend{}
	f := NewCreate(b)
	fl := f.State().Fields
	fl.Name = "Barolo"
	fl.Vintage = 2016
	fl.Country = "Italy"
	fl.Region = "Piemonte"
	f.SetFields(fl)
	f.SetGrapes([]GrapeRow{{Variety: "Nebbiolo", Weight: 1}})

	if !f.Dirty() {
		t.Error("Expected the edited form to be dirty")
	}
	id, err := f.Save(context.Background())
	if err != nil {
		t.Fatalf("Save() returned an unexpected error: %v", err)
	}
	if id != 1 || f.ID() != 1 {
		t.Errorf("Expected id 1, but got %d", id)
	}
	if msg := f.State().SaveMessage; !msg.OK || msg.Text != "Opgeslagen (#1)" {
		t.Errorf("Unexpected save message %+v", msg)
	}
	if f.Dirty() {
		t.Error("Expected the form to be clean after saving")
	}
	got := b.created[0]
	if got.Region != "Piemonte" || got.Country != "Italy" || got.Profile == nil || *got.Sweetness != "dry" {
		t.Errorf("Unexpected payload %+v", got)
	}
}

func TestSaveFailure(t *testing.T) {
	b := &fakeBackend{saveErr: &cellarapi.APIError{Status: 400, Detail: "Ontbrekend veld: climate"}}
	f := NewCreate(b)
	fl := f.State().Fields
	fl.Name, fl.Vintage = "Barolo", 2016
	f.SetFields(fl)
	f.SetGrapes([]GrapeRow{{Variety: "Nebbiolo", Weight: 1}})

	if _, err := f.Save(context.Background()); err == nil {
		t.Fatal("Expected an error")
	}
	if msg := f.State().SaveMessage; msg.OK || msg.Text != "Ontbrekend veld: climate" {
		t.Errorf("Unexpected save message %+v", msg)
	}
}

func TestLoadEdit(t *testing.T) {
	p := domain.FromValues(map[string]float64{"ZB": 30})
	b := &fakeBackend{wine: &domain.Wine{
		ID:      4,
		Name:    "Côte-Rôtie",
		Region:  "Rhône",
		Climate: "",
		Vintage: 2017,
		Elevage: domain.Ptr("18 maanden op barrique"),
		Grapes:  []domain.Grape{{Variety: "Syrah", Weight: 0.95}, {Variety: "Viognier", Weight: 0.05}},
		Profile: &p,
	}}

	f, err := LoadEdit(context.Background(), b, 4)
	if err != nil {
		t.Fatalf("LoadEdit() returned an unexpected error: %v", err)
	}
	st := f.State()
	if st.Title != "#4 — Côte-Rôtie" {
		t.Errorf("Unexpected title %q", st.Title)
	}
	if st.Fields.Country != "France" || st.Fields.Region != "Rhône" {
		t.Errorf("Expected the region to be placed under France, but got %s/%s", st.Fields.Country, st.Fields.Region)
	}
	if st.Fields.Climate != "temperate" || st.Fields.BottleSizeML != 750 {
		t.Errorf("Expected defaults for missing climate and bottle size, but got %+v", st.Fields)
	}
	if f.Draft().OakMonths != 18 {
		t.Errorf("Expected oak months from elevage, but got %d", f.Draft().OakMonths)
	}
	if f.Dirty() {
		t.Error("Expected a freshly loaded form not to be dirty")
	}

	if _, err := f.Save(context.Background()); err != nil {
		t.Fatalf("Save() returned an unexpected error: %v", err)
	}
	if _, ok := b.updated[4]; !ok {
		t.Error("Expected the update call for wine 4")
	}
	if len(b.created) != 0 {
		t.Error("Expected no create call from an edit form")
	}
	if msg := f.State().SaveMessage; msg.Text != MsgSaved {
		t.Errorf("Unexpected save message %+v", msg)
	}
}

func TestLoadEditUnlistedRegion(t *testing.T) {
	b := &fakeBackend{wine: &domain.Wine{Name: "Vin Jaune", Region: "Jura", Vintage: 2012}}
	f, err := LoadEdit(context.Background(), b, 9)
	if err != nil {
		t.Fatalf("LoadEdit() returned an unexpected error: %v", err)
	}
	if !f.RegionOtherEnabled() || f.State().Fields.RegionOther != "Jura" {
		t.Errorf("Expected 'Jura' in the free-text region, but got %+v", f.State().Fields)
	}
	if len(f.State().Grapes) != 1 {
		t.Error("Expected one blank grape row for a wine without grapes")
	}
	if f.Draft().Region != "Jura" {
		t.Errorf("Expected region 'Jura' to round-trip, but got '%s'", f.Draft().Region)
	}
}

func TestLoadEditNotFound(t *testing.T) {
	_, err := LoadEdit(context.Background(), &fakeBackend{}, 5)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, but got %v", err)
	}
}

func TestRestoreKeepsPersistence(t *testing.T) {
	b := &fakeBackend{wine: &domain.Wine{Name: "Rioja", Region: "Rioja", Vintage: 2019, Grapes: []domain.Grape{{Variety: "Tempranillo", Weight: 1}}}}
	f, _ := LoadEdit(context.Background(), b, 12)

	r := Restore(b, f.State())
	if _, err := r.Save(context.Background()); err != nil {
		t.Fatalf("Save() returned an unexpected error: %v", err)
	}
	if _, ok := b.updated[12]; !ok {
		t.Error("Expected a restored edit form to keep updating wine 12")
	}
}

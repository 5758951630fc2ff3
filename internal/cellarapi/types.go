package cellarapi

import "github.com/conorfennell/cellarfront/internal/domain"

// AutoProfileRequest asks the backend to derive a profile from its rules.
type AutoProfileRequest struct {
	Grapes    []domain.Grape `json:"grapes"`
	Climate   string         `json:"climate"`
	Soil      *string        `json:"soil"`
	OakMonths int            `json:"oak_months"`
}

// AutoProfileResponse carries the rule-based profile.
type AutoProfileResponse struct {
	Profile    domain.Profile `json:"profile"`
	Confidence float64        `json:"confidence"`
}

// EnrichRequest describes the wine to look up in external sources.
type EnrichRequest struct {
	Region     string         `json:"region,omitempty"`
	Country    string         `json:"country,omitempty"`
	Color      string         `json:"color,omitempty"`
	Climate    string         `json:"climate,omitempty"`
	Vintage    int            `json:"vintage,omitempty"`
	Grapes     []domain.Grape `json:"grapes,omitempty"`
	GrapeTerms []string       `json:"grape_terms,omitempty"`
}

// EnrichResponse holds the enrichment deltas. The window may arrive either
// flat (window_from/window_to) or nested (drinking_window).
type EnrichResponse struct {
	AxesDelta      map[string]float64 `json:"axes_delta"`
	Notes          string             `json:"notes"`
	Sources        []domain.Source    `json:"sources"`
	WindowFrom     *int               `json:"window_from"`
	WindowTo       *int               `json:"window_to"`
	DrinkingWindow *struct {
		From *int `json:"from"`
		To   *int `json:"to"`
	} `json:"drinking_window"`
}

// Window returns the suggested drinking window, flat fields first.
// ok is false unless both ends are known.
func (r *EnrichResponse) Window() (from, to int, ok bool) {
	pick := func(flat, nested *int) int {
		if flat != nil && *flat != 0 {
			return *flat
		}
		if nested != nil {
			return *nested
		}
		return 0
	}
	var nf, nt *int
	if r.DrinkingWindow != nil {
		nf, nt = r.DrinkingWindow.From, r.DrinkingWindow.To
	}
	from, to = pick(r.WindowFrom, nf), pick(r.WindowTo, nt)
	return from, to, from != 0 && to != 0
}

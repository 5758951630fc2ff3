// Package drinkwindow estimates when a wine is ready to drink from its
// color, dominant grape and climate. It is the fallback used when the
// backend has no window to offer.
package drinkwindow

import (
	"strings"

	"github.com/conorfennell/cellarfront/internal/domain"
)

// Window is an inclusive range of years.
type Window struct {
	From int
	To   int
}

// Valid reports whether both ends are set.
func (w Window) Valid() bool {
	return w.From > 0 && w.To > 0
}

// Input holds the wine properties the heuristic looks at.
type Input struct {
	Color   string
	Grapes  []domain.Grape
	Climate string
	Vintage int
}

type rule struct {
	grapes []string
	lo, hi int
}

var (
	whiteRules = []rule{
		{[]string{"riesling", "chenin"}, 2, 10},
		{[]string{"chardonnay"}, 1, 8},
	}
	redRules = []rule{
		{[]string{"nebbiolo", "cabernet", "syrah", "tempranillo"}, 3, 15},
		{[]string{"pinot noir", "sangiovese", "grenache", "merlot"}, 2, 10},
	}
)

// Estimate returns the heuristic window. A zero vintage is replaced by
// fallbackYear.
func Estimate(in Input, fallbackYear int) Window {
	y := in.Vintage
	if y == 0 {
		y = fallbackYear
	}
	color := strings.ToLower(in.Color)
	grape := strings.ToLower(DominantGrape(in.Grapes))
	climate := strings.ToLower(strings.TrimSpace(in.Climate))
	if climate == "" {
		climate = "temperate"
	}

	span := func(lo, hi int) Window { return Window{From: y + lo, To: y + hi} }

	var w Window
	switch {
	case containsAny(color, "mousser", "spark") || strings.Contains(grape, "champ"):
		w = span(1, 5)
	case containsAny(color, "rosé", "rose"):
		w = span(0, 2)
	case containsAny(color, "wit", "white"):
		w = byGrape(grape, whiteRules, span, 0, 4)
	default:
		w = byGrape(grape, redRules, span, 1, 6)
	}

	switch climate {
	case "cool":
		w.From = max(w.From-1, y)
	case "warm":
		w.To--
	}
	return w
}

func byGrape(grape string, rules []rule, span func(int, int) Window, lo, hi int) Window {
	for _, r := range rules {
		if containsAny(grape, r.grapes...) {
			return span(r.lo, r.hi)
		}
	}
	return span(lo, hi)
}

// DominantGrape returns the variety with the highest weight; the first row
// wins a tie.
func DominantGrape(grapes []domain.Grape) string {
	best := -1
	for i, g := range grapes {
		if best < 0 || g.Weight > grapes[best].Weight {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return grapes[best].Variety
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

package web

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/conorfennell/cellarfront/internal/domain"
	"github.com/conorfennell/cellarfront/internal/winedraft"
)

// applyForm copies the posted widgets into f. Requests that do not carry
// the form (no name field) leave f untouched.
func applyForm(r *http.Request, f *winedraft.Form) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("failed to parse form: %w", err)
	}
	if _, ok := r.PostForm["name"]; !ok {
		return nil
	}
	v := r.PostForm.Get

	f.SetFields(winedraft.Fields{
		Name:             v("name"),
		Producer:         v("producer"),
		Color:            v("color"),
		Sweetness:        v("sweetness"),
		Country:          v("country"),
		Region:           v("region"),
		RegionOther:      v("region_other"),
		Climate:          v("climate"),
		Vintage:          atoi(v("vintage")),
		Soil:             v("soil"),
		OakMonths:        atoi(v("oak_months")),
		Elevage:          v("elevage"),
		ABV:              optFloat(v("abv")),
		PriceEUR:         optFloat(v("price_eur")),
		PurchasePriceEUR: optFloat(v("purchase_price_eur")),
		BottleSizeML:     atoi(v("bottle_size_ml")),
		StorageLocation:  v("storage_location"),
		Bottles:          atoi(v("bottles")),
		DrinkingFrom:     optInt(v("drinking_from")),
		DrinkingTo:       optInt(v("drinking_to")),
		FoodPairings:     v("food_pairings"),
		Notes:            v("notes"),
	})

	varieties := r.PostForm["grape_variety"]
	weights := r.PostForm["grape_weight"]
	rows := make([]winedraft.GrapeRow, len(varieties))
	for i, name := range varieties {
		rows[i].Variety = name
		if i < len(weights) {
			if w := optFloat(weights[i]); w != nil {
				rows[i].Weight = *w
			}
		}
	}
	f.SetGrapes(rows)

	for _, a := range domain.Axes {
		if s := v("axis_" + string(a)); s != "" {
			f.SetAxis(a, atoi(s))
		}
	}
	return nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

// optFloat accepts a decimal comma; blank or unreadable input is nil.
func optFloat(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func optInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

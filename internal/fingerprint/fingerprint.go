// Package fingerprint hashes wine drafts so a form can tell whether it has
// unsaved edits.
package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"github.com/conorfennell/cellarfront/internal/domain"
)

// Normalize renders the editable content of a wine as one string. Text
// fields are trimmed and line endings unified so that whitespace-only edits
// do not count as changes. Grape rows keep their order.
func Normalize(w domain.Wine) string {
	text := func(s string) string {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		return strings.TrimSpace(s)
	}
	opt := func(s *string) string {
		if s == nil {
			return ""
		}
		return text(*s)
	}
	num := func(f *float64) string {
		if f == nil {
			return ""
		}
		return strconv.FormatFloat(*f, 'f', -1, 64)
	}
	year := func(y *int) string {
		if y == nil {
			return ""
		}
		return strconv.Itoa(*y)
	}

	parts := []string{
		text(w.Name), opt(w.Producer), opt(w.Color), opt(w.Sweetness),
		text(w.Country), text(w.Region), text(w.Climate),
		strconv.Itoa(w.Vintage), opt(w.Soil), strconv.Itoa(w.OakMonths), opt(w.Elevage),
		num(w.ABV), num(w.PriceEUR), num(w.PurchasePriceEUR),
		strconv.Itoa(w.BottleSizeML), opt(w.StorageLocation), strconv.Itoa(w.Bottles),
		year(w.DrinkingFrom), year(w.DrinkingTo), opt(w.FoodPairings), opt(w.Notes),
	}
	for _, g := range w.Grapes {
		parts = append(parts, text(g.Variety)+"="+strconv.FormatFloat(g.Weight, 'f', -1, 64))
	}
	if w.Profile != nil {
		for _, a := range domain.Axes {
			parts = append(parts, string(a)+"="+strconv.Itoa(w.Profile.Get(a)))
		}
	}
	for _, s := range w.Sources {
		parts = append(parts, s.Type+"|"+s.Term+"|"+s.URL)
	}

	// Fields are newline separated so adjacent values cannot run together.
	return strings.Join(parts, "\n")
}

// Hash returns the SHA-256 of the normalized wine as a hex string.
func Hash(w domain.Wine) string {
	sum := sha256.Sum256([]byte(Normalize(w)))
	return fmt.Sprintf("%x", sum)
}

package domain

// Question is one step of the matching quiz.
type Question struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Options []Option `json:"options"`
}

// Option is a single selectable answer of a Question.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// HasOption reports whether id names one of the question's options.
func (q Question) HasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Answer records the option chosen for a question.
type Answer struct {
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id"`
}

// Grape is one row of a wine's grape composition. Weights form a loose
// distribution that is expected, not enforced, to sum to 1.0.
type Grape struct {
	Variety string  `json:"variety"`
	Weight  float64 `json:"weight"`
}

// Source is a citation returned by enrichment.
type Source struct {
	Type string `json:"type"`
	Term string `json:"term"`
	URL  string `json:"url"`
}

// Wine mirrors the persisted wine entity as the admin endpoints return it.
// Optional fields are pointers so that absent values survive a round trip.
type Wine struct {
	ID               int64    `json:"id,omitempty"`
	Name             string   `json:"name"`
	Producer         *string  `json:"producer"`
	Color            *string  `json:"color"`
	Sweetness        *string  `json:"sweetness"`
	Country          string   `json:"country,omitempty"`
	Region           string   `json:"region"`
	Climate          string   `json:"climate"`
	Grapes           []Grape  `json:"grapes"`
	Vintage          int      `json:"vintage"`
	Soil             *string  `json:"soil"`
	OakMonths        int      `json:"oak_months"`
	Elevage          *string  `json:"elevage"`
	ABV              *float64 `json:"abv"`
	PriceEUR         *float64 `json:"price_eur"`
	PurchasePriceEUR *float64 `json:"purchase_price_eur"`
	BottleSizeML     int      `json:"bottle_size_ml"`
	StorageLocation  *string  `json:"storage_location"`
	Bottles          int      `json:"bottles"`
	DrinkingFrom     *int     `json:"drinking_from"`
	DrinkingTo       *int     `json:"drinking_to"`
	FoodPairings     *string  `json:"food_pairings"`
	Profile          *Profile `json:"profile"`
	Notes            *string  `json:"notes"`
	Sources          []Source `json:"sources"`
}

// WineSummary is the part of a wine shown next to a match.
type WineSummary struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Region   string   `json:"region"`
	PriceEUR *float64 `json:"price_eur"`
	Profile  Scores   `json:"profile"`
}

// Match is one ranked result of the quiz.
type Match struct {
	Wine       WineSummary `json:"wine"`
	Why        string      `json:"why"`
	Similarity float64     `json:"similarity"`
}

// MatchResult is what the match endpoint returns for a completed quiz.
// Matches are kept in the order the server ranked them.
type MatchResult struct {
	UserProfile Scores  `json:"user_profile"`
	Matches     []Match `json:"matches"`
}

// StockItem is one row of the admin stock list.
type StockItem struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Region     string  `json:"region"`
	Vintage    *int    `json:"vintage"`
	Bottles    *int    `json:"bottles"`
	Climate    string  `json:"climate"`
	Grapes     []Grape `json:"grapes"`
	GrapesJoin string  `json:"grapes_join"`
}

// StockPage is a single page of the stock list.
type StockPage struct {
	Items []StockItem `json:"items"`
	Total int         `json:"total"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

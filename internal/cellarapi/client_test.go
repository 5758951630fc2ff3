package cellarapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/conorfennell/cellarfront/internal/domain"
)

func TestQuiz(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/quiz" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `{"questions":[{"id":"Q1","title":"Baseline?","options":[{"id":"A","label":"Fris"},{"id":"B","label":"Vol"}]}]}`)
	}))
	defer srv.Close()

	qs, err := New(srv.URL + "/").Quiz(context.Background())
	if err != nil {
		t.Fatalf("Quiz() returned an unexpected error: %v", err)
	}
	if len(qs) != 1 || len(qs[0].Options) != 2 {
		t.Fatalf("Expected 1 question with 2 options, but got %+v", qs)
	}
	if qs[0].Options[1].Label != "Vol" {
		t.Errorf("Expected second option label 'Vol', but got '%s'", qs[0].Options[1].Label)
	}
}

func TestMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			QuizAnswers []domain.Answer `json:"quiz_answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request: %v", err)
			return
		}
		if len(body.QuizAnswers) != 2 || body.QuizAnswers[1].OptionID != "C" {
			t.Errorf("Unexpected answers %+v", body.QuizAnswers)
		}
		io.WriteString(w, `{"user_profile":{"ZB":61.6,"MG":40,"LS":50,"PA":50,"GF":120},
			"matches":[{"wine":{"id":3,"name":"Chablis","region":"Burgundy","price_eur":null,"profile":{"ZB":70.2}},"why":"fris & balans","similarity":0.9123}]}`)
	}))
	defer srv.Close()

	res, err := New(srv.URL).Match(context.Background(), []domain.Answer{
		{QuestionID: "Q1", OptionID: "A"},
		{QuestionID: "Q2", OptionID: "C"},
	})
	if err != nil {
		t.Fatalf("Match() returned an unexpected error: %v", err)
	}
	if res.UserProfile[domain.AxisZB] != 62 {
		t.Errorf("Expected ZB to round to 62, but got %d", res.UserProfile[domain.AxisZB])
	}
	if res.UserProfile[domain.AxisGF] != 100 {
		t.Errorf("Expected GF to clamp to 100, but got %d", res.UserProfile[domain.AxisGF])
	}
	if len(res.Matches) != 1 || res.Matches[0].Wine.PriceEUR != nil {
		t.Fatalf("Unexpected matches %+v", res.Matches)
	}
	wp := res.Matches[0].Wine.Profile
	if _, ok := wp.Get(domain.AxisMG); ok || len(wp) != 1 || wp[domain.AxisZB] != 70 {
		t.Errorf("Expected only the sent ZB axis, but got %v", wp)
	}
}

func TestListWinesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "rioja & co" || q.Get("limit") != "20" || q.Get("offset") != "40" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		io.WriteString(w, `{"items":[{"id":1,"name":"Viña","region":"Rioja","vintage":2019,"bottles":6,"grapes_join":"Tempranillo"}],"total":45}`)
	}))
	defer srv.Close()

	page, err := New(srv.URL).ListWines(context.Background(), "rioja & co", 20, 40)
	if err != nil {
		t.Fatalf("ListWines() returned an unexpected error: %v", err)
	}
	if page.Total != 45 || len(page.Items) != 1 || *page.Items[0].Bottles != 6 {
		t.Errorf("Unexpected page %+v", page)
	}
}

func TestErrorDetail(t *testing.T) {
	testCases := []struct {
		name           string
		status         int
		body           string
		expectedDetail string
	}{
		{name: "string detail", status: 400, body: `{"detail":"Ontbrekend veld: name"}`, expectedDetail: "Ontbrekend veld: name"},
		{name: "list detail", status: 422, body: `{"detail":[{"loc":["body"]}]}`, expectedDetail: ""},
		{name: "html body", status: 502, body: `<html>bad gateway</html>`, expectedDetail: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			err := New(srv.URL).DeleteWine(context.Background(), 7)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Expected *APIError, but got %v", err)
			}
			if apiErr.Status != tc.status {
				t.Errorf("Expected status %d, but got %d", tc.status, apiErr.Status)
			}
			if got := Detail(err, "fallback"); tc.expectedDetail != "" && got != tc.expectedDetail {
				t.Errorf("Expected detail '%s', but got '%s'", tc.expectedDetail, got)
			} else if tc.expectedDetail == "" && got != "fallback" {
				t.Errorf("Expected fallback detail, but got '%s'", got)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/admin/wine/99" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail":"Wine not found"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetWine(context.Background(), 99)
	if !IsNotFound(err) {
		t.Errorf("Expected a not-found error, but got %v", err)
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := New(srv.URL).Quiz(context.Background())
	if err == nil {
		t.Fatal("Expected an error for a closed server")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("Expected a transport error, but got an API error %v", apiErr)
	}
	if Detail(err, "Onbekende fout") != "Onbekende fout" {
		t.Error("Expected the fallback detail for a transport error")
	}
}

func TestEnrichWindow(t *testing.T) {
	testCases := []struct {
		name         string
		body         string
		expectedFrom int
		expectedTo   int
		expectedOK   bool
	}{
		{name: "flat", body: `{"window_from":2020,"window_to":2028}`, expectedFrom: 2020, expectedTo: 2028, expectedOK: true},
		{name: "nested", body: `{"drinking_window":{"from":2021,"to":2030}}`, expectedFrom: 2021, expectedTo: 2030, expectedOK: true},
		{name: "half", body: `{"window_from":2020}`, expectedFrom: 2020, expectedOK: false},
		{name: "none", body: `{"notes":"x"}`, expectedOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var r EnrichResponse
			if err := json.Unmarshal([]byte(tc.body), &r); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			from, to, ok := r.Window()
			if from != tc.expectedFrom || to != tc.expectedTo || ok != tc.expectedOK {
				t.Errorf("Expected (%d, %d, %v), but got (%d, %d, %v)", tc.expectedFrom, tc.expectedTo, tc.expectedOK, from, to, ok)
			}
		})
	}
}

// Package stock pages through the admin wine list and deletes entries after
// confirmation.
package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/conorfennell/cellarfront/internal/domain"
)

// PageSize is the number of wines fetched per page.
const PageSize = 20

const (
	MsgNoResults    = "Geen resultaten"
	MsgLoadFailed   = "Fout bij laden lijst"
	MsgDeleteFailed = "Verwijderen mislukt"
)

var ErrDeleteFailed = errors.New(MsgDeleteFailed)

// Backend is the part of the wine API the list uses.
type Backend interface {
	ListWines(ctx context.Context, q string, limit, offset int) (*domain.StockPage, error)
	DeleteWine(ctx context.Context, id int64) error
}

// Confirmer asks the user to confirm a prompt.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm calls fn.
func (fn ConfirmFunc) Confirm(prompt string) bool { return fn(prompt) }

// State is the serialisable list state.
type State struct {
	Query  string             `json:"query"`
	Page   int                `json:"page"`
	Total  int                `json:"total"`
	Items  []domain.StockItem `json:"items"`
	Failed bool               `json:"failed"`
}

// List is one admin's view of the stock list. It is not safe for
// concurrent use.
type List struct {
	backend Backend
	st      State
}

// New returns an empty list on the first page.
func New(backend Backend) *List {
	return &List{backend: backend}
}

// Restore rebuilds a list from saved state.
func Restore(backend Backend, st State) *List {
	return &List{backend: backend, st: st}
}

// State returns a copy of the list state.
func (l *List) State() State {
	st := l.st
	st.Items = append([]domain.StockItem(nil), l.st.Items...)
	return st
}

// Refresh fetches the current page. The query is forwarded to the server
// trimmed and lower-cased; items are shown as the server returns them.
func (l *List) Refresh(ctx context.Context) error {
	page, err := l.backend.ListWines(ctx, l.st.Query, PageSize, l.st.Page*PageSize)
	if err != nil {
		l.st.Failed = true
		slog.Warn("Loading stock list failed", "query", l.st.Query, "page", l.st.Page, "error", err)
		return fmt.Errorf("list wines: %w", err)
	}
	l.st.Failed = false
	l.st.Total = page.Total
	l.st.Items = page.Items
	return nil
}

// Search starts a new query on the first page.
func (l *List) Search(ctx context.Context, q string) error {
	l.st.Query = strings.ToLower(strings.TrimSpace(q))
	l.st.Page = 0
	return l.Refresh(ctx)
}

// HasPrev reports whether there is a page before the current one.
func (l *List) HasPrev() bool { return l.st.Page > 0 }

// HasNext reports whether there is a page after the current one.
func (l *List) HasNext() bool { return (l.st.Page+1)*PageSize < l.st.Total }

// PrevPage moves one page back. It does nothing on the first page.
func (l *List) PrevPage(ctx context.Context) error {
	if !l.HasPrev() {
		return nil
	}
	l.st.Page--
	return l.Refresh(ctx)
}

// NextPage moves one page forward. It does nothing on the last page.
func (l *List) NextPage(ctx context.Context) error {
	if !l.HasNext() {
		return nil
	}
	l.st.Page++
	return l.Refresh(ctx)
}

// Goto jumps to a zero-based page. Negative pages clamp to the first.
func (l *List) Goto(ctx context.Context, page int) error {
	l.st.Page = max(page, 0)
	return l.Refresh(ctx)
}

// Info returns the pagination line, e.g. "41–45 van 45".
func (l *List) Info() string {
	return Info(l.st.Page, l.st.Total, l.st.Failed)
}

// Info formats the pagination line for a zero-based page.
func Info(page, total int, failed bool) string {
	if failed {
		return MsgLoadFailed
	}
	if total == 0 {
		return MsgNoResults
	}
	from := page*PageSize + 1
	to := min((page+1)*PageSize, total)
	return fmt.Sprintf("%d–%d van %d", from, to, total)
}

// DeletePrompt is the confirmation question for deleting a wine.
func DeletePrompt(id int64, name string) string {
	return fmt.Sprintf("Verwijder #%d - %s?", id, name)
}

// Delete removes a wine after confirmation and refreshes the list. A
// declined prompt makes no call and returns deleted=false.
func (l *List) Delete(ctx context.Context, id int64, name string, c Confirmer) (bool, error) {
	if !c.Confirm(DeletePrompt(id, name)) {
		return false, nil
	}
	if err := l.backend.DeleteWine(ctx, id); err != nil {
		slog.Warn("Deleting wine failed", "id", id, "error", err)
		return false, fmt.Errorf("%w: #%d: %v", ErrDeleteFailed, id, err)
	}
	slog.Info("Wine deleted", "id", id)
	if err := l.Refresh(ctx); err != nil {
		return true, err
	}
	// The last item of the last page is gone; step back to a page that
	// still has rows.
	if len(l.st.Items) == 0 && l.st.Page > 0 {
		return true, l.PrevPage(ctx)
	}
	return true, nil
}

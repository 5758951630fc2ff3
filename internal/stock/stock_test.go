package stock

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/conorfennell/cellarfront/internal/domain"
)

type listCall struct {
	q             string
	limit, offset int
}

type fakeBackend struct {
	total     int
	listErr   error
	deleteErr error
	lists     []listCall
	deleted   []int64
}

func (f *fakeBackend) ListWines(ctx context.Context, q string, limit, offset int) (*domain.StockPage, error) {
	f.lists = append(f.lists, listCall{q, limit, offset})
	if f.listErr != nil {
		return nil, f.listErr
	}
	var items []domain.StockItem
	for i := offset; i < min(offset+limit, f.total); i++ {
		items = append(items, domain.StockItem{ID: int64(i + 1), Name: fmt.Sprintf("Wijn %d", i+1)})
	}
	return &domain.StockPage{Items: items, Total: f.total}, nil
}

func (f *fakeBackend) DeleteWine(ctx context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	f.total--
	return nil
}

func TestInfo(t *testing.T) {
	testCases := []struct {
		name     string
		page     int
		total    int
		failed   bool
		expected string
	}{
		{name: "first page", page: 0, total: 45, expected: "1–20 van 45"},
		{name: "last partial page", page: 2, total: 45, expected: "41–45 van 45"},
		{name: "exact page", page: 0, total: 20, expected: "1–20 van 20"},
		{name: "empty", page: 0, total: 0, expected: MsgNoResults},
		{name: "failed", page: 1, total: 45, failed: true, expected: MsgLoadFailed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Info(tc.page, tc.total, tc.failed); got != tc.expected {
				t.Errorf("Expected '%s', but got '%s'", tc.expected, got)
			}
		})
	}
}

func TestPaging(t *testing.T) {
	b := &fakeBackend{total: 45}
	l := New(b)
	ctx := context.Background()

	if err := l.Search(ctx, "  Rioja "); err != nil {
		t.Fatalf("Search() returned an unexpected error: %v", err)
	}
	if b.lists[0] != (listCall{"rioja", 20, 0}) {
		t.Errorf("Unexpected first request %+v", b.lists[0])
	}
	if l.HasPrev() {
		t.Error("Expected no previous page on page 0")
	}

	l.NextPage(ctx)
	l.NextPage(ctx)
	if l.Info() != "41–45 van 45" {
		t.Errorf("Expected '41–45 van 45', but got '%s'", l.Info())
	}
	if l.HasNext() {
		t.Error("Expected no next page on the last page")
	}
	calls := len(b.lists)
	l.NextPage(ctx)
	if len(b.lists) != calls {
		t.Error("Expected no request past the last page")
	}
	if b.lists[2].offset != 40 {
		t.Errorf("Expected offset 40 for page 2, but got %d", b.lists[2].offset)
	}

	l.Search(ctx, "merlot")
	if l.State().Page != 0 {
		t.Errorf("Expected a new search to reset to page 0, but got %d", l.State().Page)
	}
}

func TestRefreshFailure(t *testing.T) {
	l := New(&fakeBackend{listErr: errors.New("down")})
	if err := l.Refresh(context.Background()); err == nil {
		t.Fatal("Expected an error")
	}
	if l.Info() != MsgLoadFailed {
		t.Errorf("Expected '%s', but got '%s'", MsgLoadFailed, l.Info())
	}
}

func TestDeleteDeclined(t *testing.T) {
	b := &fakeBackend{total: 3}
	l := New(b)
	l.Refresh(context.Background())
	calls := len(b.lists)

	var prompt string
	deleted, err := l.Delete(context.Background(), 2, "Wijn 2", ConfirmFunc(func(p string) bool {
		prompt = p
		return false
	}))
	if err != nil || deleted {
		t.Fatalf("Expected a declined delete to do nothing, but got %v, %v", deleted, err)
	}
	if prompt != "Verwijder #2 - Wijn 2?" {
		t.Errorf("Unexpected prompt %q", prompt)
	}
	if len(b.deleted) != 0 || len(b.lists) != calls {
		t.Error("Expected no network call after declining")
	}
	if len(l.State().Items) != 3 {
		t.Error("Expected the row to stay present")
	}
}

func TestDeleteConfirmed(t *testing.T) {
	b := &fakeBackend{total: 3}
	l := New(b)
	l.Refresh(context.Background())

	deleted, err := l.Delete(context.Background(), 2, "Wijn 2", ConfirmFunc(func(string) bool { return true }))
	if err != nil || !deleted {
		t.Fatalf("Expected the delete to succeed, but got %v, %v", deleted, err)
	}
	if len(b.deleted) != 1 || b.deleted[0] != 2 {
		t.Errorf("Expected wine 2 to be deleted, but got %v", b.deleted)
	}
	if l.State().Total != 2 {
		t.Errorf("Expected the list to be refreshed, but total is %d", l.State().Total)
	}
}

func TestDeleteLastRowOfPage(t *testing.T) {
	b := &fakeBackend{total: 21}
	l := New(b)
	ctx := context.Background()
	l.Refresh(ctx)
	l.NextPage(ctx)

	if _, err := l.Delete(ctx, 21, "Wijn 21", ConfirmFunc(func(string) bool { return true })); err != nil {
		t.Fatalf("Delete() returned an unexpected error: %v", err)
	}
	if l.State().Page != 0 || len(l.State().Items) != 20 {
		t.Errorf("Expected to step back to a full first page, but got page %d with %d items", l.State().Page, len(l.State().Items))
	}
}

func TestDeleteFailure(t *testing.T) {
	b := &fakeBackend{total: 3, deleteErr: errors.New("500")}
	l := New(b)
	_, err := l.Delete(context.Background(), 1, "Wijn 1", ConfirmFunc(func(string) bool { return true }))
	if !errors.Is(err, ErrDeleteFailed) {
		t.Errorf("Expected ErrDeleteFailed, but got %v", err)
	}
}

func TestGoto(t *testing.T) {
	b := &fakeBackend{total: 45}
	l := New(b)

	if err := l.Goto(context.Background(), 2); err != nil {
		t.Fatalf("Goto() returned an unexpected error: %v", err)
	}
	if got := b.lists[len(b.lists)-1]; got.offset != 40 {
		t.Errorf("Expected offset 40, but got %d", got.offset)
	}
	l.Goto(context.Background(), -3)
	if l.State().Page != 0 {
		t.Errorf("Expected a negative page to clamp to 0, but got %d", l.State().Page)
	}
}

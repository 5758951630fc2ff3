package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/conorfennell/cellarfront/internal/stock"
	"github.com/conorfennell/cellarfront/internal/storage"
	"github.com/conorfennell/cellarfront/internal/view"
	"github.com/conorfennell/cellarfront/internal/winedraft"
)

const (
	tabForm  = "form"
	tabStock = "stock"
)

type formPanel struct {
	view.FormView
	Prefix string
	Target string
	Busy   string
}

type stockPanel struct {
	view.TableView
	Alert string
	Flash string
	Busy  string
}

type adminPage struct {
	Tab   string
	Form  formPanel
	Stock stockPanel
}

type editPage struct {
	Form formPanel
}

func (s *Server) createPanel(f *winedraft.Form) formPanel {
	return formPanel{FormView: view.Form(f), Prefix: "/admin/new", Target: "#admin-body", Busy: view.BusyLabel}
}

func (s *Server) editPanel(f *winedraft.Form) formPanel {
	return formPanel{
		FormView: view.Form(f),
		Prefix:   fmt.Sprintf("/admin/wine/%d", f.ID()),
		Target:   "#edit-body",
		Busy:     view.BusyLabel,
	}
}

func newStockPanel(l *stock.List) stockPanel {
	return stockPanel{TableView: view.Table(l), Busy: view.BusyLabel}
}

// loadCreateForm restores the session's create form or starts a blank one.
func (s *Server) loadCreateForm(r *http.Request) *winedraft.Form {
	var st winedraft.State
	found, err := s.db.LoadState(sessionID(r), storage.KindForm, &st)
	if err != nil {
		slog.Warn("Discarding unreadable form state", "error", err)
	}
	if !found || err != nil || st.Mode != winedraft.Create {
		return winedraft.NewCreate(s.api, s.formOpts...)
	}
	return winedraft.Restore(s.api, st, s.formOpts...)
}

func (s *Server) loadStock(r *http.Request) *stock.List {
	var st stock.State
	if _, err := s.db.LoadState(sessionID(r), storage.KindStock, &st); err != nil {
		slog.Warn("Discarding unreadable stock state", "error", err)
		st = stock.State{}
	}
	return stock.Restore(s.api, st)
}

// handleAdminPage renders the create form and the stock list. The list is
// refetched on every page load.
func (s *Server) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	tab := tabForm
	if r.URL.Query().Get("tab") == tabStock {
		tab = tabStock
	}
	f := s.loadCreateForm(r)
	l := s.loadStock(r)
	l.Refresh(r.Context())
	if !s.save(w, r, storage.KindForm, f.State()) || !s.save(w, r, storage.KindStock, l.State()) {
		return
	}
	s.render(w, http.StatusOK, "admin", adminPage{Tab: tab, Form: s.createPanel(f), Stock: newStockPanel(l)})
}

// handleCreateAction applies the posted widgets to the create form, runs
// the named action and re-renders the admin body.
func (s *Server) handleCreateAction(w http.ResponseWriter, r *http.Request) {
	f := s.loadCreateForm(r)
	if err := applyForm(r, f); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	action := r.PathValue("action")
	if action == "save" {
		s.createSave(w, r, f)
		return
	}
	if status, err := runFormAction(r.Context(), action, r, f); err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	if !s.save(w, r, storage.KindForm, f.State()) {
		return
	}
	page := adminPage{Tab: tabForm, Form: s.createPanel(f), Stock: newStockPanel(s.loadStock(r))}
	s.render(w, http.StatusOK, "admin_body", page)
}

// createSave persists a new wine. On success the form starts over and the
// stock tab is shown freshly loaded.
func (s *Server) createSave(w http.ResponseWriter, r *http.Request, f *winedraft.Form) {
	l := s.loadStock(r)
	if _, err := f.Save(r.Context()); err != nil {
		if !s.save(w, r, storage.KindForm, f.State()) {
			return
		}
		s.render(w, http.StatusOK, "admin_body", adminPage{Tab: tabForm, Form: s.createPanel(f), Stock: newStockPanel(l)})
		return
	}

	flash := f.State().SaveMessage.Text
	f = winedraft.NewCreate(s.api, s.formOpts...)
	l.Refresh(r.Context())
	if err := s.db.DeleteState(sessionID(r), storage.KindForm); err != nil {
		slog.Error("Failed to reset form state", "error", err)
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}
	if !s.save(w, r, storage.KindStock, l.State()) {
		return
	}
	panel := newStockPanel(l)
	panel.Flash = flash
	s.render(w, http.StatusOK, "admin_body", adminPage{Tab: tabStock, Form: s.createPanel(f), Stock: panel})
}

// runFormAction dispatches the form actions shared by the create and edit
// pages. Backend failures are reported on the form itself, so only unknown
// actions and malformed input produce an error status.
func runFormAction(ctx context.Context, action string, r *http.Request, f *winedraft.Form) (int, error) {
	switch action {
	case "fields":
	case "country":
		f.SetCountry(r.PostFormValue("country"))
	case "grape-add":
		f.AddGrape()
	case "grape-remove":
		i, err := strconv.Atoi(r.PostFormValue("index"))
		if err != nil {
			return http.StatusBadRequest, fmt.Errorf("invalid grape row %q", r.PostFormValue("index"))
		}
		f.RemoveGrape(i)
	case "normalize":
		f.NormalizeWeights()
	case "autoprofile":
		if err := f.AutoProfile(ctx); err != nil {
			slog.Info("Auto profile not applied", "error", err)
		}
	case "enrich":
		if err := f.Enrich(ctx); err != nil {
			slog.Info("Enrichment not applied", "error", err)
		}
	case "window":
		f.SuggestWindow(ctx)
	default:
		return http.StatusNotFound, fmt.Errorf("unknown action %q", action)
	}
	return http.StatusOK, nil
}

func (s *Server) stockAction(w http.ResponseWriter, r *http.Request, fn func(l *stock.List) string) {
	l := s.loadStock(r)
	alert := fn(l)
	if !s.save(w, r, storage.KindStock, l.State()) {
		return
	}
	panel := newStockPanel(l)
	panel.Alert = alert
	s.render(w, http.StatusOK, "stock_panel", panel)
}

func (s *Server) handleStockSearch(w http.ResponseWriter, r *http.Request) {
	s.stockAction(w, r, func(l *stock.List) string {
		l.Search(r.Context(), r.PostFormValue("q"))
		return ""
	})
}

func (s *Server) handleStockPrev(w http.ResponseWriter, r *http.Request) {
	s.stockAction(w, r, func(l *stock.List) string {
		l.PrevPage(r.Context())
		return ""
	})
}

func (s *Server) handleStockNext(w http.ResponseWriter, r *http.Request) {
	s.stockAction(w, r, func(l *stock.List) string {
		l.NextPage(r.Context())
		return ""
	})
}

// handleStockDelete deletes a wine. The browser asks for confirmation and
// marks the request confirmed; without that mark nothing is deleted.
func (s *Server) handleStockDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid wine ID", http.StatusBadRequest)
		return
	}
	confirmed := stock.ConfirmFunc(func(string) bool {
		return r.PostFormValue("confirmed") == "true"
	})
	s.stockAction(w, r, func(l *stock.List) string {
		if _, err := l.Delete(r.Context(), id, r.PostFormValue("name"), confirmed); err != nil {
			if errors.Is(err, stock.ErrDeleteFailed) {
				return stock.MsgDeleteFailed
			}
		}
		return ""
	})
}

func parseWineID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid wine ID %q", r.PathValue("id"))
	}
	return id, nil
}

// loadEditForm restores the session's edit form when it belongs to wine id,
// and fetches the wine otherwise.
func (s *Server) loadEditForm(ctx context.Context, r *http.Request, id int64, fresh bool) (*winedraft.Form, error) {
	if !fresh {
		var st winedraft.State
		found, err := s.db.LoadState(sessionID(r), storage.KindEdit, &st)
		if err != nil {
			slog.Warn("Discarding unreadable edit state", "error", err)
		}
		if found && err == nil && st.Mode == winedraft.Edit && st.ID == id {
			return winedraft.Restore(s.api, st, s.formOpts...), nil
		}
	}
	return winedraft.LoadEdit(ctx, s.api, id, s.formOpts...)
}

func (s *Server) editLoadFailed(w http.ResponseWriter, id int64, err error) {
	if errors.Is(err, winedraft.ErrNotFound) {
		http.Error(w, "Wijn niet gevonden", http.StatusNotFound)
		return
	}
	slog.Error("Loading wine failed", "id", id, "error", err)
	http.Error(w, "Wijn laden mislukt", http.StatusBadGateway)
}

// handleEditPage loads the wine fresh from the backend and renders its
// edit form.
func (s *Server) handleEditPage(w http.ResponseWriter, r *http.Request) {
	id, err := parseWineID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f, err := s.loadEditForm(r.Context(), r, id, true)
	if err != nil {
		s.editLoadFailed(w, id, err)
		return
	}
	if !s.save(w, r, storage.KindEdit, f.State()) {
		return
	}
	s.render(w, http.StatusOK, "edit", editPage{Form: s.editPanel(f)})
}

// handleEditAction applies the posted widgets to the edit form and runs the
// named action. Saving keeps the form and shows the outcome inline.
func (s *Server) handleEditAction(w http.ResponseWriter, r *http.Request) {
	id, err := parseWineID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f, err := s.loadEditForm(r.Context(), r, id, false)
	if err != nil {
		s.editLoadFailed(w, id, err)
		return
	}
	if err := applyForm(r, f); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	action := r.PathValue("action")
	if action == "save" {
		f.Save(r.Context())
	} else if status, err := runFormAction(r.Context(), action, r, f); err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	if !s.save(w, r, storage.KindEdit, f.State()) {
		return
	}
	s.render(w, http.StatusOK, "edit_body", editPage{Form: s.editPanel(f)})
}

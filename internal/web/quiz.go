package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/conorfennell/cellarfront/internal/quiz"
	"github.com/conorfennell/cellarfront/internal/storage"
	"github.com/conorfennell/cellarfront/internal/view"
)

const msgQuizLoadFailed = "Vragen konden niet geladen worden."

type quizPanel struct {
	State   string
	Step    view.StepView
	Results view.ResultsView
	Alert   string
	Error   string
	Busy    string
}

func newQuizPanel(c *quiz.Controller) quizPanel {
	p := quizPanel{State: c.State().String(), Busy: view.BusyLabel}
	switch c.State() {
	case quiz.InProgress:
		p.Step = view.Step(c)
	case quiz.ShowingResults:
		p.Results = view.Results(c.Result())
	}
	return p
}

// loadQuiz restores the session's quiz, fetching the questions when the
// session has none yet.
func (s *Server) loadQuiz(ctx context.Context, r *http.Request) (*quiz.Controller, error) {
	var snap quiz.Snapshot
	if _, err := s.db.LoadState(sessionID(r), storage.KindQuiz, &snap); err != nil {
		slog.Warn("Discarding unreadable quiz state", "error", err)
		snap = quiz.Snapshot{}
	}
	c := quiz.Restore(s.api, snap)
	if c.State() == quiz.Loading {
		if err := c.Load(ctx); err != nil {
			return c, err
		}
	}
	return c, nil
}

// handleQuizPage renders the quiz at the session's current step.
func (s *Server) handleQuizPage(w http.ResponseWriter, r *http.Request) {
	c, err := s.loadQuiz(r.Context(), r)
	if err != nil {
		slog.Error("Loading quiz failed", "error", err)
		s.render(w, http.StatusBadGateway, "quiz", quizPanel{State: c.State().String(), Error: msgQuizLoadFailed})
		return
	}
	if !s.save(w, r, storage.KindQuiz, c.Snapshot()) {
		return
	}
	s.render(w, http.StatusOK, "quiz", newQuizPanel(c))
}

// quizAction runs fn against the session's quiz and re-renders the panel.
func (s *Server) quizAction(w http.ResponseWriter, r *http.Request, fn func(c *quiz.Controller) (alert string, status int)) {
	c, err := s.loadQuiz(r.Context(), r)
	if err != nil {
		slog.Error("Loading quiz failed", "error", err)
		s.render(w, http.StatusBadGateway, "quiz_panel", quizPanel{State: c.State().String(), Error: msgQuizLoadFailed})
		return
	}
	alert, status := fn(c)
	if !s.save(w, r, storage.KindQuiz, c.Snapshot()) {
		return
	}
	p := newQuizPanel(c)
	p.Alert = alert
	s.render(w, status, "quiz_panel", p)
}

func (s *Server) handleQuizSelect(w http.ResponseWriter, r *http.Request) {
	s.quizAction(w, r, func(c *quiz.Controller) (string, int) {
		if err := c.Select(r.PostFormValue("option")); err != nil {
			return "", http.StatusBadRequest
		}
		return "", http.StatusOK
	})
}

func (s *Server) handleQuizNext(w http.ResponseWriter, r *http.Request) {
	s.quizAction(w, r, func(c *quiz.Controller) (string, int) {
		err := c.Next(r.Context())
		switch {
		case err == nil:
			return "", http.StatusOK
		case errors.Is(err, quiz.ErrMatchFailed):
			return quiz.MatchFailedAlert, http.StatusOK
		default:
			return "", http.StatusBadRequest
		}
	})
}

func (s *Server) handleQuizPrev(w http.ResponseWriter, r *http.Request) {
	s.quizAction(w, r, func(c *quiz.Controller) (string, int) {
		c.Prev()
		return "", http.StatusOK
	})
}

func (s *Server) handleQuizRestart(w http.ResponseWriter, r *http.Request) {
	s.quizAction(w, r, func(c *quiz.Controller) (string, int) {
		if err := c.Restart(); err != nil {
			return "", http.StatusBadRequest
		}
		return "", http.StatusOK
	})
}

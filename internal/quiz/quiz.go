// Package quiz steps a respondent through the matching quiz and hands the
// collected answers to the backend for matching.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/conorfennell/cellarfront/internal/domain"
)

// State is the phase the quiz is in.
type State int

const (
	Loading State = iota
	InProgress
	Submitting
	ShowingResults
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case InProgress:
		return "in-progress"
	case Submitting:
		return "submitting"
	case ShowingResults:
		return "showing-results"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MatchFailedAlert is shown to the respondent when matching fails.
const MatchFailedAlert = "Er ging iets mis met matchen. Seed eerst de database."

var (
	ErrNoQuestions   = errors.New("quiz has no questions")
	ErrNotReady      = errors.New("quiz is not in progress")
	ErrUnanswered    = errors.New("current question has no answer")
	ErrUnknownOption = errors.New("option does not belong to the current question")
	ErrMatchFailed   = errors.New(MatchFailedAlert)
)

// Backend serves the questions and the matching.
type Backend interface {
	Quiz(ctx context.Context) ([]domain.Question, error)
	Match(ctx context.Context, answers []domain.Answer) (*domain.MatchResult, error)
}

// Controller owns one respondent's quiz session. It is not safe for
// concurrent use; callers serialise actions per session.
type Controller struct {
	backend   Backend
	questions []domain.Question
	step      int
	answers   []domain.Answer
	state     State
	result    *domain.MatchResult
}

// New returns a controller in the loading state.
func New(backend Backend) *Controller {
	return &Controller{backend: backend, state: Loading}
}

// Load fetches the question set and starts at the first question.
func (c *Controller) Load(ctx context.Context) error {
	qs, err := c.backend.Quiz(ctx)
	if err != nil {
		return fmt.Errorf("load quiz: %w", err)
	}
	if len(qs) == 0 {
		return ErrNoQuestions
	}
	c.questions = qs
	c.reset()
	return nil
}

func (c *Controller) reset() {
	c.step = 0
	c.answers = nil
	c.result = nil
	c.state = InProgress
}

// State returns the current phase.
func (c *Controller) State() State { return c.state }

// Step returns the zero-based index of the current question.
func (c *Controller) Step() int { return c.step }

// Len returns the number of questions.
func (c *Controller) Len() int { return len(c.questions) }

// Current returns the question at the current step.
func (c *Controller) Current() (domain.Question, bool) {
	if c.step < 0 || c.step >= len(c.questions) {
		return domain.Question{}, false
	}
	return c.questions[c.step], true
}

// AnswerFor returns the option recorded for a question.
func (c *Controller) AnswerFor(questionID string) (string, bool) {
	for _, a := range c.answers {
		if a.QuestionID == questionID {
			return a.OptionID, true
		}
	}
	return "", false
}

// Answers returns the recorded answers in the order they were first given.
func (c *Controller) Answers() []domain.Answer {
	return append([]domain.Answer(nil), c.answers...)
}

// Result returns the match result once the quiz has been submitted.
func (c *Controller) Result() *domain.MatchResult { return c.result }

// CanAdvance reports whether forward navigation is enabled.
func (c *Controller) CanAdvance() bool {
	if c.state != InProgress {
		return false
	}
	q, ok := c.Current()
	if !ok {
		return false
	}
	_, answered := c.AnswerFor(q.ID)
	return answered
}

// CanGoBack reports whether backward navigation is enabled.
func (c *Controller) CanGoBack() bool {
	return c.state == InProgress && c.step > 0
}

// Select records optionID as the answer to the current question,
// overwriting an earlier choice.
func (c *Controller) Select(optionID string) error {
	if c.state != InProgress {
		return ErrNotReady
	}
	q, _ := c.Current()
	if !q.HasOption(optionID) {
		return fmt.Errorf("%w: %q for %s", ErrUnknownOption, optionID, q.ID)
	}
	for i := range c.answers {
		if c.answers[i].QuestionID == q.ID {
			c.answers[i].OptionID = optionID
			return nil
		}
	}
	c.answers = append(c.answers, domain.Answer{QuestionID: q.ID, OptionID: optionID})
	return nil
}

// Prev moves one question back. It is a no-op on the first question.
func (c *Controller) Prev() {
	if c.CanGoBack() {
		c.step--
	}
}

// Next moves one question forward, or submits the answers for matching
// when the current question is the last one. A failed submission leaves
// the respondent on the last question with their answers intact.
func (c *Controller) Next(ctx context.Context) error {
	if c.state != InProgress {
		return ErrNotReady
	}
	if !c.CanAdvance() {
		return ErrUnanswered
	}
	if c.step < len(c.questions)-1 {
		c.step++
		return nil
	}

	c.state = Submitting
	res, err := c.backend.Match(ctx, c.Answers())
	if err != nil {
		c.state = InProgress
		slog.Warn("Quiz match failed", "answers", len(c.answers), "error", err)
		return fmt.Errorf("%w (%v)", ErrMatchFailed, err)
	}
	c.result = res
	c.state = ShowingResults
	slog.Info("Quiz matched", "answers", len(c.answers), "matches", len(res.Matches))
	return nil
}

// Restart clears all answers and returns to the first question.
func (c *Controller) Restart() error {
	if len(c.questions) == 0 {
		return ErrNotReady
	}
	c.reset()
	return nil
}

// Snapshot is the serialisable state of a controller.
type Snapshot struct {
	Questions []domain.Question   `json:"questions"`
	Step      int                 `json:"step"`
	Answers   []domain.Answer     `json:"answers"`
	State     State               `json:"state"`
	Result    *domain.MatchResult `json:"result,omitempty"`
}

// Snapshot captures the controller state.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		Questions: c.questions,
		Step:      c.step,
		Answers:   c.Answers(),
		State:     c.state,
		Result:    c.result,
	}
}

// Restore rebuilds a controller from a snapshot. A snapshot caught
// mid-submission resumes on the last question.
func Restore(backend Backend, s Snapshot) *Controller {
	c := &Controller{
		backend:   backend,
		questions: s.Questions,
		step:      s.Step,
		answers:   s.Answers,
		state:     s.State,
		result:    s.Result,
	}
	if c.state == Submitting {
		c.state = InProgress
	}
	if c.step < 0 || (len(c.questions) > 0 && c.step >= len(c.questions)) {
		c.step = 0
	}
	if len(c.questions) == 0 {
		c.state = Loading
	}
	return c
}

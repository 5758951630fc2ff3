package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/conorfennell/cellarfront/internal/config"
	"github.com/conorfennell/cellarfront/internal/quiz"
	"github.com/conorfennell/cellarfront/internal/view"
)

func runQuiz(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	cfg, err := setup(config.Flags("quiz"), args)
	if err != nil {
		return err
	}
	return playQuiz(ctx, quiz.New(newAPI(cfg)), in, out)
}

// playQuiz drives the controller from a terminal. Options are picked by
// number; b goes back, r restarts and q quits.
func playQuiz(ctx context.Context, c *quiz.Controller, in io.Reader, out io.Writer) error {
	if err := c.Load(ctx); err != nil {
		return err
	}
	scanner := bufio.NewScanner(in)
	for {
		if c.State() == quiz.ShowingResults {
			printResults(out, view.Results(c.Result()))
			return nil
		}

		step := view.Step(c)
		fmt.Fprintf(out, "\n%s\n", step.Heading)
		for i, o := range step.Options {
			mark := " "
			if o.Checked {
				mark = "*"
			}
			fmt.Fprintf(out, " %s %d) %s\n", mark, i+1, o.Label)
		}
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "q":
			return nil
		case "b":
			c.Prev()
			continue
		case "r":
			c.Restart()
			continue
		case "":
			// Keep a recorded answer and move on.
		default:
			n, err := strconv.Atoi(input)
			if err != nil || n < 1 || n > len(step.Options) {
				fmt.Fprintln(out, "Kies een nummer uit de lijst.")
				continue
			}
			if err := c.Select(step.Options[n-1].ID); err != nil {
				return err
			}
		}

		if err := c.Next(ctx); err != nil {
			switch {
			case errors.Is(err, quiz.ErrUnanswered):
				fmt.Fprintln(out, "Kies eerst een antwoord.")
			case errors.Is(err, quiz.ErrMatchFailed):
				fmt.Fprintln(out, quiz.MatchFailedAlert)
			default:
				return err
			}
		}
	}
}

func printResults(out io.Writer, r view.ResultsView) {
	fmt.Fprintln(out, "\nJouw profiel")
	for _, b := range r.Bars {
		fmt.Fprintf(out, "  %s %-20s %d\n", b.Axis, strings.Repeat("#", b.Value/5), b.Value)
	}
	fmt.Fprintln(out, "\nAanbevolen wijnen")
	for i, m := range r.Matches {
		fmt.Fprintf(out, "%2d. %s (%s) %s  %s\n", i+1, m.Name, m.Region, m.Price, m.Similarity)
		if m.Why != "" {
			fmt.Fprintf(out, "    %s\n", m.Why)
		}
		fmt.Fprintf(out, "    %s\n", m.Axes)
	}
}

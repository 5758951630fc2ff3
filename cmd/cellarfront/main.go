package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/cellarfront/internal/cellarapi"
	"github.com/conorfennell/cellarfront/internal/config"
	"github.com/conorfennell/cellarfront/internal/stock"
	"github.com/conorfennell/cellarfront/internal/storage"
	"github.com/conorfennell/cellarfront/internal/view"
	"github.com/conorfennell/cellarfront/internal/web"
	"github.com/conorfennell/cellarfront/internal/winedraft"
)

const usage = `Usage: cellarfront <command> [flags]

Commands:
  serve        Run the web UI
  quiz         Take the wine quiz in the terminal
  wines        List the wines in stock (--q, --page)
  delete ID    Delete a wine after confirmation
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "serve":
		err = runServe(ctx, args)
	case "quiz":
		err = runQuiz(ctx, args, os.Stdin, os.Stdout)
	case "wines":
		err = runWines(ctx, args, os.Stdout)
	case "delete":
		err = runDelete(ctx, args, os.Stdin, os.Stdout)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("Command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

// setup parses flags, loads the config and installs the logger.
func setup(fs *pflag.FlagSet, args []string) (*config.Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(fs)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(cfg.NewLogger())
	return cfg, nil
}

func newAPI(cfg *config.Config) *cellarapi.Client {
	return cellarapi.New(cfg.API.BaseURL, cellarapi.WithTimeout(cfg.API.Timeout))
}

func runServe(ctx context.Context, args []string) error {
	cfg, err := setup(config.Flags("serve"), args)
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.Sessions.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("Session store opened", "path", cfg.Sessions.DB)

	srv, err := web.NewServer(newAPI(cfg), db, winedraft.WithFallbackYear(cfg.Window.DefaultYear))
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting web server", "addr", cfg.Listen, "api", cfg.API.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("Shutting down web server")
		return httpServer.Shutdown(shutdownCtx)
	})
	if cfg.Sessions.TTL > 0 {
		g.Go(func() error {
			pruneSessions(ctx, db, cfg.Sessions.TTL)
			return nil
		})
	}
	return g.Wait()
}

// pruneSessions drops idle sessions until ctx is done.
func pruneSessions(ctx context.Context, db *storage.DB, ttl time.Duration) {
	ticker := time.NewTicker(min(ttl, time.Hour))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := db.PruneBefore(now.Add(-ttl))
			if err != nil {
				slog.Error("Pruning sessions failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Pruned idle sessions", "count", n)
			}
		}
	}
}

func runWines(ctx context.Context, args []string, out io.Writer) error {
	fs := config.Flags("wines")
	q := fs.String("q", "", "Search query")
	page := fs.Int("page", 1, "Page to show, starting at 1")
	cfg, err := setup(fs, args)
	if err != nil {
		return err
	}

	l := stock.New(newAPI(cfg))
	if *q != "" {
		if err := l.Search(ctx, *q); err != nil {
			return err
		}
	}
	if *q == "" || *page > 1 {
		if err := l.Goto(ctx, *page-1); err != nil {
			return err
		}
	}
	printTable(out, view.Table(l))
	return nil
}

func printTable(out io.Writer, t view.TableView) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAAM\tREGIO\tJAAR\tDRUIVEN\tFLESSEN")
	for _, r := range t.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n", r.ID, r.Name, r.Region, r.Vintage, r.Grapes, r.Bottles)
	}
	tw.Flush()
	fmt.Fprintln(out, t.Info)
}

func runDelete(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := config.Flags("delete")
	cfg, err := setup(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("delete needs exactly one wine ID")
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid wine ID %q: %w", fs.Arg(0), err)
	}

	api := newAPI(cfg)
	w, err := api.GetWine(ctx, id)
	if err != nil {
		return fmt.Errorf("look up wine %d: %w", id, err)
	}

	l := stock.New(api)
	deleted, err := l.Delete(ctx, id, w.Name, promptConfirmer(in, out))
	if err != nil {
		return err
	}
	if deleted {
		fmt.Fprintf(out, "#%d verwijderd.\n", id)
	}
	return nil
}

// promptConfirmer asks on out and reads the answer from in; only a yes
// (y, yes, j, ja) confirms.
func promptConfirmer(in io.Reader, out io.Writer) stock.Confirmer {
	r := bufio.NewReader(in)
	return stock.ConfirmFunc(func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		line, _ := r.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes", "j", "ja":
			return true
		}
		return false
	})
}

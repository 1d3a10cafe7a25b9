// Package shell is the interactive grid console: it reads commands, runs
// them against a session and prints the results as tables.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/zakazai/ulin-grid/internal/api"
	"github.com/zakazai/ulin-grid/internal/grid"
	"github.com/zakazai/ulin-grid/internal/parser"
	"github.com/zakazai/ulin-grid/internal/storage"
	"github.com/zakazai/ulin-grid/internal/types"
)

// Subscriber is implemented by stores that push invalidations, such as
// api.Client.
type Subscriber interface {
	Subscribe(ctx context.Context, tableID string, fn func(api.Event)) (<-chan struct{}, error)
}

// Session holds the store and the currently open grid.
type Session struct {
	store storage.Storage
	opts  grid.Options
	log   *types.Logger

	mu     sync.Mutex
	grid   *grid.Controller
	cancel context.CancelFunc
}

var _ parser.Session = (*Session)(nil)

func NewSession(store storage.Storage, opts grid.Options) *Session {
	return &Session{store: store, opts: opts, log: types.GlobalLogger.WithField("component", "shell")}
}

func (s *Session) Store() storage.Storage { return s.store }

func (s *Session) Grid() (*grid.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grid == nil {
		return nil, types.Validationf("no table open, run USE <table> first")
	}
	return s.grid, nil
}

// Use opens tableID, replacing any open grid. With a Subscriber store the
// grid refreshes itself when the server reports a change.
func (s *Session) Use(ctx context.Context, tableID string) (types.Table, error) {
	g := grid.New(s.store, tableID, s.opts)
	if err := g.Open(ctx); err != nil {
		g.Close()
		return types.Table{}, err
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if sub, ok := s.store.(Subscriber); ok {
		_, err := sub.Subscribe(subCtx, tableID, func(api.Event) {
			if err := g.Invalidate(subCtx); err != nil {
				s.log.Warning("refresh after remote change failed: %v", err)
			}
		})
		if err != nil {
			s.log.Warning("live updates unavailable for %s: %v", tableID, err)
		}
	}

	s.mu.Lock()
	old, oldCancel := s.grid, s.cancel
	s.grid, s.cancel = g, cancel
	s.mu.Unlock()
	if old != nil {
		oldCancel()
		old.Close()
	}
	return g.Table(), nil
}

// Close releases the open grid.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grid != nil {
		s.cancel()
		s.grid.Close()
		s.grid = nil
	}
}

// Exec parses and runs one command line, printing its result to out. It
// reports whether the line asked to exit.
func (s *Session) Exec(ctx context.Context, line string, out io.Writer) (bool, error) {
	stmt, err := parser.Parse(line)
	if err != nil {
		return false, fmt.Errorf("parse: %w", err)
	}
	if _, ok := stmt.(*parser.ExitStatement); ok {
		return true, nil
	}
	result, err := stmt.Execute(ctx, s)
	if err != nil {
		return false, err
	}
	printResult(out, result)
	return false, nil
}

// Run is the read-eval-print loop. Errors are printed and the loop goes on;
// it returns when in is exhausted or on EXIT.
func Run(ctx context.Context, s *Session, in io.Reader, out io.Writer, interactive bool) error {
	reader := bufio.NewReader(in)
	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}

		input, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("read input: %w", err)
		}
		eof := err == io.EOF

		if line := strings.TrimSpace(input); line != "" {
			quit, err := s.Exec(ctx, line, out)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
			if quit {
				fmt.Fprintln(out, "Goodbye!")
				return nil
			}
		}
		if eof {
			if interactive {
				fmt.Fprintln(out, "Goodbye!")
			}
			return nil
		}
	}
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophdrive/internal/config"
	"github.com/dmitrijs2005/gophdrive/internal/handles"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/store"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// isTerminal is a test seam for term.IsTerminal on stdin.
var isTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

type App struct {
	config  *config.Config
	logger  logging.Logger
	store   store.Store
	handles *handles.Manager
	server  *handles.Server

	in          io.Reader
	out         io.Writer
	interactive bool
	lines       <-chan string

	mu       sync.Mutex
	previews map[string][]preview
}

// preview is an open preview handle and the channel that releases it.
type preview struct {
	handle  *handles.Handle
	closing chan struct{}
}

// NewApp opens the store and prepares the handle manager. The store stays
// open until Run returns.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewTextLogger(os.Stderr, c.LogLevel)

	st, err := store.Open(ctx, c.DatabaseDSN, logger)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	m, err := handles.NewManager(st, logger,
		handles.WithBaseURL(c.BaseURL()),
		handles.WithTTL(c.HandleTTL),
	)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a := newApp(c, logger, st, m, os.Stdin, os.Stdout)
	a.interactive = isTerminal()
	return a, nil
}

func newApp(c *config.Config, logger logging.Logger, st store.Store, m *handles.Manager, in io.Reader, out io.Writer) *App {
	return &App{
		config:   c,
		logger:   logger,
		store:    st,
		handles:  m,
		server:   handles.NewServer(m, logger),
		in:       in,
		out:      out,
		previews: make(map[string][]preview),
	}
}

// Run serves handles and runs the REPL until the user quits, stdin closes
// or SIGINT/SIGTERM arrives. All handles are released and the store is
// closed before it returns.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	defer func() {
		a.handles.Shutdown()
		if err := a.store.Close(); err != nil {
			a.logger.Warn(context.Background(), "store close", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.server.Run(gctx, a.config.HandleAddr)
	})

	g.Go(func() error {
		defer cancel()
		printlnFn("Welcome to gophdrive (type 'help' for commands)")
		a.lines = scanLines(gctx, bufio.NewScanner(a.in))
		runREPL(gctx, a, a.lines)
		return nil
	})

	return g.Wait()
}

// scanLines feeds scanner lines into a channel until EOF or ctx is done.
// The REPL and confirmation prompts share it so that stdin has one reader.
func scanLines(ctx context.Context, sc *bufio.Scanner) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// readLine prints prompt and waits for the next input line.
func (a *App) readLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	select {
	case line, ok := <-a.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

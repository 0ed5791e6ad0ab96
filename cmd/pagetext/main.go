package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/pagetext"
	"github.com/fwojciec/pagetext/rod"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}

// errReported marks a failure whose description has already been written.
var errReported = errors.New("error already reported")

// Main represents the program.
type Main struct {
	// Stdin is read by the extract command.
	Stdin io.Reader

	// Worker replaces the browser-backed worker. Set before calling Run.
	Worker pagetext.Worker

	// Extractor replaces the static HTML extractor. Set before calling Run.
	Extractor pagetext.HTMLExtractor

	// Executable is the binary the process-isolated worker runs. Defaults
	// to the running executable.
	Executable string
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		Stdin: os.Stdin,
	}
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:        ctx,
		Stdin:      m.Stdin,
		Stdout:     stdout,
		Stderr:     stderr,
		Worker:     m.Worker,
		Extractor:  m.Extractor,
		Executable: m.Executable,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("pagetext"),
		kong.Description("Render web pages in a headless browser and extract their visible text"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
		kong.Vars{"ready_selector": rod.DefaultReadySelector},
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'pagetext --help' to see available commands")
	}

	if cmd := args[0]; cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	return kongCtx.Run()
}

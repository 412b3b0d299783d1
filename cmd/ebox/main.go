package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/wippyai/wasm-ebox/cmd/ebox/internal/config"
	"github.com/wippyai/wasm-ebox/ebox"
	"github.com/wippyai/wasm-ebox/guest"
	"github.com/wippyai/wasm-ebox/hostheap"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Core wasm module whose allocator backs the heap (default: host arena)")
		configFile  = flag.String("config", "", "Path to config file (default: ./"+config.FileName+" if present)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging")
		parallel    = flag.Int("parallel", 0, "Run the scenario on N independent arenas concurrently")
	)
	flag.Parse()

	resolved, err := loadConfig(*configFile, *wasmFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level := resolved.LogLevel
	if *verbose {
		level = zapcore.DebugLevel
	}
	logger, err := buildLogger(level, *interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	ebox.SetLogger(logger.Named("ebox"))
	guest.SetLogger(logger.Named("guest"))
	hostheap.SetLogger(logger.Named("hostheap"))

	ctx := context.Background()

	switch {
	case *interactive:
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		err = runInteractive(ctx, resolved)
	case *parallel > 0:
		err = runParallel(ctx, os.Stdout, *parallel, resolved.ArenaSize)
	default:
		err = run(ctx, os.Stdout, resolved)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path, wasm string) (*config.Resolved, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOptional(".")
	}
	if err != nil {
		return nil, err
	}
	return config.Resolve(cfg, wasm)
}

// buildLogger logs to stderr, or to ebox.log while the TUI owns the
// terminal.
func buildLogger(level zapcore.Level, interactive bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	if interactive {
		if level > zapcore.DebugLevel {
			return zap.NewNop(), nil
		}
		cfg.OutputPaths = []string{"ebox.log"}
		cfg.ErrorOutputPaths = []string{"ebox.log"}
	}
	return cfg.Build()
}

func run(ctx context.Context, w io.Writer, r *config.Resolved) error {
	heap, err := openHeap(ctx, r)
	if err != nil {
		return err
	}
	defer heap.Close()

	fmt.Fprintf(w, "heap: %s\n\n", heap.describe)
	return runScenario(w, heap)
}

// runParallel runs the scenario on n arenas at once. Boxes are not safe for
// concurrent use, so every worker gets its own arena.
func runParallel(ctx context.Context, w io.Writer, n int, size uint32) error {
	outputs := make([]bytes.Buffer, n)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range n {
		g.Go(func() error {
			a, err := hostheap.New(size)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := runScenario(&outputs[i], a); err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			st := a.Stats()
			if st.Live != 0 {
				return fmt.Errorf("worker %d: %d blocks still live", i, st.Live)
			}
			fmt.Fprintf(&outputs[i], "stats     allocs=%d frees=%d invalid=%d\n", st.Allocs, st.Frees, st.InvalidFrees)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range outputs {
		fmt.Fprintf(w, "== worker %d ==\n", i)
		w.Write(outputs[i].Bytes())
	}
	return nil
}

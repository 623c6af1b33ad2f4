package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/rc/alloc"
	"github.com/wippyai/rc/shared"
)

func main() {
	var (
		backing     = flag.String("alloc", "heap", "Backing allocator: heap, mmap or linear")
		size        = flag.Int("size", 1<<16, "Arena size in bytes for mmap and linear")
		logLevel    = flag.String("log", "warn", "Log level: debug, info, warn, error")
		confine     = flag.Bool("confine", false, "Abort when a pointer is used from another goroutine")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if flag.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Usage: rcinspect [-alloc heap|mmap|linear] [-size N] [script]")
		fmt.Fprintln(os.Stderr, "       rcinspect -i  (interactive mode)")
		os.Exit(1)
	}

	logger, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	shared.SetLogger(logger.Named("shared"))
	alloc.SetLogger(logger.Named("alloc"))
	shared.SetConfinementCheck(*confine)

	ctx := context.Background()
	s, err := newSession(ctx, *backing, *size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		err = runInteractive(s)
	} else {
		err = runScript(s, flag.Arg(0), os.Stdout)
	}
	if cerr := s.close(ctx); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func runScript(s *session, path string, out io.Writer) error {
	in := io.Reader(os.Stdin)
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		in = f
	}
	return execScript(s, in, out)
}

// execScript runs commands line by line and stops at the first error.
func execScript(s *session, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	line := 0
	for sc.Scan() {
		line++
		cmd, ok, err := parseLine(sc.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if !ok {
			continue
		}
		text, err := s.exec(cmd)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		fmt.Fprintln(out, text)
	}
	return sc.Err()
}

func requireTerminal() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal")
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset   = "\x1b[0m"
	ansiBold    = "\x1b[1m"
	ansiDim     = "\x1b[2m"
	ansiRed     = "\x1b[38;5;196m"
	ansiGreen   = "\x1b[38;5;82m"
	ansiYellow  = "\x1b[38;5;214m"
	ansiMagenta = "\x1b[38;5;201m"
	ansiCyan    = "\x1b[38;5;51m"
)

type renderer struct {
	color bool
}

func newRenderer(out io.Writer, asJSON bool) renderer {
	return renderer{color: interactive(out, asJSON)}
}

// interactive reports whether out is a terminal that accepts escape codes.
// JSON output and NO_COLOR always disable them.
func interactive(out io.Writer, asJSON bool) bool {
	if asJSON {
		return false
	}
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	if !isatty.IsTerminal(file.Fd()) && !isatty.IsCygwinTerminal(file.Fd()) {
		return false
	}
	term := strings.TrimSpace(os.Getenv("TERM"))
	return term != "" && term != "dumb"
}

func (r renderer) wrap(code, value string) string {
	if !r.color || value == "" {
		return value
	}
	return code + value + ansiReset
}

func (r renderer) key(value string) string {
	return r.wrap(ansiBold+ansiCyan, value)
}

func (r renderer) ok(value string) string {
	return r.wrap(ansiBold+ansiGreen, value)
}

func (r renderer) warn(value string) string {
	return r.wrap(ansiBold+ansiYellow, value)
}

func (r renderer) err(value string) string {
	return r.wrap(ansiBold+ansiRed, value)
}

func (r renderer) accent(value string) string {
	return r.wrap(ansiBold+ansiMagenta, value)
}

func (r renderer) dim(value string) string {
	return r.wrap(ansiDim, value)
}

// outcomeBar draws published, current and skipped counts as one stacked bar.
func (r renderer) outcomeBar(width, published, current, skipped int) string {
	if width <= 0 {
		width = 20
	}
	total := published + current + skipped
	if total == 0 {
		return "[" + strings.Repeat(" ", width) + "]"
	}
	cells := func(n int) int {
		return n * width / total
	}
	p, c := cells(published), cells(current)
	s := width - p - c
	if skipped == 0 {
		c += s
		s = 0
	}
	return "[" +
		r.ok(strings.Repeat("+", p)) +
		r.dim(strings.Repeat("=", c)) +
		r.warn(strings.Repeat("!", s)) +
		"]"
}

func withSpinner(ctx context.Context, out io.Writer, enabled bool, label string, fn func() error) error {
	if !enabled {
		return fn()
	}
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	frames := []string{"|", "/", "-", "\\"}
	ticker := time.NewTicker(120 * time.Millisecond)
	defer ticker.Stop()

	start := time.Now()
	frame := 0
	cancelled := ctx.Done()
	for {
		select {
		case err := <-done:
			clearLine(out)
			return err
		case <-ticker.C:
			fmt.Fprintf(out, "\r%s %s %s", frames[frame%len(frames)], label, time.Since(start).Truncate(time.Second))
			frame++
		case <-cancelled:
			// fn observes ctx itself; keep drawing until it returns.
			cancelled = nil
			label += " (cancelling)"
		}
	}
}

func clearLine(out io.Writer) {
	fmt.Fprint(out, "\r\x1b[2K")
}

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// spinnerFrames is the animation cycle; spinnerTick is how often it advances.
var spinnerFrames = []string{"◐", "◓", "◑", "◒"}

const spinnerTick = 120 * time.Millisecond

// Spinner animates a progress line on stderr while a long operation (a
// conversion run, an SVG render) is in flight. It stops on Stop or when its
// context ends, whichever comes first.
type Spinner struct {
	text     string
	ctx      context.Context
	cancel   context.CancelFunc
	finished chan struct{}
	stopOnce sync.Once
}

// newSpinnerWithContext creates a spinner tied to ctx.
func newSpinnerWithContext(ctx context.Context, text string) *Spinner {
	ctx, cancel := context.WithCancel(ctx)
	return &Spinner{
		text:     text,
		ctx:      ctx,
		cancel:   cancel,
		finished: make(chan struct{}),
	}
}

// Start begins the animation in a background goroutine.
func (s *Spinner) Start() {
	go func() {
		defer close(s.finished)
		ticker := time.NewTicker(spinnerTick)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-ticker.C:
				glyph := styleIconSpinner.Render(spinnerFrames[frame%len(spinnerFrames)])
				fmt.Fprintf(os.Stderr, "\r%s %s ", glyph, StyleDim.Render(s.text))
			}
		}
	}()
}

// Stop ends the animation and clears the progress line. Safe to call more
// than once.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.finished
	})
}

// StopWithSuccess stops the spinner and prints a success line in its place.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and prints an error line in its place.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

func (s *Spinner) clearLine() {
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", len(s.text)+6))
}

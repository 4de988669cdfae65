package util

import (
	"fmt"
	"strings"
	"sync"
)

// SafePrinter serializes terminal output between goroutines so watcher
// status lines and menu prompts never interleave.
type SafePrinter struct {
	mu        sync.Mutex
	suspended bool

	// printChan, when set, receives everything the printer would have
	// written to stdout. The TUI registers a channel here so status messages
	// show up in its log area instead of corrupting the rendered menu.
	// Guarded by mu, the same lock emit holds while sending, so after a swap
	// returns no goroutine can still send on the previous channel.
	printChan chan string
}

// Default is the shared SafePrinter used across the application.
var Default = &SafePrinter{}

// SetPrintChannel registers a channel to capture printed output. Pass nil to
// restore direct stdout printing.
func SetPrintChannel(ch chan string) {
	Default.SetPrintChannel(ch)
}

// SetPrintChannel swaps the capture channel. Once it returns, the previous
// channel is safe to close.
func (s *SafePrinter) SetPrintChannel(ch chan string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.printChan = ch
}

// PrintChannel returns the currently registered capture channel, nil when
// printing goes to stdout.
func (s *SafePrinter) PrintChannel() chan string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.printChan
}

// emit is always called with mu held.
func (s *SafePrinter) emit(text string) {
	if s.printChan != nil {
		select {
		case s.printChan <- text:
		default:
			// channel full, drop rather than block the caller
		}
		return
	}
	fmt.Print(text)
}

func (s *SafePrinter) Print(a ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return
	}
	s.emit(fmt.Sprint(a...))
}

func (s *SafePrinter) Printf(format string, a ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return
	}
	s.emit(fmt.Sprintf(format, a...))
}

func (s *SafePrinter) Println(a ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return
	}
	s.emit(fmt.Sprintln(a...))
}

// PrintBlock prints a potentially multi-line block atomically. If clearLine is
// true it first clears the current line (useful to overwrite a status line).
func (s *SafePrinter) PrintBlock(block string, clearLine bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return
	}
	if clearLine && s.printChan == nil {
		fmt.Print("\r\x1b[K")
	}
	if !strings.HasSuffix(block, "\n") {
		block += "\n"
	}
	s.emit(block)
}

// ClearLine clears the current line and returns the cursor to the beginning.
func (s *SafePrinter) ClearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended || s.printChan != nil {
		return
	}
	fmt.Print("\r\x1b[K")
}

// Suspend silences all subsequent prints until Resume is called. Used while
// interactive prompts take over the terminal.
func (s *SafePrinter) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = true
}

// Resume re-enables printing after Suspend.
func (s *SafePrinter) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = false
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"retro-sync/cmd"
	"retro-sync/internal/events"
	"retro-sync/internal/util"

	"golang.org/x/term"
)

func main() {
	// Ensure .retro-sync/logs directory exists for logging
	if err := os.MkdirAll(".retro-sync/logs", 0755); err != nil {
		log.Fatalf("failed to create .retro-sync/logs directory: %v", err)
	}

	f, err := os.OpenFile(".retro-sync/logs/retro-sync.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer f.Close()

	// Route the standard logger to the file so log output never fights the
	// interactive menus for the terminal.
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	// Capture original terminal state (if stdin is a TTY) so we can restore on forced exit.
	var origState *term.State
	if fi, _ := os.Stdin.Stat(); (fi.Mode() & os.ModeCharDevice) != 0 {
		if st, err := term.GetState(int(os.Stdin.Fd())); err == nil {
			origState = st
		}
	}

	forceExit := func(code int) {
		if origState != nil {
			_ = term.Restore(int(os.Stdin.Fd()), origState)
		}
		os.Exit(code)
	}

	// Context used to issue graceful cancellation to the command tree.
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	done := make(chan struct{})
	shutdown := make(chan struct{})

	// Listen for shutdown events from components via EventBus. A signal and
	// a component can both request shutdown; only the first one counts.
	var shutdownOnce sync.Once
	events.GlobalBus.Subscribe(events.EventShutdownRequested, func(reason string) {
		log.Printf("shutdown requested: %s\n", reason)
		shutdownOnce.Do(func() {
			cancel()
			close(shutdown)
		})
	})

	// Ctrl+C / SIGTERM funnel through the same shutdown event as components
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		if sig, ok := <-sigCh; ok {
			events.GlobalBus.Publish(events.EventShutdownRequested, "signal: "+sig.String())
		}
	}()
	defer signal.Stop(sigCh)

	// Run the CLI in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = cmd.ExecuteContext(ctx)
		close(done)
	}()

waitLoop:
	for {
		select {
		case <-shutdown:
			// Component requested shutdown via EventBus
			select {
			case <-done:
				log.Println("goroutine exited cleanly after component shutdown")
				break waitLoop
			case <-time.After(5 * time.Second):
				log.Println("timeout waiting for goroutine after component shutdown, forcing exit")
				forceExit(1)
			}
		case <-done:
			// finished normally before any shutdown request
			log.Println("goroutine finished; exiting.")
			util.Default.ClearLine()
			break waitLoop
		}
	}

	wg.Wait()

	events.GlobalBus.Publish(events.EventShutdownComplete)

	// Restore terminal before normal exit if it was changed (best-effort)
	if origState != nil {
		_ = term.Restore(int(os.Stdin.Fd()), origState)
	}
}

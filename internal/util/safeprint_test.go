package util

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintChannelCapturesOutput(t *testing.T) {
	p := &SafePrinter{}
	ch := make(chan string, 8)
	p.SetPrintChannel(ch)

	p.Printf("⬆️  Uploaded %s\n", "/src/main.asm")
	p.SetPrintChannel(nil)

	assert.Equal(t, "⬆️  Uploaded /src/main.asm\n", <-ch)
	assert.Nil(t, p.PrintChannel())
}

func TestSuspendSilencesChannel(t *testing.T) {
	p := &SafePrinter{}
	ch := make(chan string, 8)
	p.SetPrintChannel(ch)

	p.Suspend()
	p.Println("hidden")
	p.Resume()
	p.Println("visible")
	p.SetPrintChannel(nil)

	assert.Equal(t, "visible\n", <-ch)
	assert.Empty(t, ch)
}

func TestPrintBlockAppendsNewline(t *testing.T) {
	p := &SafePrinter{}
	ch := make(chan string, 8)
	p.SetPrintChannel(ch)

	p.PrintBlock("⬆️  Uploaded /src/main.asm", true)
	p.SetPrintChannel(nil)

	got := <-ch
	assert.True(t, strings.HasSuffix(got, "\n"))
}

// A watcher goroutine can be mid-print while the menu swaps the capture
// channel in and out and closes the retired one. The swap and the emit hold
// the same lock, so the close must never land on a channel a print still
// holds.
func TestSetPrintChannelConcurrentWithPrints(t *testing.T) {
	p := &SafePrinter{}
	prev := make(chan string, 16)
	p.SetPrintChannel(prev)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				p.Printf("status %s\n", "/src/main.asm")
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		ch := make(chan string, 16)
		p.SetPrintChannel(ch)
		// a print still holding the retired channel would panic here; the
		// shared lock makes the swap a barrier
		close(prev)
		prev = ch
	}

	close(stop)
	wg.Wait()
	p.SetPrintChannel(nil)
	close(prev)
	assert.Nil(t, p.PrintChannel())
}

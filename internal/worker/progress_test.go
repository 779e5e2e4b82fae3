package worker

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestProgress_Counts(t *testing.T) {
	p := NewProgress(100, time.Hour, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Add(10)
		}()
	}
	wg.Wait()

	if p.Done() != 100 {
		t.Errorf("expected 100, got %d", p.Done())
	}
}

func TestProgress_Throttled(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(30, time.Hour, zerolog.New(&buf))

	for i := 0; i < 30; i++ {
		p.Add(1)
	}

	lines := strings.Count(buf.String(), "\n")
	if lines != 1 {
		t.Errorf("expected a single progress line within the interval, got %d", lines)
	}
}

func TestProgress_Nil(t *testing.T) {
	var p *Progress
	p.Add(5)
	if p.Done() != 0 {
		t.Errorf("nil progress should report 0, got %d", p.Done())
	}
}

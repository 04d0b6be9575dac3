package observ

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTimer_BeginEndRecord(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("catalog")
	tm.End(idx, "4 entries")
	tm.Record("resolve x86_64", 2*time.Millisecond, "base+arch")
	tm.End(99, "ignored")

	rep := tm.Report()
	if len(rep.Phases) != 2 {
		t.Fatalf("phases = %d, want 2", len(rep.Phases))
	}
	if rep.Phases[0].Note != "4 entries" || rep.Phases[1].Name != "resolve x86_64" {
		t.Errorf("unexpected phases %+v", rep.Phases)
	}
	if rep.TotalMS < 2 {
		t.Errorf("TotalMS = %f, want >= 2", rep.TotalMS)
	}
	sum := tm.Summary()
	if !strings.Contains(sum, "// base+arch") || !strings.Contains(sum, "total") {
		t.Errorf("summary:\n%s", sum)
	}
}

func TestTimer_Concurrent(t *testing.T) {
	tm := NewTimer()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.Record("t", time.Microsecond, "")
		}()
	}
	wg.Wait()
	if got := len(tm.Report().Phases); got != 16 {
		t.Fatalf("phases = %d, want 16", got)
	}
}

func TestTimer_Nil(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	tm.Record("x", time.Second, "")
	if len(tm.Report().Phases) != 0 {
		t.Fatal("nil timer must report nothing")
	}
}

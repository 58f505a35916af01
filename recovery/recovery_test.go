package recovery_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Schewwpid/note2PDF/recovery"
)

func TestStrictStrategy(t *testing.T) {
	s := recovery.NewStrictStrategy()
	if got := s.OnError(context.Background(), errors.New("boom"), recovery.Location{Path: "a.note", Stage: "extract"}); got != recovery.ActionFail {
		t.Fatalf("strict strategy returned %s", got)
	}
}

func TestLenientStrategyRecords(t *testing.T) {
	s := recovery.NewLenientStrategy()
	cause := errors.New("boom")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := s.OnError(context.Background(), cause, recovery.Location{Path: "a.note", Stage: "decode"}); got != recovery.ActionSkip {
				t.Errorf("lenient strategy returned %s", got)
			}
		}()
	}
	wg.Wait()

	errs := s.Errors()
	if len(errs) != 8 {
		t.Fatalf("recorded %d errors, want 8", len(errs))
	}
	if !errors.Is(errs[0], cause) {
		t.Fatalf("recorded error does not wrap the cause")
	}
	if want := "[decode] a.note: boom"; errs[0].Error() != want {
		t.Fatalf("got %q, want %q", errs[0].Error(), want)
	}
}

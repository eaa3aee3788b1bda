package orderbook

import (
	"testing"

	"github.com/rickgao/ranger/internal/errs"
)

func seqPtr(v int64) *int64 { return &v }

func TestConsecutiveIncrementsApply(t *testing.T) {
	s := NewSequencer()
	s.OnSnapshot("btcusdt", seqPtr(10))

	for seq := int64(11); seq <= 20; seq++ {
		d, err := s.OnIncrement("btcusdt", seq)
		if d != Apply || err != nil {
			t.Fatalf("OnIncrement(%d) = %v, %v; want apply", seq, d, err)
		}
		cur, ok := s.Cursor("btcusdt")
		if !ok || cur != seq {
			t.Fatalf("Cursor() = %d, %v; want %d", cur, ok, seq)
		}
	}

	if got := s.Stats().Applied; got != 10 {
		t.Errorf("Stats().Applied = %d, want 10", got)
	}
}

func TestGapRejectsWithoutAdvancing(t *testing.T) {
	s := NewSequencer()
	s.OnSnapshot("btcusdt", seqPtr(10))

	d, err := s.OnIncrement("btcusdt", 12)
	if d != RejectGap {
		t.Fatalf("OnIncrement(12) = %v, want reject_gap", d)
	}
	if !errs.Is(err, errs.CodeSequenceGap) {
		t.Errorf("error code = %q, want %q", errs.CodeOf(err), errs.CodeSequenceGap)
	}
	if _, ok := s.Cursor("btcusdt"); ok {
		t.Error("Cursor() ok = true after gap, want false")
	}
}

func TestGapReportedOnce(t *testing.T) {
	s := NewSequencer()
	s.OnSnapshot("btcusdt", seqPtr(10))

	gaps := 0
	for _, seq := range []int64{12, 13, 14, 11} {
		if d, _ := s.OnIncrement("btcusdt", seq); d == RejectGap {
			gaps++
		}
	}
	if gaps != 1 {
		t.Errorf("gaps = %d, want 1", gaps)
	}
	if got := s.Stats().Unsynced; got != 3 {
		t.Errorf("Stats().Unsynced = %d, want 3", got)
	}
}

func TestDuplicateIsGap(t *testing.T) {
	s := NewSequencer()
	s.OnSnapshot("m", seqPtr(5))

	if d, _ := s.OnIncrement("m", 5); d != RejectGap {
		t.Errorf("OnIncrement(5) = %v, want reject_gap", d)
	}
}

func TestUnknownCursorRejects(t *testing.T) {
	s := NewSequencer()

	d, err := s.OnIncrement("m", 1)
	if d != RejectUnsynced || err != nil {
		t.Errorf("OnIncrement() = %v, %v; want reject_unsynced, nil", d, err)
	}
}

func TestSnapshotWithoutSequenceAnchorsOnFirstIncrement(t *testing.T) {
	s := NewSequencer()
	s.OnSnapshot("m", nil)

	if _, ok := s.Cursor("m"); ok {
		t.Fatal("Cursor() ok = true before first increment")
	}
	if d, _ := s.OnIncrement("m", 42); d != Apply {
		t.Fatalf("first increment = %v, want apply", d)
	}
	if d, _ := s.OnIncrement("m", 43); d != Apply {
		t.Fatalf("second increment = %v, want apply", d)
	}
	if d, _ := s.OnIncrement("m", 45); d != RejectGap {
		t.Fatalf("skipped increment = %v, want reject_gap", d)
	}
}

func TestSnapshotRecoversAfterGap(t *testing.T) {
	s := NewSequencer()
	s.OnSnapshot("m", seqPtr(1))
	s.OnIncrement("m", 3)

	s.OnSnapshot("m", seqPtr(100))
	if d, _ := s.OnIncrement("m", 101); d != Apply {
		t.Errorf("OnIncrement(101) = %v, want apply", d)
	}
}

func TestReset(t *testing.T) {
	s := NewSequencer()
	s.OnSnapshot("a", seqPtr(1))
	s.OnSnapshot("b", seqPtr(1))

	s.Reset("a")
	if d, _ := s.OnIncrement("a", 2); d != RejectUnsynced {
		t.Errorf("after Reset(a) = %v, want reject_unsynced", d)
	}
	if d, _ := s.OnIncrement("b", 2); d != Apply {
		t.Errorf("b after Reset(a) = %v, want apply", d)
	}

	s.ResetAll()
	if d, _ := s.OnIncrement("b", 3); d != RejectUnsynced {
		t.Errorf("after ResetAll = %v, want reject_unsynced", d)
	}
}

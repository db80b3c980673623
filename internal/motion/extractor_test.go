package motion

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractorNoWindowBeforeBufferFull(t *testing.T) {
	x := NewWindowExtractor()
	for i := 0; i < WindowSize-1; i++ {
		if _, _, ready := x.Push(seqSample(i)); ready {
			t.Fatalf("window ready after %d samples, want none before %d", i+1, WindowSize)
		}
	}
}

func TestExtractorFirstWindowAtSlotZero(t *testing.T) {
	x := NewWindowExtractor()
	for i := 0; i < WindowSize-1; i++ {
		x.Push(seqSample(i))
	}

	w, slot, ready := x.Push(seqSample(WindowSize - 1))
	if !ready {
		t.Fatal("no window ready on the sample that completes the first full cycle")
	}
	if slot != 0 {
		t.Fatalf("first window slot = %d, want 0", slot)
	}
	if len(w) != WindowSize {
		t.Fatalf("window has %d samples, want %d", len(w), WindowSize)
	}

	// The next sample must not produce a second window.
	if _, _, ready := x.Push(seqSample(WindowSize)); ready {
		t.Error("window ready one sample after the first window; want next at the stride boundary")
	}
}

func TestExtractorStrideAndSlotCycle(t *testing.T) {
	x := NewWindowExtractor()
	var slots []int
	for i := 0; i < WindowSize*2; i++ {
		if _, slot, ready := x.Push(seqSample(i)); ready {
			slots = append(slots, slot)
		}
	}
	// Windows at samples 20,25,30,35,40 -> slots 0,1,2,3,0.
	want := []int{0, 1, 2, 3, 0}
	if diff := cmp.Diff(want, slots); diff != "" {
		t.Errorf("slot sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractorConsecutiveWindowsOverlap(t *testing.T) {
	x := NewWindowExtractor()
	var windows []Window
	for i := 0; i < WindowSize+WindowOffset; i++ {
		if w, _, ready := x.Push(seqSample(i)); ready {
			windows = append(windows, w)
		}
	}
	if len(windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(windows))
	}

	// Window w+1 starts WindowOffset samples later: its first
	// WindowSize-WindowOffset samples equal the tail of window w.
	overlap := WindowSize - WindowOffset
	if diff := cmp.Diff(windows[0][WindowOffset:], windows[1][:overlap]); diff != "" {
		t.Errorf("overlapping sub-ranges differ (-first +second):\n%s", diff)
	}
}

func TestExtractorResetIsIdempotent(t *testing.T) {
	x := NewWindowExtractor()
	for i := 0; i < WindowSize+3; i++ {
		x.Push(seqSample(i))
	}

	x.Reset()
	x.Reset()
	if x.Seen() != 0 {
		t.Fatalf("Seen() = %d after double reset, want 0", x.Seen())
	}

	// A full cycle is required again before the next window.
	for i := 0; i < WindowSize-1; i++ {
		if _, _, ready := x.Push(seqSample(i)); ready {
			t.Fatal("window ready before a full post-reset cycle")
		}
	}
	if _, slot, ready := x.Push(seqSample(WindowSize - 1)); !ready || slot != 0 {
		t.Fatalf("post-reset first window: ready=%v slot=%d, want ready slot 0", ready, slot)
	}
}

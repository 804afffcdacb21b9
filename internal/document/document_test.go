package document

import "testing"

func TestRect_WidthHeight(t *testing.T) {
	r := Rect{LLX: 10, LLY: 20, URX: 410, URY: 620}
	if r.Width() != 400 {
		t.Errorf("expected width 400, got %v", r.Width())
	}
	if r.Height() != 600 {
		t.Errorf("expected height 600, got %v", r.Height())
	}
}

func TestRect_InvertedCorners(t *testing.T) {
	// Some producers write boxes with corners swapped.
	r := Rect{LLX: 400, LLY: 600, URX: 0, URY: 0}
	if r.Width() != 400 || r.Height() != 600 {
		t.Errorf("expected 400x600, got %vx%v", r.Width(), r.Height())
	}
}

func TestRect_TranslateMovesLowerLeftOnly(t *testing.T) {
	r := Rect{LLX: 0, LLY: 0, URX: 400, URY: 600}
	got := r.Translate(0, 60)
	want := Rect{LLX: 0, LLY: 60, URX: 400, URY: 600}
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
	if r.LLY != 0 {
		t.Error("expected receiver to be unchanged")
	}
	if got.Height() != 540 {
		t.Errorf("expected height 540 after translate, got %v", got.Height())
	}
}

func TestRect_Empty(t *testing.T) {
	tests := []struct {
		r    Rect
		want bool
	}{
		{Rect{LLX: 0, LLY: 0, URX: 400, URY: 600}, false},
		{Rect{LLX: 0, LLY: 600, URX: 400, URY: 600}, true},
		{Rect{LLX: 0, LLY: 700, URX: 400, URY: 600}, true},
		{Rect{LLX: 400, LLY: 0, URX: 400, URY: 600}, true},
	}
	for _, tt := range tests {
		if got := tt.r.Empty(); got != tt.want {
			t.Errorf("%v.Empty(): expected %v, got %v", tt.r, tt.want, got)
		}
	}
}

func TestRect_String(t *testing.T) {
	r := Rect{LLX: 0, LLY: 60, URX: 612, URY: 792.5}
	if got, want := r.String(), "[0.00 60.00 612.00 792.50]"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPageNumbers(t *testing.T) {
	pages := []Page{{Number: 2}, {Number: 3}, {Number: 7}}
	got := PageNumbers(pages)
	want := []int{2, 3, 7}
	if len(got) != len(want) {
		t.Fatalf("expected %d numbers, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

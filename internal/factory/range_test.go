package factory

import (
	"reflect"
	"testing"
)

func TestPages(t *testing.T) {
	got, err := Pages(2000, 766)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Page{
		{From: 0, To: 766},
		{From: 766, To: 1532},
		{From: 1532, To: 2000},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("pages mismatch: %+v != %+v", got, want)
	}
}

func TestPagesCoverEveryIndexOnce(t *testing.T) {
	for _, tc := range []struct{ start, n, step uint64 }{{0, 1, 1}, {0, 10, 3}, {4, 10, 3}, {0, 766, 766}, {9, 10, 100}} {
		pages, err := PagesFrom(tc.start, tc.n, tc.step)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		next := tc.start
		for _, p := range pages {
			if p.From != next || p.To <= p.From || p.To-p.From > tc.step {
				t.Fatalf("bad page %+v for %+v", p, tc)
			}
			next = p.To
		}
		if next != tc.n {
			t.Fatalf("pages for %+v end at %d", tc, next)
		}
	}
}

func TestPagesEmptyAndInvalid(t *testing.T) {
	pages, err := Pages(0, 10)
	if err != nil || len(pages) != 0 {
		t.Fatalf("expected no pages, got %+v %v", pages, err)
	}
	if _, err := Pages(10, 0); err == nil {
		t.Fatalf("expected error for zero step")
	}
}

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

package sse

import (
	"reflect"
	"testing"
)

func feedAll(d *LineDecoder, chunks ...string) []string {
	var out []string
	for _, c := range chunks {
		out = append(out, d.Feed([]byte(c))...)
	}
	return out
}

func TestFeedSplitInvariance(t *testing.T) {
	input := "data: {\"content\":\"Hel\"}\ndata: {\"content\":\"lo\"}\n\ndata: [DONE]\n"

	whole := feedAll(&LineDecoder{}, input)

	// Re-feed the identical bytes one at a time; the emitted lines must not
	// depend on where the stream was split.
	var byBytes []string
	var d LineDecoder
	for i := 0; i < len(input); i++ {
		byBytes = append(byBytes, d.Feed([]byte{input[i]})...)
	}

	if !reflect.DeepEqual(whole, byBytes) {
		t.Fatalf("split changed output:\nwhole=%q\nbytes=%q", whole, byBytes)
	}
	if len(whole) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(whole), whole)
	}
}

func TestFeedHoldsPartialLine(t *testing.T) {
	var d LineDecoder

	if got := d.Feed([]byte(`data: {"content":"Hel`)); len(got) != 0 {
		t.Fatalf("expected no lines before terminator, got %q", got)
	}
	got := d.Feed([]byte("lo\"}\n"))
	if len(got) != 1 {
		t.Fatalf("expected exactly one line, got %q", got)
	}
	if got[0] != `data: {"content":"Hello"}` {
		t.Fatalf("unexpected line: %q", got[0])
	}
}

func TestFeedTerminatorSplitAcrossFeeds(t *testing.T) {
	var d LineDecoder

	if got := d.Feed([]byte("data: a\r")); len(got) != 0 {
		t.Fatalf("CR alone must not complete a line, got %q", got)
	}
	got := d.Feed([]byte("\ndata: b\n"))
	want := []string{"data: a", "data: b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFeedMultipleTerminatorsInOneChunk(t *testing.T) {
	var d LineDecoder
	got := d.Feed([]byte("one\ntwo\nthree\npartial"))
	want := []string{"one", "two", "three"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := d.Feed([]byte("\n")); len(got) != 1 || got[0] != "partial" {
		t.Fatalf("expected carried partial line, got %q", got)
	}
}

func TestFeedEmptyChunkIsNoOp(t *testing.T) {
	var d LineDecoder
	d.Feed([]byte("pending"))
	if got := d.Feed(nil); got != nil {
		t.Fatalf("empty chunk emitted lines: %q", got)
	}
	if got := d.Feed([]byte("\n")); len(got) != 1 || got[0] != "pending" {
		t.Fatalf("buffer lost across empty chunk, got %q", got)
	}
}

func TestResetDropsCarryOver(t *testing.T) {
	var d LineDecoder
	d.Feed([]byte("stale partial"))
	d.Reset()
	if got := d.Feed([]byte("fresh\n")); len(got) != 1 || got[0] != "fresh" {
		t.Fatalf("expected only the fresh line after reset, got %q", got)
	}
}

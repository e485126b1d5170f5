package session

import (
	"testing"

	"github.com/multi-agent/reasonspace/internal/stream"
)

func TestDispatchNilSlotsSkipped(t *testing.T) {
	h := &Handlers{}
	// 任何槽位为空都不得 panic。
	h.Dispatch(frameOf(stream.FrameContentDelta, stream.TextDelta{Delta: "x"}))
	h.Dispatch(frameOf(stream.FrameToolExecuted, stream.ToolExecutedData{Tool: "search"}))
	h.Dispatch(frameOf(stream.FrameDone, stream.DoneData{}))
}

func TestDispatchUnknownKindIgnored(t *testing.T) {
	called := false
	h := &Handlers{OnContentDelta: func(string) { called = true }}
	h.Dispatch(stream.Frame{Type: "future_frame_kind"})
	if called {
		t.Fatal("unknown kind hit a handler")
	}
}

func TestDispatchActionHints(t *testing.T) {
	var got []stream.ActionHint
	h := &Handlers{OnActionHints: func(hints []stream.ActionHint) { got = hints }}
	h.Dispatch(frameOf(stream.FrameActionHint, stream.ActionHintsData{Hints: []stream.ActionHint{
		{Type: stream.HintSuggestPlanDiff},
		{Type: stream.HintSuggestCaseCreation},
	}}))
	if len(got) != 2 {
		t.Fatalf("hints = %d, want 2", len(got))
	}
}

func TestDispatchMalformedPayloadDropped(t *testing.T) {
	called := false
	h := &Handlers{OnDone: func(stream.DoneData) { called = true }}
	h.Dispatch(stream.Frame{Type: stream.FrameDone, Data: []byte(`{invalid`)})
	if called {
		t.Fatal("malformed payload reached handler")
	}
}

package stream

import (
	"encoding/json"
	"testing"
)

func TestIsTerminal(t *testing.T) {
	cases := []struct {
		frameType string
		want      bool
	}{
		{FrameDone, true},
		{FrameError, true},
		{FrameContentDelta, false},
		{FrameActionHint, false},
		{"some_future_kind", false},
	}
	for _, tc := range cases {
		if got := IsTerminal(tc.frameType); got != tc.want {
			t.Fatalf("IsTerminal(%q) = %v, want %v", tc.frameType, got, tc.want)
		}
	}
}

func TestDecodeData_ContentDelta(t *testing.T) {
	frame := Frame{Type: FrameContentDelta, Data: json.RawMessage(`{"delta":"Hi"}`)}
	var data TextDelta
	if err := DecodeData(frame, &data); err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if data.Delta != "Hi" {
		t.Fatalf("Delta = %q, want Hi", data.Delta)
	}
}

func TestDecodeData_EmptyPayloadKeepsZero(t *testing.T) {
	frame := Frame{Type: FrameDone}
	var data DoneData
	if err := DecodeData(frame, &data); err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if data.MessageID != "" {
		t.Fatalf("MessageID = %q, want empty", data.MessageID)
	}
}

func TestDecodeData_ActionHints(t *testing.T) {
	raw := `{"hints":[{"type":"suggest_plan_diff","reason":"plan drift"},{"type":"unknown_hint"}]}`
	frame := Frame{Type: FrameActionHint, Data: json.RawMessage(raw)}
	var data ActionHintsData
	if err := DecodeData(frame, &data); err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if len(data.Hints) != 2 {
		t.Fatalf("hints len = %d, want 2", len(data.Hints))
	}
	if data.Hints[0].Type != HintSuggestPlanDiff {
		t.Fatalf("hint type = %q, want %q", data.Hints[0].Type, HintSuggestPlanDiff)
	}
}

func TestSendRequest_ContextPassthrough(t *testing.T) {
	req := SendRequest{
		ThreadID: "t-1",
		Content:  "hello",
		Context:  &SendContext{Mode: "inquiry", CaseID: "c-9"},
	}
	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var round map[string]any
	if err := json.Unmarshal(raw, &round); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	sendCtx, ok := round["context"].(map[string]any)
	if !ok {
		t.Fatalf("context missing from %s", raw)
	}
	if sendCtx["mode"] != "inquiry" || sendCtx["caseId"] != "c-9" {
		t.Fatalf("context fields lost: %v", sendCtx)
	}
	if _, present := sendCtx["inquiryId"]; present {
		t.Fatal("empty context fields should be omitted")
	}
}

package cards

import (
	"testing"

	"github.com/multi-agent/reasonspace/internal/stream"
)

func countType(cards []InlineActionCard, cardType, anchorID string) int {
	n := 0
	for _, c := range cards {
		if c.Type == cardType && c.AnchorMessageID == anchorID {
			n++
		}
	}
	return n
}

func TestPlanDiffDedupFrameThenHint(t *testing.T) {
	d := NewDeriver()
	d.DerivePlanEdit("m-1", stream.PlanEditProposalData{Summary: "tighten step 2"})
	d.DeriveHint("m-1", stream.ActionHint{Type: stream.HintSuggestPlanDiff})

	if got := countType(d.Cards(), CardPlanDiffProposal, "m-1"); got != 1 {
		t.Fatalf("plan cards for anchor = %d, want 1", got)
	}
}

func TestPlanDiffDedupHintThenFrame(t *testing.T) {
	// 反向到达顺序: hint 先占锚, 类型化帧被抑制, 仍只有一张卡。
	d := NewDeriver()
	d.DeriveHint("m-1", stream.ActionHint{Type: stream.HintSuggestPlanDiff})
	d.DerivePlanEdit("m-1", stream.PlanEditProposalData{Summary: "tighten step 2"})

	if got := countType(d.Cards(), CardPlanDiffProposal, "m-1"); got != 1 {
		t.Fatalf("plan cards for anchor = %d, want 1", got)
	}
}

func TestDedupIsPerAnchor(t *testing.T) {
	d := NewDeriver()
	d.DerivePlanEdit("m-1", stream.PlanEditProposalData{Summary: "a"})
	d.DerivePlanEdit("m-2", stream.PlanEditProposalData{Summary: "b"})

	cards := d.Cards()
	if len(cards) != 2 {
		t.Fatalf("len(cards) = %d, want 2", len(cards))
	}
}

func TestCaseCreationFromHintAndSignal(t *testing.T) {
	d := NewDeriver()
	d.DeriveHint("m-1", stream.ActionHint{Type: stream.HintSuggestCaseCreation})
	d.DeriveCaseSignal("m-1", stream.CaseSignalData{Reason: "decision detected"})

	if got := countType(d.Cards(), CardCaseCreationPrompt, "m-1"); got != 1 {
		t.Fatalf("case cards for anchor = %d, want 1", got)
	}
}

func TestNoAnchorDropsWithCounter(t *testing.T) {
	d := NewDeriver()
	d.DeriveToolExecuted("", stream.ToolExecutedData{Tool: "search"})
	d.DeriveHint("", stream.ActionHint{Type: stream.HintSuggestPlanDiff})

	if len(d.Cards()) != 0 {
		t.Fatalf("len(cards) = %d, want 0", len(d.Cards()))
	}
	if d.DroppedNoAnchor() != 2 {
		t.Fatalf("DroppedNoAnchor() = %d, want 2", d.DroppedNoAnchor())
	}
}

func TestToolCardsNoDedup(t *testing.T) {
	// 工具帧不去重: 同一锚点的两次执行各产一张卡。
	d := NewDeriver()
	d.DeriveToolExecuted("m-1", stream.ToolExecutedData{Tool: "search"})
	d.DeriveToolExecuted("m-1", stream.ToolExecutedData{Tool: "fetch"})

	if got := countType(d.Cards(), CardToolExecuted, "m-1"); got != 2 {
		t.Fatalf("tool cards = %d, want 2", got)
	}
}

func TestPositionProposalDedupByMessageID(t *testing.T) {
	d := NewDeriver()
	d.DerivePositionProposal(stream.PositionProposalData{MessageID: "m-7", Statement: "prefers X"})
	d.DerivePositionProposal(stream.PositionProposalData{MessageID: "m-7", Statement: "prefers X"})
	d.DerivePositionProposal(stream.PositionProposalData{MessageID: "m-8", Statement: "prefers Y"})

	cards := d.Cards()
	if len(cards) != 2 {
		t.Fatalf("len(cards) = %d, want 2", len(cards))
	}
}

func TestDismissNonDestructive(t *testing.T) {
	d := NewDeriver()
	d.DerivePlanEdit("m-1", stream.PlanEditProposalData{Summary: "a"})
	d.DeriveOrientationEdit("m-1", stream.OrientationEditProposalData{Summary: "b"})

	before := d.Cards()
	target := before[0].ID
	if !d.Dismiss(target) {
		t.Fatal("Dismiss returned false for existing card")
	}

	after := d.Cards()
	if len(after) != len(before) {
		t.Fatalf("len after dismiss = %d, want %d", len(after), len(before))
	}
	if !after[0].Dismissed {
		t.Fatal("dismissed card flag not set")
	}
	if after[1].Dismissed {
		t.Fatal("other card flag changed")
	}
	if after[0].ID != before[0].ID || after[1].ID != before[1].ID {
		t.Fatal("card identity changed by dismiss")
	}
}

func TestDismissUnknownCard(t *testing.T) {
	d := NewDeriver()
	if d.Dismiss("card-missing") {
		t.Fatal("Dismiss returned true for unknown card")
	}
}

func TestResetClearsDedupState(t *testing.T) {
	d := NewDeriver()
	d.DerivePlanEdit("m-1", stream.PlanEditProposalData{Summary: "a"})
	d.DerivePositionProposal(stream.PositionProposalData{MessageID: "m-7"})
	d.DeriveToolExecuted("", stream.ToolExecutedData{Tool: "search"})

	d.Reset()
	if len(d.Cards()) != 0 {
		t.Fatal("cards not cleared by Reset")
	}
	if d.DroppedNoAnchor() != 0 {
		t.Fatal("drop counter not cleared by Reset")
	}

	// 占锚与消息 id 集合也应清空: 同一事件可再次产卡。
	d.DerivePlanEdit("m-1", stream.PlanEditProposalData{Summary: "a"})
	d.DerivePositionProposal(stream.PositionProposalData{MessageID: "m-7"})
	if len(d.Cards()) != 2 {
		t.Fatalf("len(cards) after reset rederive = %d, want 2", len(d.Cards()))
	}
}

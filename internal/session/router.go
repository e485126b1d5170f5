// router.go — 帧类型到可选 handler 槽位的平铺分发。
//
// 闭集分发: 每种帧类型一个槽位, 不关心某类帧的消费方直接不挂 handler。
// 槽位之间无依赖 — 唯一的顺序约束 (内容帧先于依赖"最近完成的 assistant
// 消息 ID"的处理) 由调用序保证: 该 ID 只在 done 帧时更新。
package session

import (
	"github.com/multi-agent/reasonspace/internal/stream"
	"github.com/multi-agent/reasonspace/pkg/logger"
)

// Handlers 按帧类型分发的可选槽位。nil 槽位静默跳过。
type Handlers struct {
	OnContentDelta            func(delta string)
	OnReflectionDelta         func(delta string)
	OnReflectionComplete      func(text string)
	OnActionHints             func(hints []stream.ActionHint)
	OnGraphEditSummary        func(data stream.GraphEditSummaryData)
	OnTitleUpdate             func(title string)
	OnCaseSignal              func(data stream.CaseSignalData)
	OnPlanEditProposal        func(data stream.PlanEditProposalData)
	OnOrientationEditProposal func(data stream.OrientationEditProposalData)
	OnPositionProposal        func(data stream.PositionProposalData)
	OnToolExecuted            func(data stream.ToolExecutedData)
	OnToolConfirmation        func(data stream.ToolConfirmationData)
	OnDone                    func(data stream.DoneData)
	OnError                   func(data stream.ErrorData)
}

// Dispatch 按 Type 解码并调用对应槽位。未知帧类型忽略。
func (h *Handlers) Dispatch(frame stream.Frame) {
	switch frame.Type {
	case stream.FrameContentDelta:
		if h.OnContentDelta == nil {
			return
		}
		var data stream.TextDelta
		if !decode(frame, &data) {
			return
		}
		h.OnContentDelta(data.Delta)

	case stream.FrameReflectionDelta:
		if h.OnReflectionDelta == nil {
			return
		}
		var data stream.TextDelta
		if !decode(frame, &data) {
			return
		}
		h.OnReflectionDelta(data.Delta)

	case stream.FrameReflectionComplete:
		if h.OnReflectionComplete == nil {
			return
		}
		var data stream.ReflectionCompleteData
		if !decode(frame, &data) {
			return
		}
		h.OnReflectionComplete(data.Text)

	case stream.FrameActionHint:
		if h.OnActionHints == nil {
			return
		}
		var data stream.ActionHintsData
		if !decode(frame, &data) {
			return
		}
		h.OnActionHints(data.Hints)

	case stream.FrameGraphEditSummary:
		if h.OnGraphEditSummary == nil {
			return
		}
		var data stream.GraphEditSummaryData
		if !decode(frame, &data) {
			return
		}
		h.OnGraphEditSummary(data)

	case stream.FrameTitleUpdate:
		if h.OnTitleUpdate == nil {
			return
		}
		var data stream.TitleUpdateData
		if !decode(frame, &data) {
			return
		}
		h.OnTitleUpdate(data.Title)

	case stream.FrameCaseSignal:
		if h.OnCaseSignal == nil {
			return
		}
		var data stream.CaseSignalData
		if !decode(frame, &data) {
			return
		}
		h.OnCaseSignal(data)

	case stream.FramePlanEditProposal:
		if h.OnPlanEditProposal == nil {
			return
		}
		var data stream.PlanEditProposalData
		if !decode(frame, &data) {
			return
		}
		h.OnPlanEditProposal(data)

	case stream.FrameOrientationEditProposal:
		if h.OnOrientationEditProposal == nil {
			return
		}
		var data stream.OrientationEditProposalData
		if !decode(frame, &data) {
			return
		}
		h.OnOrientationEditProposal(data)

	case stream.FramePositionProposal:
		if h.OnPositionProposal == nil {
			return
		}
		var data stream.PositionProposalData
		if !decode(frame, &data) {
			return
		}
		h.OnPositionProposal(data)

	case stream.FrameToolExecuted:
		if h.OnToolExecuted == nil {
			return
		}
		var data stream.ToolExecutedData
		if !decode(frame, &data) {
			return
		}
		h.OnToolExecuted(data)

	case stream.FrameToolConfirmationRequired:
		if h.OnToolConfirmation == nil {
			return
		}
		var data stream.ToolConfirmationData
		if !decode(frame, &data) {
			return
		}
		h.OnToolConfirmation(data)

	case stream.FrameDone:
		if h.OnDone == nil {
			return
		}
		var data stream.DoneData
		if !decode(frame, &data) {
			return
		}
		h.OnDone(data)

	case stream.FrameError:
		if h.OnError == nil {
			return
		}
		var data stream.ErrorData
		if !decode(frame, &data) {
			return
		}
		h.OnError(data)
	}
}

func decode(frame stream.Frame, v any) bool {
	if err := stream.DecodeData(frame, v); err != nil {
		logger.Warn("session: frame payload decode failed",
			logger.FieldFrameType, frame.Type,
			logger.FieldError, err,
		)
		return false
	}
	return true
}

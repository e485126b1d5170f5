// Package stream 封装推理后端的增量帧流客户端。
//
// 一次 send 打开一条 WebSocket 流, 后端按任意顺序推送多种帧,
// 以恰好一个终止帧 (done / error) 结束。
package stream

import "encoding/json"

// Frame 后端事件信封。未知 Type 由调用方忽略。
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ========================================
// 帧类型常量
// ========================================

const (
	// 内容 / 反思通道
	FrameContentDelta       = "content_delta"
	FrameReflectionDelta    = "reflection_delta"
	FrameReflectionComplete = "reflection_complete"

	// 建议 / 结构化编辑
	FrameActionHint              = "action_hint"
	FrameGraphEditSummary        = "graph_edit_summary"
	FrameTitleUpdate             = "title_update"
	FrameCaseSignal              = "case_signal"
	FramePlanEditProposal        = "plan_edit_proposal"
	FrameOrientationEditProposal = "orientation_edit_proposal"
	FramePositionProposal        = "position_proposal"

	// 工具执行
	FrameToolExecuted             = "tool_executed"
	FrameToolConfirmationRequired = "tool_confirmation_required"

	// 终止帧
	FrameDone  = "done"
	FrameError = "error"
)

// IsTerminal 判断是否为终止帧。
func IsTerminal(frameType string) bool {
	return frameType == FrameDone || frameType == FrameError
}

// ========================================
// 帧数据类型
// ========================================

// TextDelta 文本增量 (content_delta / reflection_delta 共用)。
type TextDelta struct {
	Delta string `json:"delta"`
}

// ReflectionCompleteData 反思叙述收束。
type ReflectionCompleteData struct {
	Text string `json:"text,omitempty"`
}

// ActionHint 后端推断出的松散类型建议。并非所有 type 都会产出卡片。
type ActionHint struct {
	Type   string          `json:"type"`
	Reason string          `json:"reason,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// ActionHintsData action_hint 帧载荷 (一帧可携带多条 hint)。
type ActionHintsData struct {
	Hints []ActionHint `json:"hints"`
}

// 会产出卡片的 hint type。
const (
	HintSuggestCaseCreation = "suggest_case_creation"
	HintSuggestPlanDiff     = "suggest_plan_diff"
)

// GraphEditSummaryData 本轮对知识图的结构化修改摘要。
type GraphEditSummaryData struct {
	Summary      string `json:"summary,omitempty"`
	NodesTouched int    `json:"nodes_touched,omitempty"`
}

// TitleUpdateData 线程标题更新。
type TitleUpdateData struct {
	Title string `json:"title"`
}

// CaseSignalData 后端检测到的决策信号 (建案提示的专用通道)。
type CaseSignalData struct {
	Reason     string  `json:"reason,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// PlanEditProposalData 计划编辑提案 (类型化通道, 优先于同类 hint)。
type PlanEditProposalData struct {
	Summary string `json:"summary,omitempty"`
	Diff    string `json:"diff,omitempty"`
}

// OrientationEditProposalData 方针编辑提案 (仅类型化通道)。
type OrientationEditProposalData struct {
	Summary string `json:"summary,omitempty"`
	Diff    string `json:"diff,omitempty"`
}

// PositionProposalData 立场更新建议。仅在历史重载时出现, 不走实时流。
type PositionProposalData struct {
	MessageID string `json:"message_id"`
	Statement string `json:"statement,omitempty"`
}

// ToolExecutedData 后端已执行的工具调用。
type ToolExecutedData struct {
	Tool   string          `json:"tool"`
	Args   json.RawMessage `json:"args,omitempty"`
	Result string          `json:"result,omitempty"`
}

// ToolConfirmationData 等待用户批准的工具调用。
type ToolConfirmationData struct {
	CallID string          `json:"call_id"`
	Tool   string          `json:"tool"`
	Args   json.RawMessage `json:"args,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

// DoneData 终止帧。助手产出过内容时 MessageID 必须携带持久 ID。
type DoneData struct {
	MessageID string `json:"message_id,omitempty"`
}

// ErrorData 服务端错误终止帧。
type ErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ========================================
// Client → Server 消息
// ========================================

// SendContext 透传给后端的行为选择上下文, 核心不解释其内容。
type SendContext struct {
	Mode       string `json:"mode,omitempty"`
	CaseID     string `json:"caseId,omitempty"`
	InquiryID  string `json:"inquiryId,omitempty"`
	SourceType string `json:"sourceType,omitempty"`
	SourceID   string `json:"sourceId,omitempty"`
}

// SendRequest 一次 send 的出站请求体。
type SendRequest struct {
	ThreadID string       `json:"thread_id"`
	Content  string       `json:"content"`
	Context  *SendContext `json:"context,omitempty"`
}

// DecodeData 解码帧载荷到目标结构。空载荷保持零值。
func DecodeData(f Frame, v any) error {
	if len(f.Data) == 0 {
		return nil
	}
	return json.Unmarshal(f.Data, v)
}

// Package cards 从事件帧派生内联操作卡片。
//
// 卡片锚定在"最近一条已完成的助手消息"上; 同一建议可能从两个通道到达
// (泛化 hint 与专用类型化帧), 去重采用按关注点的 claimed-anchor 集合:
// 先到先占, 同锚点同关注点只产出一张卡片, 不做事后撤回。
package cards

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/multi-agent/reasonspace/internal/stream"
	"github.com/multi-agent/reasonspace/pkg/logger"
)

// 卡片类型。
const (
	CardCaseCreationPrompt      = "case_creation_prompt"
	CardPlanDiffProposal        = "plan_diff_proposal"
	CardOrientationDiffProposal = "orientation_diff_proposal"
	CardToolExecuted            = "tool_executed"
	CardToolConfirmation        = "tool_confirmation"
	CardPositionUpdateProposal  = "position_update_proposal"
)

// 去重关注点 — 双通道建议按关注点占锚。
const (
	concernCaseCreation = "case_creation"
	concernPlanDiff     = "plan_diff"
	concernOrientation  = "orientation_diff"
)

// InlineActionCard 可驳回的派生卡片。卡片一经创建不再删除,
// Dismiss 只翻转标志, 顺序与身份对持有引用的消费者保持稳定。
type InlineActionCard struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	AnchorMessageID string    `json:"anchorMessageId"`
	Data            any       `json:"data,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	Dismissed       bool      `json:"dismissed"`
}

// Deriver 卡片派生器。claimed 集合与卡片集合同生命周期,
// 随线程切换一并 Reset。
type Deriver struct {
	mu           sync.Mutex
	cards        []InlineActionCard
	claimed      map[string]map[string]bool // concern → anchor id set
	positionSeen map[string]bool            // 历史 position 建议按消息 id 去重

	droppedNoAnchor int
}

func NewDeriver() *Deriver {
	return &Deriver{
		claimed:      make(map[string]map[string]bool),
		positionSeen: make(map[string]bool),
	}
}

// Cards 返回卡片快照 (副本)。
func (d *Deriver) Cards() []InlineActionCard {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]InlineActionCard, len(d.cards))
	copy(out, d.cards)
	return out
}

// Dismiss 标记卡片已驳回。集合长度与其余卡片不变。
func (d *Deriver) Dismiss(cardID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.cards {
		if d.cards[i].ID == cardID {
			d.cards[i].Dismissed = true
			return true
		}
	}
	return false
}

// Reset 清空卡片与全部去重状态。线程/会话切换时调用。
func (d *Deriver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cards = nil
	d.claimed = make(map[string]map[string]bool)
	d.positionSeen = make(map[string]bool)
	d.droppedNoAnchor = 0
}

// DroppedNoAnchor 返回因缺少锚点而丢弃的事件数 (可观测信号, 非致命)。
func (d *Deriver) DroppedNoAnchor() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.droppedNoAnchor
}

// DeriveHint 处理泛化建议 hint。未知 hint 类型忽略。
func (d *Deriver) DeriveHint(anchorID string, hint stream.ActionHint) {
	switch hint.Type {
	case stream.HintSuggestCaseCreation:
		d.deriveClaimed(concernCaseCreation, CardCaseCreationPrompt, anchorID, hint)
	case stream.HintSuggestPlanDiff:
		d.deriveClaimed(concernPlanDiff, CardPlanDiffProposal, anchorID, hint)
	default:
		logger.Debug("cards: unhandled hint type", logger.FieldHintType, hint.Type)
	}
}

// DeriveCaseSignal 处理专用决策信号帧。
func (d *Deriver) DeriveCaseSignal(anchorID string, data stream.CaseSignalData) {
	d.deriveClaimed(concernCaseCreation, CardCaseCreationPrompt, anchorID, data)
}

// DerivePlanEdit 处理类型化计划编辑帧。
func (d *Deriver) DerivePlanEdit(anchorID string, data stream.PlanEditProposalData) {
	d.deriveClaimed(concernPlanDiff, CardPlanDiffProposal, anchorID, data)
}

// DeriveOrientationEdit 处理类型化定向编辑帧 (单通道, 同样占锚防重放)。
func (d *Deriver) DeriveOrientationEdit(anchorID string, data stream.OrientationEditProposalData) {
	d.deriveClaimed(concernOrientation, CardOrientationDiffProposal, anchorID, data)
}

// DeriveToolExecuted 处理后端已执行的工具调用帧。无去重, 仅要求锚点。
func (d *Deriver) DeriveToolExecuted(anchorID string, data stream.ToolExecutedData) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.requireAnchorLocked(CardToolExecuted, anchorID) {
		return
	}
	d.appendLocked(CardToolExecuted, anchorID, data)
}

// DeriveToolConfirmation 处理等待用户批准的工具调用帧。
func (d *Deriver) DeriveToolConfirmation(anchorID string, data stream.ToolConfirmationData) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.requireAnchorLocked(CardToolConfirmation, anchorID) {
		return
	}
	d.appendLocked(CardToolConfirmation, anchorID, data)
}

// DerivePositionProposal 处理历史回载时的立场更新建议。
// 按消息 id 去重: 重复回载同一段历史不会产出第二张卡片。
func (d *Deriver) DerivePositionProposal(data stream.PositionProposalData) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if data.MessageID == "" {
		d.droppedNoAnchor++
		logger.Warn("cards: position proposal without message id dropped",
			logger.FieldCardType, CardPositionUpdateProposal)
		return
	}
	if d.positionSeen[data.MessageID] {
		return
	}
	d.positionSeen[data.MessageID] = true
	d.appendLocked(CardPositionUpdateProposal, data.MessageID, data)
}

// deriveClaimed 带占锚去重的派生路径: 首见通道占锚, 后到通道被抑制。
func (d *Deriver) deriveClaimed(concern, cardType, anchorID string, data any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.requireAnchorLocked(cardType, anchorID) {
		return
	}
	set := d.claimed[concern]
	if set == nil {
		set = make(map[string]bool)
		d.claimed[concern] = set
	}
	if set[anchorID] {
		logger.Debug("cards: suppressed by claimed anchor",
			logger.FieldCardType, cardType,
			logger.FieldAnchorID, anchorID,
		)
		return
	}
	set[anchorID] = true
	d.appendLocked(cardType, anchorID, data)
}

func (d *Deriver) requireAnchorLocked(cardType, anchorID string) bool {
	if anchorID != "" {
		return true
	}
	d.droppedNoAnchor++
	logger.Warn("cards: event dropped, no completed assistant message to anchor",
		logger.FieldCardType, cardType)
	return false
}

func (d *Deriver) appendLocked(cardType, anchorID string, data any) {
	card := InlineActionCard{
		ID:              "card-" + uuid.NewString(),
		Type:            cardType,
		AnchorMessageID: anchorID,
		Data:            data,
		CreatedAt:       time.Now(),
	}
	d.cards = append(d.cards, card)
	logger.Debug("cards: derived",
		logger.FieldCardType, cardType,
		logger.FieldCardID, card.ID,
		logger.FieldAnchorID, anchorID,
	)
}

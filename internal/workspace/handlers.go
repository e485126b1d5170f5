// handlers.go — 会话帧处理槽位装配与收尾。
package workspace

import (
	"context"
	"time"

	"github.com/multi-agent/reasonspace/internal/companion"
	"github.com/multi-agent/reasonspace/internal/session"
	"github.com/multi-agent/reasonspace/internal/store"
	"github.com/multi-agent/reasonspace/internal/stream"
	"github.com/multi-agent/reasonspace/internal/timeline"
	"github.com/multi-agent/reasonspace/pkg/logger"
)

const persistTimeout = 5 * time.Second

// anchor 当前锚点: 最近一条已完成的助手消息 id。仅在 done 帧更新,
// 流式中的占位消息不作锚点。
func (ws *ThreadWorkspace) anchor() string {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.lastCompletedAssistantID
}

func (ws *ThreadWorkspace) touch(s companion.Section) {
	ws.lastUpdated[s] = time.Now()
}

// buildHandlers 把一次会话的帧流接到工作区状态上。
func (h *Hub) buildHandlers(ws *ThreadWorkspace, sess *session.Session) *session.Handlers {
	return &session.Handlers{
		OnContentDelta: func(delta string) {
			// 逐帧同步写入, 部分内容即时可见。
			if !h.tl.AppendDelta(ws.ID, sess.SpecAssistantID, delta) {
				logger.Warn("content delta without speculative target",
					logger.FieldThreadID, ws.ID,
					logger.FieldMessageID, sess.SpecAssistantID,
				)
				return
			}
			h.publish(EventTimeline, map[string]any{"threadId": ws.ID})
		},

		OnReflectionDelta: func(delta string) {
			ws.mu.Lock()
			ws.narrationText += delta
			ws.narrationStreaming = true
			ws.touch(companion.SectionNarration)
			ws.mu.Unlock()
			h.publish(EventSections, map[string]any{"threadId": ws.ID})
		},

		OnReflectionComplete: func(text string) {
			ws.mu.Lock()
			if text != "" {
				ws.narrationText = text
			}
			ws.narrationStreaming = false
			ws.touch(companion.SectionNarration)
			ws.mu.Unlock()
			h.publish(EventSections, map[string]any{"threadId": ws.ID})
		},

		OnActionHints: func(hints []stream.ActionHint) {
			anchor := ws.anchor()
			ws.mu.Lock()
			for _, hint := range hints {
				ws.cards.DeriveHint(anchor, hint)
			}
			ws.hintCount += len(hints)
			ws.touch(companion.SectionActionHints)
			ws.mu.Unlock()
			h.publish(EventCards, map[string]any{"threadId": ws.ID})
		},

		OnGraphEditSummary: func(data stream.GraphEditSummaryData) {
			ws.mu.Lock()
			ws.statusText = data.Summary
			ws.touch(companion.SectionStatus)
			ws.mu.Unlock()
			h.publish(EventSections, map[string]any{"threadId": ws.ID})
		},

		OnTitleUpdate: func(title string) {
			ws.mu.Lock()
			ws.title = title
			ws.mu.Unlock()
			if h.threads != nil {
				ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
				defer cancel()
				if err := h.threads.SetTitle(ctx, ws.ID, title); err != nil {
					logger.Warn("persist title failed", logger.FieldThreadID, ws.ID, logger.FieldError, err)
				}
			}
			h.publish(EventTitle, map[string]any{"threadId": ws.ID, "title": title})
		},

		OnCaseSignal: func(data stream.CaseSignalData) {
			anchor := ws.anchor()
			ws.mu.Lock()
			ws.cards.DeriveCaseSignal(anchor, data)
			ws.hasCaseState = true
			ws.touch(companion.SectionCaseState)
			ws.mu.Unlock()
			h.publish(EventCards, map[string]any{"threadId": ws.ID})
		},

		OnPlanEditProposal: func(data stream.PlanEditProposalData) {
			ws.mu.Lock()
			ws.cards.DerivePlanEdit(ws.lastCompletedAssistantID, data)
			ws.mu.Unlock()
			h.publish(EventCards, map[string]any{"threadId": ws.ID})
		},

		OnOrientationEditProposal: func(data stream.OrientationEditProposalData) {
			ws.mu.Lock()
			ws.cards.DeriveOrientationEdit(ws.lastCompletedAssistantID, data)
			ws.mu.Unlock()
			h.publish(EventCards, map[string]any{"threadId": ws.ID})
		},

		OnPositionProposal: func(data stream.PositionProposalData) {
			ws.mu.Lock()
			ws.cards.DerivePositionProposal(data)
			ws.mu.Unlock()
			h.publish(EventCards, map[string]any{"threadId": ws.ID})
		},

		OnToolExecuted: func(data stream.ToolExecutedData) {
			ws.mu.Lock()
			ws.cards.DeriveToolExecuted(ws.lastCompletedAssistantID, data)
			ws.mu.Unlock()
			h.publish(EventCards, map[string]any{"threadId": ws.ID})
		},

		OnToolConfirmation: func(data stream.ToolConfirmationData) {
			ws.mu.Lock()
			ws.cards.DeriveToolConfirmation(ws.lastCompletedAssistantID, data)
			ws.mu.Unlock()
			h.publish(EventCards, map[string]any{"threadId": ws.ID})
		},

		OnDone: func(data stream.DoneData) {
			// 本轮推测对整体收敛: assistant 换后端下发的 ID, user 换
			// 本地铸造的持久 ID。收敛后的消息不再是推测条目, 后续
			// 重试的占位清理不会波及。
			sess.DurableUserID = timeline.NewDurableID()
			h.tl.Reconcile(ws.ID, sess.SpecUserID, sess.DurableUserID)
			h.tl.Reconcile(ws.ID, sess.SpecAssistantID, data.MessageID)
			ws.mu.Lock()
			if data.MessageID != "" {
				ws.lastCompletedAssistantID = data.MessageID
			}
			ws.retryContent = ""
			ws.retryCtx = nil
			ws.mu.Unlock()
			h.publish(EventTimeline, map[string]any{"threadId": ws.ID})
		},

		OnError: func(data stream.ErrorData) {
			logger.Warn("backend error frame",
				logger.FieldThreadID, ws.ID,
				logger.FieldSessionID, sess.ID,
				logger.FieldError, data.Message,
			)
		},
	}
}

// finishSession 会话终止后的收尾: 清理推测占位、留存收据、落库。
func (h *Hub) finishSession(ws *ThreadWorkspace, sess *session.Session, err error) {
	state := sess.State()

	switch state {
	case session.StateCompleted:
		h.persistExchange(ws, sess)
	case session.StateErrored:
		// 推测助手占位删除, 用户消息保留以便重试。
		h.tl.DropSpeculativeAssistant(ws.ID, sess.SpecAssistantID)
		logger.Warn("session failed",
			logger.FieldThreadID, ws.ID,
			logger.FieldSessionID, sess.ID,
			logger.FieldError, err,
		)
	case session.StateAborted:
		// 中止同样清理占位, 但不保留重试内容, 也不报错。
		h.tl.DropSpeculativeAssistant(ws.ID, sess.SpecAssistantID)
		ws.mu.Lock()
		ws.retryContent = ""
		ws.retryCtx = nil
		ws.mu.Unlock()
	}

	receipt := sess.Receipt()
	ws.mu.Lock()
	ws.narrationStreaming = false
	ws.receipts = append([]session.Receipt{receipt}, ws.receipts...)
	if len(ws.receipts) > 50 {
		ws.receipts = ws.receipts[:50]
	}
	ws.touch(companion.SectionReceipts)
	ws.mu.Unlock()

	h.publish(EventReceipt, receipt)
	h.publish(EventTimeline, map[string]any{"threadId": ws.ID})
}

// persistExchange 会话成功后把本轮对话写入持久层。
// 两条消息都以收敛后的持久 id 入库, 推测前缀不进入持久 id 空间。
func (h *Hub) persistExchange(ws *ThreadWorkspace, sess *session.Session) {
	if h.messages == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	userID := sess.DurableUserID
	if userID == "" {
		userID = sess.SpecUserID
	}
	if m, ok := h.tl.Find(ws.ID, userID); ok {
		rec := store.MessageRecord{
			ID:        m.ID,
			ThreadID:  ws.ID,
			Role:      timeline.RoleUser,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
		if err := h.messages.Upsert(ctx, &rec); err != nil {
			logger.Warn("persist user message failed", logger.FieldThreadID, ws.ID, logger.FieldError, err)
		}
	}

	assistantID := ws.anchor()
	if assistantID == "" {
		return
	}
	if m, ok := h.tl.Find(ws.ID, assistantID); ok {
		rec := store.MessageRecord{
			ID:        m.ID,
			ThreadID:  ws.ID,
			Role:      timeline.RoleAssistant,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		}
		if err := h.messages.Upsert(ctx, &rec); err != nil {
			logger.Warn("persist assistant message failed", logger.FieldThreadID, ws.ID, logger.FieldError, err)
		}
	}
}

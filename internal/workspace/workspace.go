// Package workspace 管理各线程的会话运行时。
//
// Hub 持有全部线程的时间线与派生状态; 每个线程同一时刻至多一个
// 活跃流式会话, 忙时新 send 直接拒绝 (ErrSessionBusy)。会话的
// 推测消息对随会话生灭, 操作卡片跨会话留存、随线程切换清空。
package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/multi-agent/reasonspace/internal/cards"
	"github.com/multi-agent/reasonspace/internal/companion"
	"github.com/multi-agent/reasonspace/internal/config"
	"github.com/multi-agent/reasonspace/internal/session"
	"github.com/multi-agent/reasonspace/internal/store"
	"github.com/multi-agent/reasonspace/internal/stream"
	"github.com/multi-agent/reasonspace/internal/timeline"
	apperrors "github.com/multi-agent/reasonspace/pkg/errors"
	"github.com/multi-agent/reasonspace/pkg/logger"
	"github.com/multi-agent/reasonspace/pkg/util"
)

// Notifier 状态变更通知出口 (面板 SSE)。
type Notifier interface {
	Publish(event string, payload any)
}

// 通知事件名。
const (
	EventTimeline = "timeline"
	EventCards    = "cards"
	EventReceipt  = "receipt"
	EventTitle    = "title"
	EventSections = "sections"
)

// MessageStore 持久消息读写 (可为 nil, 纯内存运行)。
type MessageStore interface {
	Upsert(ctx context.Context, m *store.MessageRecord) error
	ListByThread(ctx context.Context, threadID string, limit int) ([]store.MessageRecord, error)
}

// ThreadStore 线程元数据读写 (可为 nil)。
type ThreadStore interface {
	Upsert(ctx context.Context, t *store.ThreadRecord) error
	SetTitle(ctx context.Context, threadID, title string) error
}

// Hub 线程工作区集线器。
type Hub struct {
	cfg      *config.Config
	streamer stream.Streamer
	tl       *timeline.Timeline
	messages MessageStore
	threads  ThreadStore
	notifier Notifier

	mu         sync.RWMutex
	workspaces map[string]*ThreadWorkspace
	activeID   string // 当前打开的线程
}

// ThreadWorkspace 单线程运行时: 活跃会话、卡片、面板区块状态。
type ThreadWorkspace struct {
	ID string

	mu    sync.Mutex
	title string
	mode  companion.Mode

	sess                     *session.Session
	cards                    *cards.Deriver
	lastCompletedAssistantID string

	// 失败后一键重试所需的内容。中止清空, 成功清空。
	retryContent string
	retryCtx     *stream.SendContext

	narrationText      string
	narrationStreaming bool
	hintCount          int
	statusText         string
	receipts           []session.Receipt
	hasCaseState       bool
	pinned             companion.Section
	lastUpdated        map[companion.Section]time.Time
}

// NewHub 创建集线器。messages/threads/notifier 允许为 nil。
func NewHub(cfg *config.Config, streamer stream.Streamer, messages MessageStore, threads ThreadStore, notifier Notifier) *Hub {
	return &Hub{
		cfg:        cfg,
		streamer:   streamer,
		tl:         timeline.New(),
		messages:   messages,
		threads:    threads,
		notifier:   notifier,
		workspaces: make(map[string]*ThreadWorkspace),
	}
}

// Timeline 返回共享时间线。
func (h *Hub) Timeline() *timeline.Timeline { return h.tl }

func (h *Hub) publish(event string, payload any) {
	if h.notifier != nil {
		h.notifier.Publish(event, payload)
	}
}

// workspace 取或建线程工作区。
func (h *Hub) workspace(threadID string) *ThreadWorkspace {
	h.mu.Lock()
	defer h.mu.Unlock()
	ws, ok := h.workspaces[threadID]
	if !ok {
		ws = &ThreadWorkspace{
			ID:          threadID,
			mode:        companion.ModeCasual,
			cards:       cards.NewDeriver(),
			lastUpdated: make(map[companion.Section]time.Time),
		}
		h.workspaces[threadID] = ws
	}
	return ws
}

// OpenThread 切换到指定线程: 回载历史、清空卡片与去重状态,
// 历史中带立场建议的消息重新派生 position_update_proposal 卡片。
func (h *Hub) OpenThread(ctx context.Context, threadID string, mode companion.Mode) error {
	ws := h.workspace(threadID)

	h.mu.Lock()
	switched := h.activeID != threadID
	h.activeID = threadID
	h.mu.Unlock()

	ws.mu.Lock()
	if mode != "" {
		ws.mode = mode
	}
	if switched {
		ws.cards.Reset()
	}
	ws.mu.Unlock()

	if h.threads != nil {
		if err := h.threads.Upsert(ctx, &store.ThreadRecord{ID: threadID, Mode: string(mode)}); err != nil {
			logger.Warn("open thread: upsert failed", logger.FieldThreadID, threadID, logger.FieldError, err)
		}
	}

	if h.messages == nil {
		return nil
	}
	records, err := h.messages.ListByThread(ctx, threadID, 200)
	if err != nil {
		return apperrors.Wrap(err, "OpenThread", "load history")
	}

	msgs := make([]timeline.Message, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, timeline.Message{
			ID:        r.ID,
			ThreadID:  r.ThreadID,
			Role:      r.Role,
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
		})
	}
	h.tl.Hydrate(threadID, msgs)

	// 回载路径: 历史消息携带的立场建议派生卡片, 按消息 id 去重。
	ws.mu.Lock()
	for _, r := range records {
		if r.Role == timeline.RoleAssistant && r.ID != "" {
			ws.lastCompletedAssistantID = r.ID
		}
		if r.PositionStatement != "" {
			ws.cards.DerivePositionProposal(stream.PositionProposalData{
				MessageID: r.ID,
				Statement: r.PositionStatement,
			})
		}
	}
	ws.mu.Unlock()

	h.publish(EventTimeline, map[string]any{"threadId": threadID})
	return nil
}

// Send 在线程上发起一次流式会话。线程已有活跃会话时拒绝。
func (h *Hub) Send(ctx context.Context, threadID, content string, sendCtx *stream.SendContext) (string, error) {
	ws := h.workspace(threadID)

	ws.mu.Lock()
	if ws.sess != nil && !ws.sess.State().Terminal() {
		ws.mu.Unlock()
		return "", apperrors.Wrap(apperrors.ErrSessionBusy, "Send", "a session is already streaming on this thread")
	}

	userID, assistantID := h.tl.AppendPair(threadID, content)
	sess := session.New(threadID)
	sess.SpecUserID = userID
	sess.SpecAssistantID = assistantID
	ws.sess = sess
	ws.retryContent = content
	ws.retryCtx = sendCtx
	ws.mu.Unlock()

	req := stream.SendRequest{ThreadID: threadID, Content: content, Context: sendCtx}
	handlers := h.buildHandlers(ws, sess)

	util.SafeGo(func() {
		err := sess.Run(ctx, h.streamer, req, h.cfg.FirstTokenTimeout(), h.cfg.StreamTimeout(), handlers)
		h.finishSession(ws, sess, err)
	})

	h.publish(EventTimeline, map[string]any{"threadId": threadID})
	logger.Info("send started",
		logger.FieldThreadID, threadID,
		logger.FieldSessionID, sess.ID,
	)
	return sess.ID, nil
}

// Stop 停止线程上的活跃会话。无会话时为空操作。
func (h *Hub) Stop(threadID string) {
	ws := h.workspace(threadID)
	ws.mu.Lock()
	sess := ws.sess
	ws.mu.Unlock()
	if sess != nil {
		sess.Stop()
	}
}

// Retry 重发上次失败的内容。先清除上次遗留的推测占位, 再走全新会话。
func (h *Hub) Retry(ctx context.Context, threadID string) (string, error) {
	ws := h.workspace(threadID)

	ws.mu.Lock()
	content := ws.retryContent
	sendCtx := ws.retryCtx
	var leftoverIDs []string
	if ws.sess != nil {
		leftoverIDs = []string{ws.sess.SpecUserID, ws.sess.SpecAssistantID}
	}
	ws.mu.Unlock()
	if content == "" {
		return "", apperrors.New("Retry", "nothing to retry")
	}

	// 只清理上一次失败会话自己的推测占位; 已收敛的历史消息不受影响。
	if purged := h.tl.PurgeSpeculative(threadID, leftoverIDs...); purged > 0 {
		logger.Info("retry: purged leftover speculative messages",
			logger.FieldThreadID, threadID,
			logger.FieldCount, purged,
		)
	}
	return h.Send(ctx, threadID, content, sendCtx)
}

// DismissCard 驳回卡片。
func (h *Hub) DismissCard(threadID, cardID string) bool {
	ws := h.workspace(threadID)
	ws.mu.Lock()
	ok := ws.cards.Dismiss(cardID)
	ws.mu.Unlock()
	if ok {
		h.publish(EventCards, map[string]any{"threadId": threadID, "dismissed": cardID})
	}
	return ok
}

// Cards 返回线程卡片快照。
func (h *Hub) Cards(threadID string) []cards.InlineActionCard {
	ws := h.workspace(threadID)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.cards.Cards()
}

// PinSection 固定面板区块 (空值取消固定)。
func (h *Hub) PinSection(threadID string, s companion.Section) {
	ws := h.workspace(threadID)
	ws.mu.Lock()
	ws.pinned = s
	ws.mu.Unlock()
	h.publish(EventSections, map[string]any{"threadId": threadID})
}

// Rank 计算线程当前的面板区块排序。
func (h *Hub) Rank(threadID string) []companion.RankedSection {
	ws := h.workspace(threadID)
	ws.mu.Lock()
	in := companion.RankInput{
		NarrationText:      ws.narrationText,
		NarrationStreaming: ws.narrationStreaming,
		HintCount:          ws.hintCount,
		StatusText:         ws.statusText,
		ReceiptCount:       len(ws.receipts),
		HasCaseState:       ws.hasCaseState,
		Mode:               ws.mode,
		PinnedSection:      ws.pinned,
		LastUpdated:        cloneUpdated(ws.lastUpdated),
		Now:                time.Now(),
		RecentWindow:       h.cfg.SectionRecentWindow(),
		StaleWindow:        h.cfg.SectionStaleWindow(),
	}
	ws.mu.Unlock()
	return companion.Rank(in)
}

// Diagnostics 线程可观测计数 (面板诊断页)。
func (h *Hub) Diagnostics(threadID string) map[string]any {
	ws := h.workspace(threadID)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	state := "idle"
	if ws.sess != nil {
		state = string(ws.sess.State())
	}
	return map[string]any{
		"threadId":        ws.ID,
		"title":           ws.title,
		"mode":            string(ws.mode),
		"sessionState":    state,
		"cardCount":       len(ws.cards.Cards()),
		"droppedNoAnchor": ws.cards.DroppedNoAnchor(),
		"receiptCount":    len(ws.receipts),
		"timelineLen":     h.tl.Len(ws.ID),
	}
}

// Receipts 返回线程会话收据 (新→旧)。
func (h *Hub) Receipts(threadID string) []session.Receipt {
	ws := h.workspace(threadID)
	ws.mu.Lock()
	defer ws.mu.Unlock()
	out := make([]session.Receipt, len(ws.receipts))
	copy(out, ws.receipts)
	return out
}

func cloneUpdated(m map[companion.Section]time.Time) map[companion.Section]time.Time {
	out := make(map[companion.Section]time.Time, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Package timeline 维护每线程的消息时间线。
//
// send 乐观插入一对推测消息 (speculative user + assistant), 内容帧逐帧
// 同步追加到推测 assistant 条目, done 帧把两条推测 ID 都原位收敛为持久 ID
// (assistant 用后端下发的 ID, user 用本地铸造的持久 ID)。
// 失败/中止时只删推测 assistant, 推测 user 保留以便一键重试。
package timeline

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// 消息角色。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// speculativeIDPrefix 推测 ID 前缀, 与后端持久 ID 空间显式区分。
const speculativeIDPrefix = "draft-"

// NewSpeculativeID 生成会话本地的推测消息 ID。
func NewSpeculativeID() string {
	return speculativeIDPrefix + uuid.NewString()
}

// IsSpeculative 判断 ID 是否为客户端推测 ID。
func IsSpeculative(id string) bool {
	return strings.HasPrefix(id, speculativeIDPrefix)
}

// NewDurableID 铸造本地持久 ID。done 收敛时 user 条目没有后端 ID,
// 用它替换推测 ID, 使已完成轮次不再落入推测清理的范围。
func NewDurableID() string {
	return "msg-" + uuid.NewString()
}

// Message 时间线消息记录。
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"threadId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Streaming bool      `json:"streaming,omitempty"`
}

// Timeline 多线程消息时间线 (goroutine-safe)。
type Timeline struct {
	mu       sync.RWMutex
	byThread map[string][]Message
}

// New 创建空时间线。
func New() *Timeline {
	return &Timeline{byThread: map[string][]Message{}}
}

// Messages 返回线程消息的副本。
func (t *Timeline) Messages(threadID string) []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	src := t.byThread[threadID]
	out := make([]Message, len(src))
	copy(out, src)
	return out
}

// Len 返回线程消息数。
func (t *Timeline) Len(threadID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byThread[threadID])
}

// AppendPair 按 send 顺序插入推测 user + 推测 assistant 占位。
// 返回两个推测 ID。
func (t *Timeline) AppendPair(threadID, content string) (userID, assistantID string) {
	userID = NewSpeculativeID()
	assistantID = NewSpeculativeID()
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	list := append([]Message{}, t.byThread[threadID]...)
	list = append(list,
		Message{ID: userID, ThreadID: threadID, Role: RoleUser, Content: content, CreatedAt: now},
		Message{ID: assistantID, ThreadID: threadID, Role: RoleAssistant, Content: "", CreatedAt: now, Streaming: true},
	)
	t.byThread[threadID] = list
	return userID, assistantID
}

// AppendDelta 将增量同步追加到指定 ID 的条目 (逐帧调用, 不做批量合并)。
// 目标不存在时返回 false。
func (t *Timeline) AppendDelta(threadID, messageID, delta string) bool {
	if delta == "" {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.patchLocked(threadID, messageID, func(m *Message) {
		m.Content += delta
	})
}

// Reconcile 把推测条目的 ID 原位替换为持久 ID, 并清除 streaming
// 标记。位置、内容、长度均不变。durableID 为空时仅清标记。
func (t *Timeline) Reconcile(threadID, speculativeID, durableID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.patchLocked(threadID, speculativeID, func(m *Message) {
		if durableID != "" {
			m.ID = durableID
		}
		m.Streaming = false
	})
}

// DropSpeculativeAssistant 删除失败会话的推测 assistant 条目。
// 推测 user 条目保留 (其内容用于重试)。
func (t *Timeline) DropSpeculativeAssistant(threadID, speculativeID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	list := t.byThread[threadID]
	for i, m := range list {
		if m.ID == speculativeID && m.Role == RoleAssistant {
			next := append([]Message{}, list[:i]...)
			next = append(next, list[i+1:]...)
			t.byThread[threadID] = next
			return true
		}
	}
	return false
}

// PurgeSpeculative 清除指定推测条目 (重试前调用, 避免占位重复)。
// 只删 ids 中仍为推测 ID 的条目 — 已收敛为持久 ID 的消息不受影响,
// 其它会话的推测条目同样不碰。返回清除条数。
func (t *Timeline) PurgeSpeculative(threadID string, ids ...string) int {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if IsSpeculative(id) {
			drop[id] = true
		}
	}
	if len(drop) == 0 {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	list := t.byThread[threadID]
	next := make([]Message, 0, len(list))
	removed := 0
	for _, m := range list {
		if drop[m.ID] {
			removed++
			continue
		}
		next = append(next, m)
	}
	if removed > 0 {
		t.byThread[threadID] = next
	}
	return removed
}

// Hydrate 用持久消息重建线程时间线 (历史重载)。
func (t *Timeline) Hydrate(threadID string, messages []Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	list := make([]Message, len(messages))
	copy(list, messages)
	t.byThread[threadID] = list
}

// Clear 清空线程时间线。
func (t *Timeline) Clear(threadID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byThread, threadID)
}

// Find 按 ID 查找消息。
func (t *Timeline) Find(threadID, messageID string) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, m := range t.byThread[threadID] {
		if m.ID == messageID {
			return m, true
		}
	}
	return Message{}, false
}

// patchLocked 原位修改指定条目 (copy-on-write)。须持有 t.mu。
func (t *Timeline) patchLocked(threadID, messageID string, patch func(*Message)) bool {
	list := t.byThread[threadID]
	for i := range list {
		if list[i].ID != messageID {
			continue
		}
		next := append([]Message{}, list...)
		patch(&next[i])
		t.byThread[threadID] = next
		return true
	}
	return false
}

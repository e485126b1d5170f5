// guard.go — 会话双层超时守卫。
//
// 两个独立定时器共享同一个取消动作:
//   - 首帧定时器 (T1): send 时武装, 首个内容帧到达即解除
//   - 总时长定时器 (T2): send 时武装, done 终止帧才解除
//
// 无论哪个定时器触发、或用户手动停止, 取消动作恰好执行一次。
package session

import (
	"sync"
	"time"

	apperrors "github.com/multi-agent/reasonspace/pkg/errors"
)

// TimeoutGuard 双定时器超时守卫。
type TimeoutGuard struct {
	mu         sync.Mutex
	firstToken *time.Timer
	total      *time.Timer
	once       sync.Once
	cancel     func(reason error)
}

// NewTimeoutGuard 创建守卫。cancel 为共享取消动作, 只会被调用一次。
func NewTimeoutGuard(cancel func(reason error)) *TimeoutGuard {
	return &TimeoutGuard{cancel: cancel}
}

// Arm 同时武装两个定时器。重复 Arm 先清旧定时器。
func (g *TimeoutGuard) Arm(firstToken, total time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
	g.firstToken = time.AfterFunc(firstToken, func() {
		g.fire(apperrors.ErrFirstTokenTimeout)
	})
	g.total = time.AfterFunc(total, func() {
		g.fire(apperrors.ErrStreamTimeout)
	})
}

// DisarmFirstToken 解除首帧定时器 (首个内容帧到达时调用)。
func (g *TimeoutGuard) DisarmFirstToken() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.firstToken != nil {
		g.firstToken.Stop()
		g.firstToken = nil
	}
}

// DisarmAll 解除两个定时器 (终止帧或拆除时调用)。
func (g *TimeoutGuard) DisarmAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
}

// CancelNow 以给定原因立即触发共享取消 (用户停止 / 组件拆除)。
// 幂等: 定时器已触发过则本次无效果。
func (g *TimeoutGuard) CancelNow(reason error) {
	g.mu.Lock()
	g.stopLocked()
	g.mu.Unlock()
	g.once.Do(func() { g.cancel(reason) })
}

// fire 定时器回调: 先清两个定时器再执行共享取消, 保证不双触发。
func (g *TimeoutGuard) fire(reason error) {
	g.mu.Lock()
	g.stopLocked()
	g.mu.Unlock()
	g.once.Do(func() { g.cancel(reason) })
}

// stopLocked 停掉两个定时器。须持有 g.mu。
func (g *TimeoutGuard) stopLocked() {
	if g.firstToken != nil {
		g.firstToken.Stop()
		g.firstToken = nil
	}
	if g.total != nil {
		g.total.Stop()
		g.total = nil
	}
}

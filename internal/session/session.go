// Package session 实现一次 send 的流式会话状态机。
//
// 状态: idle → sending → streaming → {completed | errored | aborted}。
// 会话持有取消上下文与双层超时守卫; 终止态之后到达的帧一律静默丢弃
// (取消与在途帧的竞争由此兜底)。
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/multi-agent/reasonspace/internal/stream"
	apperrors "github.com/multi-agent/reasonspace/pkg/errors"
	"github.com/multi-agent/reasonspace/pkg/logger"
)

// State 会话状态。
type State string

const (
	StateIdle      State = "idle"
	StateSending   State = "sending"
	StateStreaming State = "streaming"
	StateCompleted State = "completed"
	StateErrored   State = "errored"
	StateAborted   State = "aborted"
)

// Terminal 判断状态是否为终止态。
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateErrored || s == StateAborted
}

// Receipt 会话收据 — 完成或失败后留存的度量记录。
type Receipt struct {
	SessionID  string    `json:"sessionId"`
	ThreadID   string    `json:"threadId"`
	State      State     `json:"state"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	TTFTMillis int64     `json:"ttftMs,omitempty"`
	TotalMS    int64     `json:"totalMs"`
	Error      string    `json:"error,omitempty"`
}

// Session 一次 send 操作的状态机。随 send 创建, 到终止态即走完生命周期。
type Session struct {
	ID       string
	ThreadID string

	// 推测消息对的 ID, 随会话创建、随会话收敛或丢弃。
	SpecUserID      string
	SpecAssistantID string

	// DurableUserID done 收敛时为 user 条目铸造的持久 ID。
	// 由 done 帧的处理槽位写入, 会话完成前为空。
	DurableUserID string

	guard *TimeoutGuard

	mu               sync.Mutex
	state            State
	err              error
	cancel           context.CancelFunc
	requestStartedAt time.Time
	firstTokenAt     time.Time
	finishedAt       time.Time
}

// New 创建 idle 会话。
func New(threadID string) *Session {
	s := &Session{
		ID:       "sess-" + uuid.NewString(),
		ThreadID: threadID,
		state:    StateIdle,
	}
	s.guard = NewTimeoutGuard(s.failAndCancel)
	return s
}

// State 返回当前状态。
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err 返回终止错误 (completed / aborted 为 nil)。
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// TTFT 返回首帧延迟; 尚无内容帧时为 0。
func (s *Session) TTFT() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firstTokenAt.IsZero() {
		return 0
	}
	return s.firstTokenAt.Sub(s.requestStartedAt)
}

// Receipt 生成会话收据。
func (s *Session) Receipt() Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := Receipt{
		SessionID: s.ID,
		ThreadID:  s.ThreadID,
		State:     s.state,
		StartedAt: s.requestStartedAt,
	}
	if !s.firstTokenAt.IsZero() {
		r.TTFTMillis = s.firstTokenAt.Sub(s.requestStartedAt).Milliseconds()
	}
	end := s.finishedAt
	if end.IsZero() {
		end = time.Now()
	}
	r.FinishedAt = end
	if !s.requestStartedAt.IsZero() {
		r.TotalMS = end.Sub(s.requestStartedAt).Milliseconds()
	}
	if s.err != nil {
		r.Error = s.err.Error()
	}
	return r
}

// Run 执行会话: 武装定时器、打开流、逐帧分发, 到终止态返回。
// 返回值为终止错误 (completed/aborted 返回 nil — 中止不是错误)。
// 调用方负责在独立 goroutine 中运行。
func (s *Session) Run(parent context.Context, streamer stream.Streamer, req stream.SendRequest, firstToken, total time.Duration, handlers *Handlers) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	s.mu.Lock()
	if s.state == StateAborted {
		// Stop 先于 Run 到达: 不发请求, 直接按中止收场。
		s.mu.Unlock()
		return nil
	}
	if s.state != StateIdle {
		s.mu.Unlock()
		return apperrors.New("Session.Run", "session already started")
	}
	s.state = StateSending
	s.cancel = cancel
	s.requestStartedAt = time.Now()
	s.mu.Unlock()

	s.guard.Arm(firstToken, total)
	defer s.guard.DisarmAll()

	err := streamer.Stream(ctx, req, func(frame stream.Frame) {
		s.handleFrame(frame, handlers)
	})

	// 传输层返回后收敛状态: 帧流已把会话带入终止态则维持原判,
	// 否则视为传输失败。
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Terminal() {
		s.state = StateErrored
		s.err = apperrors.Wrap(apperrors.ErrTransport, "Session.Run", "stream ended without terminal frame")
		if err != nil && !apperrors.Is(err, context.Canceled) {
			s.err = err
		}
		s.finishedAt = time.Now()
	}
	if s.state == StateErrored {
		return s.err
	}
	return nil
}

// Stop 用户主动停止。幂等: 已终止的会话无效果。
// Run 尚未启动时同样生效: 状态直接置为 aborted, 之后的 Run 不再发请求。
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = StateAborted
	s.finishedAt = time.Now()
	s.mu.Unlock()

	s.guard.CancelNow(apperrors.ErrAborted)
	logger.Info("session aborted by user",
		logger.FieldSessionID, s.ID,
		logger.FieldThreadID, s.ThreadID,
	)
}

// failAndCancel 共享取消动作: 定时器触发或显式停止时执行。
// 状态已终止 (如 Stop 先到) 时不覆盖原判, 但仍拆网络连接。
func (s *Session) failAndCancel(reason error) {
	s.mu.Lock()
	var cancel context.CancelFunc
	if !s.state.Terminal() {
		if apperrors.Is(reason, apperrors.ErrAborted) {
			s.state = StateAborted
		} else {
			s.state = StateErrored
			s.err = reason
		}
		s.finishedAt = time.Now()
	}
	cancel = s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if !apperrors.Is(reason, apperrors.ErrAborted) {
		logger.Warn("session cancelled",
			logger.FieldSessionID, s.ID,
			logger.FieldThreadID, s.ThreadID,
			logger.FieldError, reason,
		)
	}
}

// handleFrame 单帧入口: 先推进状态机, 再交 handler 分发。
func (s *Session) handleFrame(frame stream.Frame, handlers *Handlers) {
	s.mu.Lock()
	if s.state.Terminal() {
		// 终止态后的在途帧: 静默丢弃。
		s.mu.Unlock()
		logger.Debug("session: late frame dropped",
			logger.FieldSessionID, s.ID,
			logger.FieldFrameType, frame.Type,
		)
		return
	}

	switch frame.Type {
	case stream.FrameContentDelta, stream.FrameReflectionDelta:
		if s.state == StateSending {
			s.state = StateStreaming
			s.firstTokenAt = time.Now()
			ttft := s.firstTokenAt.Sub(s.requestStartedAt)
			s.mu.Unlock()
			s.guard.DisarmFirstToken()
			logger.Info("session: first frame",
				logger.FieldSessionID, s.ID,
				logger.FieldThreadID, s.ThreadID,
				logger.FieldLatencyMS, ttft.Milliseconds(),
			)
			s.mu.Lock()
		}
	case stream.FrameDone:
		s.state = StateCompleted
		s.finishedAt = time.Now()
		s.mu.Unlock()
		s.guard.DisarmAll()
		s.mu.Lock()
	case stream.FrameError:
		var data stream.ErrorData
		_ = stream.DecodeData(frame, &data)
		msg := data.Message
		if msg == "" {
			msg = "backend reported an error"
		}
		s.state = StateErrored
		s.err = apperrors.Wrap(apperrors.ErrServerReported, "Session", msg)
		s.finishedAt = time.Now()
		s.mu.Unlock()
		s.guard.DisarmAll()
		s.mu.Lock()
	}
	s.mu.Unlock()

	if handlers != nil {
		handlers.Dispatch(frame)
	}
}

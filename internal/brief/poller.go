// Package brief 监视服务端异步重算的简报集合, 轮询至收敛。
//
// 每个 tick 拉取集合并计算结构指纹; 连续 3 个 tick 无变化即认为
// 已收敛并停止。传输失败单独计数, 连续 3 次失败才放弃 (fail safe,
// 单次抖动不应中断监视)。
package brief

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/multi-agent/reasonspace/pkg/logger"
	"github.com/multi-agent/reasonspace/pkg/util"
)

// Brief 服务端维护的简报条目。
type Brief struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Summary   string    `json:"summary,omitempty"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Fingerprint 集合结构指纹: 逐条目拼接可变字段。
// 条目顺序由服务端保证稳定, 这里不再排序。
func Fingerprint(briefs []Brief) string {
	var b strings.Builder
	for _, br := range briefs {
		fmt.Fprintf(&b, "%s|%s|%s|%d;", br.ID, br.Title, br.Status, br.Version)
	}
	return b.String()
}

// FetchFunc 拉取当前简报集合。
type FetchFunc func(ctx context.Context) ([]Brief, error)

// ApplyFunc 集合发生变化时回调最新状态。
type ApplyFunc func(briefs []Brief)

// StopReason 轮询停止原因。
type StopReason string

const (
	StopConverged StopReason = "converged"
	StopFailed    StopReason = "too_many_failures"
	StopCancelled StopReason = "cancelled"
)

// Poller 收敛轮询器。计数器是轮询器字段而非游离变量,
// 生命周期随一次 Start 开始、随停止归零。
type Poller struct {
	fetch    FetchFunc
	apply    ApplyFunc
	interval time.Duration

	stableNeeded  int
	failureBudget int

	mu       sync.Mutex
	lastFP   string
	stable   int
	failures int
	running  bool
}

// Option 轮询器可选配置。
type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

func WithStableTicks(n int) Option {
	return func(p *Poller) { p.stableNeeded = n }
}

func WithFailureBudget(n int) Option {
	return func(p *Poller) { p.failureBudget = n }
}

func NewPoller(fetch FetchFunc, apply ApplyFunc, opts ...Option) *Poller {
	p := &Poller{
		fetch:         fetch,
		apply:         apply,
		interval:      3 * time.Second,
		stableNeeded:  3,
		failureBudget: 3,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Start 在后台启动轮询。initialFP 为触发操作时已知的指纹基线。
// 已在运行时为空操作。
func (p *Poller) Start(ctx context.Context, initialFP string) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.lastFP = initialFP
	p.stable = 0
	p.failures = 0
	p.mu.Unlock()

	util.SafeGo(func() {
		reason := p.Run(ctx)
		logger.Info("brief poller stopped", logger.FieldStatus, string(reason))
	})
}

// Run 阻塞式轮询主循环, 返回停止原因。Start 的后台载体, 也便于测试直接驱动。
func (p *Poller) Run(ctx context.Context) StopReason {
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return StopCancelled
		case <-ticker.C:
			if stop, reason := p.tick(ctx); stop {
				return reason
			}
		}
	}
}

// tick 单次轮询。返回是否停止及原因。
func (p *Poller) tick(ctx context.Context) (bool, StopReason) {
	briefs, err := p.fetch(ctx)
	if err != nil {
		p.mu.Lock()
		p.failures++
		failures := p.failures
		budget := p.failureBudget
		p.mu.Unlock()

		logger.Warn("brief poll fetch failed",
			logger.FieldError, err,
			logger.FieldCount, failures,
		)
		return failures >= budget, StopFailed
	}

	fp := Fingerprint(briefs)

	p.mu.Lock()
	p.failures = 0
	if fp == p.lastFP {
		p.stable++
		stable := p.stable
		needed := p.stableNeeded
		p.mu.Unlock()
		return stable >= needed, StopConverged
	}
	p.lastFP = fp
	p.stable = 0
	p.mu.Unlock()

	if p.apply != nil {
		p.apply(briefs)
	}
	return false, ""
}

// StableTicks 当前连续无变化 tick 数 (观测用)。
func (p *Poller) StableTicks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stable
}

// Running 轮询是否仍在进行。
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Package companion 计算伴随面板各区块的展示排序。
//
// 排序是纯函数: 相同输入给出相同顺序, 无副作用, 可在每次状态
// 变更时整体重算。并列分数按区块声明顺序稳定排序, 无随机性。
package companion

import (
	"sort"
	"time"
)

// Section 面板区块。
type Section string

const (
	SectionNarration   Section = "narration"
	SectionActionHints Section = "action_hints"
	SectionStatus      Section = "status"
	SectionReceipts    Section = "session_receipts"
	SectionCaseState   Section = "case_state"
)

// sectionOrder 声明顺序, 同分时的决胜序。
var sectionOrder = []Section{
	SectionNarration,
	SectionActionHints,
	SectionStatus,
	SectionReceipts,
	SectionCaseState,
}

// Mode 交互模式。
type Mode string

const (
	ModeCasual  Mode = "casual"
	ModeCase    Mode = "case"
	ModeInquiry Mode = "inquiry"
	ModeReview  Mode = "review"
)

// 加分项。分值只做相对比较, 绝对大小无含义。
const (
	streamingBonus        = 40.0
	recentBonus           = 25.0
	pinnedBonus           = 30.0
	modeBonus             = 20.0
	baselinePresenceBonus = 10.0
	staleDecay            = -15.0
)

const (
	// DefaultRecentWindow 视为"刚更新过"的窗口。
	DefaultRecentWindow = 5 * time.Second
	// DefaultStaleWindow 超过即陈旧衰减的窗口。
	DefaultStaleWindow = 60 * time.Second
)

// RankInput 排序输入快照。Now 显式传入, 保持纯函数可测。
type RankInput struct {
	NarrationText      string
	NarrationStreaming bool
	HintCount          int
	StatusText         string
	ReceiptCount       int
	HasCaseState       bool

	Mode          Mode
	PinnedSection Section
	LastUpdated   map[Section]time.Time
	Now           time.Time

	// 零值时取 Default*Window。
	RecentWindow time.Duration
	StaleWindow  time.Duration
}

// RankedSection 排序结果项。
type RankedSection struct {
	Section Section `json:"section"`
	Score   float64 `json:"score"`
}

// hasContent 各区块的空判定。空区块整体排除, 不参与打分。
func (in RankInput) hasContent(s Section) bool {
	switch s {
	case SectionNarration:
		return in.NarrationText != "" || in.NarrationStreaming
	case SectionActionHints:
		return in.HintCount > 0
	case SectionStatus:
		return in.StatusText != ""
	case SectionReceipts:
		return in.ReceiptCount > 0
	case SectionCaseState:
		return in.HasCaseState
	}
	return false
}

func (in RankInput) score(s Section) float64 {
	score := baselinePresenceBonus

	if s == SectionNarration && in.NarrationStreaming {
		score += streamingBonus
	}
	if s == in.PinnedSection {
		score += pinnedBonus
	}

	// 模式相关性: 案件态在 case/inquiry 模式下满额,
	// 状态区在任何非闲聊模式下半额。
	switch s {
	case SectionCaseState:
		if in.Mode == ModeCase || in.Mode == ModeInquiry {
			score += modeBonus
		}
	case SectionStatus:
		if in.Mode != ModeCasual && in.Mode != "" {
			score += modeBonus / 2
		}
	}

	recent := in.RecentWindow
	if recent <= 0 {
		recent = DefaultRecentWindow
	}
	stale := in.StaleWindow
	if stale <= 0 {
		stale = DefaultStaleWindow
	}
	if ts, ok := in.LastUpdated[s]; ok && !ts.IsZero() {
		age := in.Now.Sub(ts)
		if age <= recent {
			score += recentBonus
		} else if age > stale {
			score += staleDecay
		}
	}
	return score
}

// Rank 计算当前快照下的区块展示顺序 (降序)。
func Rank(in RankInput) []RankedSection {
	var out []RankedSection
	for _, s := range sectionOrder {
		if !in.hasContent(s) {
			continue
		}
		out = append(out, RankedSection{Section: s, Score: in.score(s)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

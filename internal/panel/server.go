// Package panel 提供伴随面板 HTTP/SSE 服务。
//
// 面板是工作区状态的只读投影加少量操作入口: 时间线、卡片、
// 区块排序快照走 REST, 增量变更走 SSE。
package panel

import (
	"github.com/gin-gonic/gin"

	"github.com/multi-agent/reasonspace/internal/brief"
	"github.com/multi-agent/reasonspace/internal/config"
	"github.com/multi-agent/reasonspace/internal/store"
	"github.com/multi-agent/reasonspace/internal/workspace"
)

// Server 面板 HTTP 服务。
type Server struct {
	router *gin.Engine
	cfg    *config.Config
	hub    *workspace.Hub
	bus    *EventBus

	// 可为 nil (纯内存运行时面板仍可用, 相关路由返回 404)。
	messages *store.MessageStore
	threads  *store.ThreadStore
	briefs   *store.BriefStore

	poller *brief.Poller
}

// NewServer 创建面板服务。bus 先于 hub 创建, 供 hub 作为 Notifier 注入。
func NewServer(cfg *config.Config, hub *workspace.Hub, bus *EventBus, messages *store.MessageStore, threads *store.ThreadStore, briefs *store.BriefStore) *Server {
	r := gin.Default()
	s := &Server{
		router:   r,
		cfg:      cfg,
		hub:      hub,
		bus:      bus,
		messages: messages,
		threads:  threads,
		briefs:   briefs,
	}
	if briefs != nil {
		s.poller = brief.NewPoller(briefs.List, s.publishBriefs,
			brief.WithInterval(cfg.BriefPollInterval()),
			brief.WithStableTicks(cfg.BriefPollStableTicks),
			brief.WithFailureBudget(cfg.BriefPollMaxFailures),
		)
	}
	s.registerRoutes()
	return s
}

// Engine 返回 Gin 引擎。
func (s *Server) Engine() *gin.Engine { return s.router }

// Bus 返回事件总线。
func (s *Server) Bus() *EventBus { return s.bus }

func (s *Server) publishBriefs(briefs []brief.Brief) {
	s.bus.Publish("briefs", briefs)
}

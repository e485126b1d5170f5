// handler.go — 面板 REST API handlers。
package panel

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/multi-agent/reasonspace/internal/brief"
	"github.com/multi-agent/reasonspace/internal/companion"
	"github.com/multi-agent/reasonspace/internal/stream"
)

// registerRoutes 注册 API 路由。
func (s *Server) registerRoutes() {
	api := s.router.Group("/api")

	api.GET("/threads", s.listThreads)
	api.POST("/threads/:id/open", s.openThread)
	api.POST("/threads/:id/send", s.sendMessage)
	api.POST("/threads/:id/stop", s.stopSession)
	api.POST("/threads/:id/retry", s.retrySession)
	api.GET("/threads/:id/timeline", s.threadTimeline)
	api.GET("/threads/:id/cards", s.threadCards)
	api.POST("/threads/:id/cards/:cardId/dismiss", s.dismissCard)
	api.GET("/threads/:id/sections", s.threadSections)
	api.POST("/threads/:id/pin", s.pinSection)
	api.GET("/threads/:id/receipts", s.threadReceipts)
	api.GET("/threads/:id/diagnostics", s.threadDiagnostics)

	api.GET("/messages/search", s.searchMessages)

	api.GET("/briefs", s.listBriefs)
	api.POST("/briefs/watch", s.watchBriefs)
	api.GET("/briefs/watch", s.briefWatchStatus)

	api.GET("/events", s.sseHandler)
}

func queryLimit(c *gin.Context, def int) int {
	v, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if v < 1 {
		return def
	}
	if v > 2000 {
		return 2000
	}
	return v
}

// ========================================
// Threads / 会话操作
// ========================================

func (s *Server) listThreads(c *gin.Context) {
	if s.threads == nil {
		notFound(c, "thread store not configured")
		return
	}
	items, err := s.threads.List(c.Request.Context(), queryLimit(c, 50))
	if err != nil {
		serverError(c, err)
		return
	}
	success(c, items)
}

func (s *Server) openThread(c *gin.Context) {
	var req struct {
		Mode string `json:"mode"`
	}
	_ = c.ShouldBindJSON(&req)
	if err := s.hub.OpenThread(c.Request.Context(), c.Param("id"), companion.Mode(req.Mode)); err != nil {
		failWith(c, err)
		return
	}
	success(c, gin.H{"threadId": c.Param("id")})
}

func (s *Server) sendMessage(c *gin.Context) {
	var req struct {
		Content string              `json:"content"`
		Context *stream.SendContext `json:"context,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" {
		badRequest(c, "invalid_input", "content is required")
		return
	}
	// 会话生命周期超出本次请求, 不绑定请求 ctx。
	sessionID, err := s.hub.Send(context.Background(), c.Param("id"), req.Content, req.Context)
	if err != nil {
		failWith(c, err)
		return
	}
	success(c, gin.H{"sessionId": sessionID})
}

func (s *Server) stopSession(c *gin.Context) {
	s.hub.Stop(c.Param("id"))
	success(c, gin.H{"stopped": true})
}

func (s *Server) retrySession(c *gin.Context) {
	sessionID, err := s.hub.Retry(context.Background(), c.Param("id"))
	if err != nil {
		failWith(c, err)
		return
	}
	success(c, gin.H{"sessionId": sessionID})
}

func (s *Server) threadTimeline(c *gin.Context) {
	success(c, s.hub.Timeline().Messages(c.Param("id")))
}

func (s *Server) threadCards(c *gin.Context) {
	success(c, s.hub.Cards(c.Param("id")))
}

func (s *Server) dismissCard(c *gin.Context) {
	if !s.hub.DismissCard(c.Param("id"), c.Param("cardId")) {
		notFound(c, "card not found")
		return
	}
	success(c, gin.H{"dismissed": c.Param("cardId")})
}

func (s *Server) threadSections(c *gin.Context) {
	success(c, s.hub.Rank(c.Param("id")))
}

func (s *Server) pinSection(c *gin.Context) {
	var req struct {
		Section string `json:"section"`
	}
	_ = c.ShouldBindJSON(&req)
	s.hub.PinSection(c.Param("id"), companion.Section(req.Section))
	success(c, gin.H{"pinned": req.Section})
}

func (s *Server) threadReceipts(c *gin.Context) {
	success(c, s.hub.Receipts(c.Param("id")))
}

func (s *Server) threadDiagnostics(c *gin.Context) {
	success(c, s.hub.Diagnostics(c.Param("id")))
}

// ========================================
// Messages
// ========================================

func (s *Server) searchMessages(c *gin.Context) {
	if s.messages == nil {
		notFound(c, "message store not configured")
		return
	}
	items, err := s.messages.Search(c.Request.Context(),
		c.Query("thread_id"), c.Query("keyword"), queryLimit(c, 100))
	if err != nil {
		serverError(c, err)
		return
	}
	success(c, items)
}

// ========================================
// Briefs
// ========================================

func (s *Server) listBriefs(c *gin.Context) {
	if s.briefs == nil {
		notFound(c, "brief store not configured")
		return
	}
	items, err := s.briefs.List(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	success(c, items)
}

// watchBriefs 启动收敛轮询 (已在运行时为空操作)。
// 触发方通常刚提交了会引起服务端异步重算的操作。
func (s *Server) watchBriefs(c *gin.Context) {
	if s.briefs == nil || s.poller == nil {
		notFound(c, "brief store not configured")
		return
	}
	items, err := s.briefs.List(c.Request.Context())
	if err != nil {
		serverError(c, err)
		return
	}
	s.poller.Start(context.Background(), brief.Fingerprint(items))
	success(c, gin.H{"watching": true, "items": len(items)})
}

func (s *Server) briefWatchStatus(c *gin.Context) {
	if s.poller == nil {
		notFound(c, "brief store not configured")
		return
	}
	success(c, gin.H{
		"running":     s.poller.Running(),
		"stableTicks": s.poller.StableTicks(),
	})
}

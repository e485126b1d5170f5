// client.go — WebSocket 帧流客户端: 连接、写请求、读循环。
package stream

import (
	"context"
	"net"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/multi-agent/reasonspace/pkg/errors"
	"github.com/multi-agent/reasonspace/pkg/logger"
	"github.com/multi-agent/reasonspace/pkg/util"
)

const (
	dialTimeout     = 5 * time.Second
	readIdleTimeout = 90 * time.Second
	pingInterval    = 30 * time.Second
	writeTimeout    = 10 * time.Second
)

// FrameHandler 按到达顺序同步接收每一帧。
type FrameHandler func(Frame)

// Streamer 出站 send 调用的抽象 (session 层依赖此接口, 测试可替换)。
type Streamer interface {
	// Stream 打开流并阻塞读取, 每帧同步回调 handler, 终止帧之后返回。
	// ctx 取消时尽快拆连接并返回 ctx 错误; 取消后到达的帧不再回调。
	Stream(ctx context.Context, req SendRequest, handler FrameHandler) error
}

// Client 连接推理后端的 WebSocket 客户端。
type Client struct {
	// URL 形如 ws://host:port/stream。
	URL string
}

// NewClient 创建客户端。
func NewClient(url string) *Client { return &Client{URL: url} }

// Stream 实现 Streamer。
func (c *Client) Stream(ctx context.Context, req SendRequest, handler FrameHandler) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrTransport, "StreamClient.Stream", err.Error())
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return apperrors.Wrap(apperrors.ErrTransport, "StreamClient.Stream", "write send request")
	}

	// ctx 取消 → 关闭连接解除 ReadJSON 阻塞。
	watchDone := make(chan struct{})
	defer close(watchDone)
	util.SafeGo(func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-watchDone:
		}
	})
	util.SafeGo(func() { c.pingLoop(ctx, conn, watchDone) })

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return apperrors.Wrap(apperrors.ErrTransport, "StreamClient.Stream", "read frame")
		}
		if ctx.Err() != nil {
			// 取消与在途帧竞争: 已取消则静默丢弃。
			logger.Debug("stream: frame after cancel dropped",
				logger.FieldThreadID, req.ThreadID,
				logger.FieldFrameType, frame.Type,
			)
			return ctx.Err()
		}
		handler(frame)
		if IsTerminal(frame.Type) {
			return nil
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: dialTimeout,
		NetDialContext:   (&net.Dialer{Timeout: dialTimeout}).DialContext,
	}
	conn, _, err := dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return nil, err
	}
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
		return nil
	})
	return conn, nil
}

// pingLoop 周期性发 ping 保活, 连接关闭或 ctx 取消时退出。
func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-ctx.Done():
			return
		case <-done:
			return
		}
	}
}

package http

import (
	"net/http"
	"time"

	liveService "anoa.com/clubportal/internal/modules/live/service"
	"anoa.com/clubportal/pkg/logger"
	"anoa.com/clubportal/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

type LiveHandler struct {
	sync     liveService.Synchronizer
	upgrader websocket.Upgrader
}

func NewLiveHandler(sync liveService.Synchronizer, allowedOrigins []string) *LiveHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &LiveHandler{
		sync: sync,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Snapshot returns every topic the caller may see in one response.
func (h *LiveHandler) Snapshot(c *gin.Context) {
	uid, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.OK(c, liveService.Frames(h.sync.Current(), uid, nil))
}

// HandleWebSocket streams a frame per topic on connect and one more every
// time a visible topic is republished.
func (h *LiveHandler) HandleWebSocket(c *gin.Context) {
	uid, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("live: failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	// subscribe before reading Current so nothing published in between is missed
	updates, unsubscribe := h.sync.Subscribe()
	defer unsubscribe()

	sent := make(map[liveService.Topic]uint64)
	if err := writeFrames(conn, liveService.Frames(h.sync.Current(), uid, sent)); err != nil {
		logger.Warn("live: initial write to %s: %v", uid, err)
		return
	}

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := writeFrames(conn, liveService.Frames(update.View, uid, sent)); err != nil {
				logger.Warn("live: write to %s: %v", uid, err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-clientClosed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func writeFrames[T any](conn *websocket.Conn, frames []T) error {
	for _, frame := range frames {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			return err
		}
	}
	return nil
}

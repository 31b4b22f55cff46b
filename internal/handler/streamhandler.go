package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"

	"cointrack/internal/svc"
	"cointrack/pkg/engine"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxClientFrame = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// streamMessage is pushed to the client for every engine change.
type streamMessage struct {
	Type engine.Change `json:"type"`
	Data any           `json:"data"`
	At   time.Time     `json:"at"`
}

// clientMessage is what the presentation layer may send back.
type clientMessage struct {
	Visible *bool `json:"visible,omitempty"`
	Refresh bool  `json:"refresh,omitempty"`
}

// StreamHandler upgrades to a websocket that pushes engine state changes and
// accepts visibility and refresh commands.
func StreamHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.WithContext(r.Context()).Errorf("stream: upgrade err=%v", err)
			return
		}
		s := &stream{conn: conn, engine: svcCtx.Engine}
		s.run(r.Context())
	}
}

type stream struct {
	conn   *websocket.Conn
	engine *engine.Engine
}

func (s *stream) run(ctx context.Context) {
	defer s.conn.Close()
	changes, cancel := s.engine.Subscribe()
	defer cancel()

	done := make(chan struct{})
	threading.GoSafe(func() {
		defer close(done)
		s.readLoop(ctx)
	})

	for _, c := range []engine.Change{engine.ChangeStatus, engine.ChangeListing} {
		if err := s.send(c); err != nil {
			return
		}
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case c, ok := <-changes:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "engine closed")
				_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				return
			}
			if err := s.send(c); err != nil {
				logx.WithContext(ctx).Infof("stream: write err=%v", err)
				return
			}
		case <-ping.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *stream) readLoop(ctx context.Context) {
	s.conn.SetReadLimit(maxClientFrame)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg clientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		if msg.Visible != nil {
			s.engine.SetVisible(*msg.Visible)
		}
		if msg.Refresh {
			if _, err := s.engine.RequestRefresh(context.WithoutCancel(ctx), false); err != nil {
				logx.WithContext(ctx).Errorf("stream: refresh err=%v", err)
			}
		}
	}
}

func (s *stream) send(c engine.Change) error {
	msg := streamMessage{Type: c, Data: s.payload(c), At: time.Now().UTC()}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(msg)
}

func (s *stream) payload(c engine.Change) any {
	switch c {
	case engine.ChangeAssets, engine.ChangeListing:
		return s.engine.Listing()
	case engine.ChangePortfolio:
		return s.engine.Portfolio()
	case engine.ChangeFavorites:
		return s.engine.Favorites()
	default:
		return s.engine.Status()
	}
}

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/matzehuels/linlog/pkg/engine"
)

const (
	streamBuffer = 8
	writeWait    = 10 * time.Second
	pingPeriod   = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream upgrades to a websocket and sends one JSON frame per
// relayout of the session, starting with the current layout if there is
// one. Listeners run under the session lock, so frames are handed over
// through a buffered channel; when the client falls behind the oldest
// pending frame is dropped. The stream ends when the client goes away or
// the session is closed.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	frames := make(chan snapshotResponse, streamBuffer)
	push := func(snap engine.Snapshot) {
		f := newSnapshotResponse(snap)
		select {
		case frames <- f:
			return
		default:
		}
		select {
		case <-frames:
		default:
		}
		select {
		case frames <- f:
		default:
		}
	}

	var (
		cancel  func()
		initial engine.Snapshot
	)
	err = sess.Do(func(e *engine.Engine) error {
		cancel = e.OnLayout(push)
		initial = e.Snapshot()
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer func() {
		_ = sess.Do(func(*engine.Engine) error {
			cancel()
			return nil
		})
	}()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(f snapshotResponse) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(f); err != nil {
			s.logger.Debug("stream write failed", "session", sess.ID, "err", err)
			return false
		}
		return true
	}

	if initial.Seq > 0 && !send(newSnapshotResponse(initial)) {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case f := <-frames:
			if !send(f) {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-sess.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

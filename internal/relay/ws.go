package relay

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"

	"github.com/ShayCichocki/swarmville/internal/bus"
)

// MsgLagged is the envelope type sent when events were dropped for a client.
const MsgLagged = "lagged"

type wsEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type laggedNotice struct {
	Dropped uint64 `json:"dropped"`
}

// handleEvents streams every bus event published after the connection is
// accepted. Client frames are ignored.
func (srv *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !srv.trackStream() {
		srv.writeError(w, http.StatusServiceUnavailable, "relay is shutting down")
		return
	}
	defer srv.streams.Done()

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer ws.CloseNow()

	sub := srv.bus.Subscribe()
	defer sub.Close()

	// CloseRead discards client frames and cancels ctx when the peer goes away.
	ctx := ws.CloseRead(r.Context())
	srv.log.Debug("client %s connected", r.RemoteAddr)

	var reported uint64
	for {
		select {
		case <-srv.stop.Done():
			ws.Close(websocket.StatusGoingAway, "relay shutting down")
			return
		case <-ctx.Done():
			srv.log.Debug("client %s disconnected", r.RemoteAddr)
			return
		case ev, ok := <-sub.C():
			if !ok {
				ws.Close(websocket.StatusGoingAway, "bus closed")
				return
			}
			if lagged := sub.Lagged(); lagged > reported {
				if err := srv.send(ctx, ws, wsEnvelope{Type: MsgLagged, Data: laggedNotice{Dropped: lagged - reported}}); err != nil {
					return
				}
				reported = lagged
			}
			if err := srv.send(ctx, ws, toEnvelope(ev)); err != nil {
				return
			}
		}
	}
}

func toEnvelope(ev bus.Event) wsEnvelope {
	return wsEnvelope{Type: string(ev.Type), Data: ev}
}

func (srv *Server) send(ctx context.Context, ws *websocket.Conn, msg wsEnvelope) error {
	data, err := json.Marshal(msg)
	if err != nil {
		srv.log.Warn("encode %s: %v", msg.Type, err)
		return nil
	}
	writeCtx, cancel := context.WithTimeout(ctx, srv.writeTimeout)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}

package controllers

import (
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// LiveItems handles GET /items/live. Every snapshot of the item set is
// pushed as a JSON array until the client goes away.
func (s *Server) LiveItems(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		s.Log.Warn("ws.accept", zap.Error(err))
		return
	}

	// Nothing is read from the client; CloseRead cancels ctx on disconnect.
	ctx := conn.CloseRead(r.Context())

	sub, err := s.Items.ListItems(ctx)
	if err != nil {
		s.Log.Error("ws.subscribe", zap.Error(err))
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer sub.Stop()

	for items := range sub.C {
		if err := wsjson.Write(ctx, conn, items); err != nil {
			s.Log.Debug("ws.write", zap.Error(err))
			return
		}
	}
	if err := sub.Err(); err != nil {
		s.Log.Warn("ws.feed.ended", zap.Error(err))
		_ = conn.Close(websocket.StatusInternalError, "feed ended")
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

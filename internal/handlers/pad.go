package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/xelth-com/eckreport/internal/logger"
	"github.com/xelth-com/eckreport/internal/websocket"
)

// padSocket streams signature pad strokes into the session's buffer
func (r *Router) padSocket(w http.ResponseWriter, req *http.Request) {
	sess, ok := r.sessionOf(w, req)
	if !ok {
		return
	}

	log := logger.FromContext(req.Context(), r.logger).With(zap.String("session", sess.ID))
	if err := websocket.ServePad(w, req, sess.Pad, log); err != nil {
		log.Warn("⚠️ Pad socket upgrade failed", zap.Error(err))
	}
}

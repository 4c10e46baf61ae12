package api

import (
	"net/http"

	"go.uber.org/zap"

	"institution-chat/internal/realtime"
)

// @Summary Open the caller's push channel
// @Description Upgrades to a websocket that receives a "new-reply" event for
// @Description every reply addressed to the caller. Browsers pass the token
// @Description as the "token" query parameter.
// @Tags Realtime
// @Security ApiKeyAuth
// @Param token query string false "JWT when headers cannot be set"
// @Success 101
// @Router /ws [get]
func (a *API) ServeWS(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	ws, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Log.Warn("websocket upgrade failed", zap.Int64("user_id", id.ID), zap.Error(err))
		return
	}

	conn := realtime.NewConnection(id.ID, ws)
	a.Hub.Attach(conn)
	a.Log.Info("websocket connected", zap.Int64("user_id", id.ID), zap.String("connection_id", conn.ID))

	conn.ReadLoop()
	a.Hub.Detach(conn)
	a.Log.Info("websocket disconnected", zap.Int64("user_id", id.ID), zap.String("connection_id", conn.ID))
}

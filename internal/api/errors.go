package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"institution-chat/internal/chat"
)

type errorBody struct {
	Error string `json:"error"`
	Msg   string `json:"msg"`
}

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{chat.ErrNotFound, http.StatusNotFound, "not_found"},
	{chat.ErrForbidden, http.StatusForbidden, "forbidden"},
	{chat.ErrSelfConversation, http.StatusUnprocessableEntity, "self_conversation"},
	{chat.ErrConflict, http.StatusConflict, "conflict"},
	{chat.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{chat.ErrTimeout, http.StatusGatewayTimeout, "timeout"},
}

func classify(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.Log.Error("request error", zap.String("path", r.URL.Path), zap.Error(err))
		msg = "internal server error"
	}
	writeJSON(w, status, errorBody{Error: code, Msg: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_input", Msg: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

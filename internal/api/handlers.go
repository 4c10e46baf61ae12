package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"institution-chat/internal/auth"
	"institution-chat/internal/model"
	"institution-chat/internal/pagination"
)

type CreateConversationRequest struct {
	UserTwo int64 `json:"user_two" example:"42"`
}

type PostReplyRequest struct {
	ConversationID int64  `json:"conv_id" example:"7"`
	Reply          string `json:"reply" example:"hello"`
}

type SearchUsersRequest struct {
	NameLike string `json:"name_like" example:"ann"`
}

type InboxPage = pagination.Envelope[model.InboxEntry]

type RepliesPage = pagination.Envelope[model.ReplyView]

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "bad request body")
		return false
	}
	return true
}

// pageParams reads the optional page and per_page query parameters. Absent
// values stay nil; present but non-numeric values are rejected.
func pageParams(r *http.Request) (page, perPage *int, ok bool) {
	q := r.URL.Query()
	parse := func(name string) (*int, bool) {
		raw := q.Get(name)
		if raw == "" {
			return nil, true
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, false
		}
		return &n, true
	}
	if page, ok = parse("page"); !ok {
		return nil, nil, false
	}
	if perPage, ok = parse("per_page"); !ok {
		return nil, nil, false
	}
	return page, perPage, true
}

func caller(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.GetIdentity(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

// @Summary Liveness probe
// @Tags System
// @Success 200 {object} map[string]string
// @Failure 503 {object} errorBody
// @Router /healthz [get]
func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	if a.Health != nil {
		ctx, cancel := a.readContext(r)
		defer cancel()
		if err := a.Health.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "unavailable", Msg: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// @Summary Start or fetch a conversation with another user
// @Tags Conversations
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body CreateConversationRequest true "Counterparty"
// @Success 200 {object} model.ConversationView "existing conversation"
// @Success 201 {object} model.ConversationView "new conversation"
// @Failure 400 {object} errorBody
// @Failure 404 {object} errorBody
// @Failure 422 {object} errorBody
// @Router /conversations [post]
func (a *API) CreateConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var body CreateConversationRequest
	if !decode(w, r, &body) {
		return
	}

	view, err := a.Chat.CreateConversation(r.Context(), id, body.UserTwo)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if view.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, view)
}

// @Summary List the caller's conversations, most recent first
// @Tags Conversations
// @Security ApiKeyAuth
// @Produce json
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {object} InboxPage
// @Failure 400 {object} errorBody
// @Failure 504 {object} errorBody
// @Router /conversations [get]
func (a *API) ListConversations(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	page, perPage, ok := pageParams(r)
	if !ok {
		badRequest(w, "page and per_page must be integers")
		return
	}

	ctx, cancel := a.readContext(r)
	defer cancel()
	inbox, err := a.Chat.ListInbox(ctx, id, page, perPage)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inbox)
}

// @Summary Post a reply to a conversation
// @Tags Conversations
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body PostReplyRequest true "Reply"
// @Success 201 {object} model.ReplyView
// @Failure 400 {object} errorBody
// @Failure 403 {object} errorBody
// @Failure 404 {object} errorBody
// @Router /conversations/replies [post]
func (a *API) PostReply(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var body PostReplyRequest
	if !decode(w, r, &body) {
		return
	}

	reply, err := a.Chat.PostReply(r.Context(), id, body.ConversationID, body.Reply)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}

// @Summary List the replies of a conversation, newest first
// @Tags Conversations
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "Conversation id"
// @Param page query int false "Page number"
// @Param per_page query int false "Page size"
// @Success 200 {object} RepliesPage
// @Failure 403 {object} errorBody
// @Failure 404 {object} errorBody
// @Failure 504 {object} errorBody
// @Router /conversations/{id}/replies [get]
func (a *API) ListReplies(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	convID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || convID <= 0 {
		badRequest(w, "invalid conversation id")
		return
	}
	page, perPage, ok := pageParams(r)
	if !ok {
		badRequest(w, "page and per_page must be integers")
		return
	}

	ctx, cancel := a.readContext(r)
	defer cancel()
	replies, err := a.Chat.ListReplies(ctx, id, convID, page, perPage)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, replies)
}

// @Summary Search users of the caller's institution by name prefix
// @Tags Users
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body SearchUsersRequest true "Name prefix"
// @Success 200 {array} model.UserSummary
// @Failure 400 {object} errorBody
// @Router /users/search [post]
func (a *API) SearchUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var body SearchUsersRequest
	if !decode(w, r, &body) {
		return
	}

	ctx, cancel := a.readContext(r)
	defer cancel()
	users, err := a.Chat.SearchUsers(ctx, id, body.NameLike)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/comment-platform/internal/platform/api"
	"github.com/example/comment-platform/internal/platform/auth"
	"github.com/example/comment-platform/internal/platform/httpserver"
	"github.com/example/comment-platform/services/comments/internal/service"
	"github.com/example/comment-platform/services/comments/internal/store"
	"github.com/example/comment-platform/services/comments/internal/target"
)

type postCommentRequest struct {
	Message  string `json:"message"`
	FileList string `json:"file_list,omitempty"`
	Limited  bool   `json:"limited"`
}

type editCommentRequest struct {
	Message string `json:"message"`
}

func targetParams(r *http.Request) (string, int64, bool) {
	typeName := strings.TrimSpace(chi.URLParam(r, "target_type"))
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "target_id")), 10, 64)
	if typeName == "" || err != nil || id <= 0 {
		return "", 0, false
	}
	return typeName, id, true
}

func commentIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "comment_id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func boolQuery(r *http.Request, name string) bool {
	v := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name)))
	return v == "1" || v == "true"
}

func intQuery(r *http.Request, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(name)))
	if err != nil {
		return 0
	}
	return n
}

// writeServiceError maps core error kinds onto the HTTP envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	rid := httpserver.RequestIDFromContext(r.Context())
	switch {
	case errors.Is(err, target.ErrInvalidTarget):
		api.BadRequest(w, "INVALID_TARGET", "invalid target descriptor", rid, nil)
	case errors.Is(err, target.ErrNotFound):
		api.NotFound(w, "TARGET_NOT_FOUND", "target not found", rid)
	case errors.Is(err, store.ErrNotFound):
		api.NotFound(w, "COMMENT_NOT_FOUND", "comment not found", rid)
	case errors.Is(err, target.ErrAccessDenied), errors.Is(err, service.ErrAccessDenied):
		api.Forbidden(w, "ACCESS_DENIED", "access denied", rid)
	case errors.Is(err, store.ErrEmptyMessage):
		api.BadRequest(w, "EMPTY_MESSAGE", "message must not be empty", rid, nil)
	default:
		api.Internal(w, rid)
	}
}

// ShowComments handles GET /v1/comments/{target_type}/{target_id}
func ShowComments(svc *service.Service, reg *target.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeName, targetID, ok := targetParams(r)
		if !ok {
			api.BadRequest(w, "INVALID_TARGET", "invalid target descriptor", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}
		userID := auth.UserIDFromContext(r.Context())

		res, err := svc.Show(r.Context(), target.NewResolver(reg), typeName, targetID, userID,
			boolQuery(r, "limited"), intQuery(r, "count"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, res)
	}
}

// PostComment handles POST /v1/comments/{target_type}/{target_id}
func PostComment(svc *service.Service, reg *target.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserIDFromContext(r.Context())
		if userID == auth.AnonymousUserID {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", httpserver.RequestIDFromContext(r.Context()))
			return
		}

		typeName, targetID, ok := targetParams(r)
		if !ok {
			api.BadRequest(w, "INVALID_TARGET", "invalid target descriptor", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		var req postCommentRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		res, err := svc.Post(r.Context(), target.NewResolver(reg), typeName, targetID, userID,
			req.Message, req.FileList, req.Limited)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, res)
	}
}

// EditComment handles PUT /v1/comments/{comment_id}
func EditComment(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserIDFromContext(r.Context())
		if userID == auth.AnonymousUserID {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", httpserver.RequestIDFromContext(r.Context()))
			return
		}

		commentID, ok := commentIDParam(r)
		if !ok {
			api.BadRequest(w, "INVALID_ID", "comment_id must be a positive integer", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		var req editCommentRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		updated, err := svc.Edit(r.Context(), commentID, userID, req.Message)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, updated)
	}
}

// DeleteComment handles DELETE /v1/comments/{target_type}/{target_id}/{comment_id}
func DeleteComment(svc *service.Service, reg *target.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserIDFromContext(r.Context())
		if userID == auth.AnonymousUserID {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", httpserver.RequestIDFromContext(r.Context()))
			return
		}

		typeName, targetID, ok := targetParams(r)
		if !ok {
			api.BadRequest(w, "INVALID_TARGET", "invalid target descriptor", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}
		commentID, ok := commentIDParam(r)
		if !ok {
			api.BadRequest(w, "INVALID_ID", "comment_id must be a positive integer", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}

		res, err := svc.Delete(r.Context(), target.NewResolver(reg), typeName, targetID, commentID, userID,
			boolQuery(r, "limited"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, res)
	}
}

// CountComments handles GET /v1/comments/{target_type}/{target_id}/count
func CountComments(svc *service.Service, reg *target.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeName, targetID, ok := targetParams(r)
		if !ok {
			api.BadRequest(w, "INVALID_TARGET", "invalid target descriptor", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}
		userID := auth.UserIDFromContext(r.Context())

		n, err := svc.Count(r.Context(), target.NewResolver(reg), typeName, targetID, userID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, n)
	}
}

// CommentsSince handles GET /v1/comments/{target_type}/{target_id}/since?after=<id>
func CommentsSince(svc *service.Service, reg *target.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeName, targetID, ok := targetParams(r)
		if !ok {
			api.BadRequest(w, "INVALID_TARGET", "invalid target descriptor", httpserver.RequestIDFromContext(r.Context()), nil)
			return
		}
		userID := auth.UserIDFromContext(r.Context())
		afterID := int64(intQuery(r, "after"))

		comments, err := svc.ListSince(r.Context(), target.NewResolver(reg), typeName, targetID, userID,
			afterID, intQuery(r, "limit"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		// Keyed by comment id so clients can merge increments in place.
		out := make(map[int64]store.Comment, len(comments))
		for _, c := range comments {
			out[c.ID] = c
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

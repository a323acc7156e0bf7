// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Package handlers holds the gin handlers of the soil assistant API.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
	"github.com/Shreyashgol/agrovers/services/assistant/questionnaire"
	"github.com/Shreyashgol/agrovers/services/assistant/session"
)

// TurnEngine is the part of questionnaire.Engine the handlers need.
type TurnEngine interface {
	Start(ctx context.Context, state datatypes.SessionState) datatypes.TurnResult
	HandleTurn(ctx context.Context, state datatypes.SessionState, in questionnaire.TurnInput) (datatypes.TurnResult, datatypes.SessionState)
}

var _ TurnEngine = (*questionnaire.Engine)(nil)

// StartSession handles POST /api/v1/session/start.
//
// # Description
//
// Creates a session in the requested language (English when omitted) and
// returns the greeting turn with the first question.
func StartSession(repo session.Repository, engine TurnEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.StartSessionRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "invalid request body")
				return
			}
		}
		if err := req.Validate(); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		lang := datatypes.LangEnglish
		if req.Language != "" {
			parsed, err := datatypes.ParseLanguage(req.Language)
			if err != nil {
				respondError(c, http.StatusBadRequest, err.Error())
				return
			}
			lang = parsed
		}

		state, err := repo.Create(c.Request.Context(), lang)
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, engine.Start(c.Request.Context(), state))
	}
}

// NextMessage handles POST /api/v1/session/next.
//
// # Description
//
// Reads the multipart form (session_id, optional user_text, optional
// audio_file) and runs one turn under the session's lock. The engine never
// fails a turn; only session lookup and transport problems produce errors.
func NextMessage(repo session.Repository, engine TurnEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.NextMessageRequest
		if err := c.ShouldBind(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid form")
			return
		}
		if err := req.Validate(); err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		audio, err := readAudio(c)
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}

		in := questionnaire.TurnInput{Text: req.UserText, Audio: audio}
		var result datatypes.TurnResult
		_, err = repo.Update(c.Request.Context(), req.SessionID, func(cur datatypes.SessionState) (datatypes.SessionState, error) {
			res, next := engine.HandleTurn(c.Request.Context(), cur, in)
			result = res
			return next, nil
		})
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// GetSession handles GET /api/v1/session/:id.
func GetSession(repo session.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := repo.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, datatypes.NewSessionView(state))
	}
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func readAudio(c *gin.Context) ([]byte, error) {
	fh, err := c.FormFile("audio_file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid audio upload")
	}
	if fh.Size > datatypes.MaxAudioBytes {
		return nil, fmt.Errorf("audio file exceeds %d bytes", datatypes.MaxAudioBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("invalid audio upload")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, datatypes.MaxAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf("invalid audio upload")
	}
	if len(data) > datatypes.MaxAudioBytes {
		return nil, fmt.Errorf("audio file exceeds %d bytes", datatypes.MaxAudioBytes)
	}
	return data, nil
}

// handleError maps repository and context errors to HTTP statuses.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		respondError(c, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrSessionExpired):
		respondError(c, http.StatusGone, "session expired")
	case errors.Is(err, datatypes.ErrInvalidLanguage):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusServiceUnavailable, "request cancelled")
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		respondError(c, http.StatusInternalServerError, "internal error")
	}
}

func respondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, datatypes.ErrorResponse{Error: msg})
}

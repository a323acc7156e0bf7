// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
	"github.com/Shreyashgol/agrovers/services/assistant/report"
	"github.com/Shreyashgol/agrovers/services/assistant/session"
	"github.com/Shreyashgol/agrovers/services/speech"
)

// AudioFiles resolves a public audio file name to a path on disk.
type AudioFiles interface {
	Path(name string) (string, error)
}

var _ AudioFiles = (*speech.FileStore)(nil)

// ServeAudio handles GET /api/v1/audio/:name.
func ServeAudio(files AudioFiles) gin.HandlerFunc {
	return func(c *gin.Context) {
		path, err := files.Path(c.Param("name"))
		if err != nil {
			if errors.Is(err, speech.ErrUnknownAudio) {
				respondError(c, http.StatusNotFound, "audio not found")
				return
			}
			handleError(c, err)
			return
		}
		c.Header("Content-Type", "audio/mpeg")
		c.File(path)
	}
}

// Reports is the part of report.Service the handlers need.
type Reports interface {
	Generate(ctx context.Context, state datatypes.SessionState) (report.Status, error)
	Status(id string) report.Status
	Download(id string) (any, error)
}

var _ Reports = (*report.Service)(nil)

type generateReportRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// GenerateReport handles POST /api/v1/reports/generate. Generation runs in
// the background; poll ReportStatus for progress.
func GenerateReport(repo session.Repository, reports Reports) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generateReportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "session_id is required")
			return
		}
		state, err := repo.Get(c.Request.Context(), req.SessionID)
		if err != nil {
			handleError(c, err)
			return
		}
		st, err := reports.Generate(c.Request.Context(), state)
		if errors.Is(err, report.ErrIncomplete) {
			respondError(c, http.StatusBadRequest, "Session not completed. Please complete all questions first.")
			return
		}
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, st)
	}
}

// ReportStatus handles GET /api/v1/reports/status/:id.
func ReportStatus(reports Reports) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, reports.Status(c.Param("id")))
	}
}

// DownloadReport handles GET /api/v1/reports/download/:id.
func DownloadReport(reports Reports) gin.HandlerFunc {
	return func(c *gin.Context) {
		rep, err := reports.Download(c.Param("id"))
		if err != nil {
			respondError(c, http.StatusNotFound, "Report not ready")
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": c.Param("id"), "report": rep})
	}
}

// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shreyashgol/agrovers/services/assistant/handlers"
	"github.com/Shreyashgol/agrovers/services/assistant/session"
)

// Dependencies are the components the route table binds to. Audio, Reports
// and Metrics are optional; their routes are omitted when nil.
type Dependencies struct {
	Sessions session.Repository
	Engine   handlers.TurnEngine
	Audio    handlers.AudioFiles
	Reports  handlers.Reports
	Metrics  http.Handler
}

// SetupRoutes registers every endpoint on router.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/health", handlers.HealthCheck)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	v1 := router.Group("/api/v1")
	{
		sessions := v1.Group("/session")
		{
			sessions.POST("/start", handlers.StartSession(deps.Sessions, deps.Engine))
			sessions.POST("/next", handlers.NextMessage(deps.Sessions, deps.Engine))
			sessions.GET("/:id", handlers.GetSession(deps.Sessions))
		}
		if deps.Audio != nil {
			v1.GET("/audio/:name", handlers.ServeAudio(deps.Audio))
		}
		if deps.Reports != nil {
			reports := v1.Group("/reports")
			{
				reports.POST("/generate", handlers.GenerateReport(deps.Sessions, deps.Reports))
				reports.GET("/status/:id", handlers.ReportStatus(deps.Reports))
				reports.GET("/download/:id", handlers.DownloadReport(deps.Reports))
			}
		}
	}
}

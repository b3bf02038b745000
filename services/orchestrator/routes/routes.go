// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/handlers"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers all orchestrator endpoints.
//
// The query service is required; SetupRoutes panics on nil because the
// server has nothing to serve without it.
func SetupRoutes(router *gin.Engine, queryService *services.DomainAgentService) {
	if queryService == nil {
		panic("routes: queryService must not be nil")
	}

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/query", handlers.HandleQuery(queryService))
	}
}

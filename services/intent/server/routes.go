// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RegisterRoutes registers the /v1/intent endpoints on rg.
//
// Endpoints:
//
//	POST /v1/intent/classify - Classify one text
//	POST /v1/intent/classify/batch - Classify many texts, order preserved
//	POST /v1/intent/dispatch - Classify and run the handler
//	GET  /v1/intent/audit/:entity - Audit trail for one well
//	GET  /v1/intent/catalog - Intent definitions and fallback rules
//	GET  /v1/intent/health - Health check
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	intent := rg.Group("/intent")
	{
		intent.POST("/classify", h.HandleClassify)
		intent.POST("/classify/batch", h.HandleClassifyBatch)
		intent.POST("/dispatch", h.HandleDispatch)
		intent.GET("/audit/:entity", h.HandleAudit)
		intent.GET("/catalog", h.HandleCatalog)
		intent.GET("/health", h.HandleHealth)
	}
}

// NewRouter builds the engine: recovery, otelgin tracing, optional request
// logging, /metrics and the /v1 routes.
func NewRouter(h *Handlers, serviceName string, debug bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	if debug {
		router.Use(gin.Logger())
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	RegisterRoutes(router.Group("/v1"), h)
	return router
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"github.com/gin-gonic/gin"
	"github.com/tejzpr/armis/internal/logger"
)

// RouterConfig carries the handlers and settings the router mounts
type RouterConfig struct {
	ContextHandler     *ContextHandler
	HealthHandler      *HealthHandler
	CORSOrigins        []string
	MaxMultipartMemory int64 // in-memory part of upload forms
	Log                *logger.Logger
}

// NewRouter builds the gin engine serving the context API
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	if cfg.MaxMultipartMemory > 0 {
		r.MaxMultipartMemory = cfg.MaxMultipartMemory
	}
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(cfg.Log))
	r.Use(CORS(cfg.CORSOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	if h := cfg.ContextHandler; h != nil {
		ctx := r.Group("/context")
		{
			ctx.GET("", h.List)
			ctx.POST("", h.Create)

			ctx.GET("/export", h.Export)
			ctx.POST("/export", h.Import)
			ctx.POST("/upload", h.Upload)
			ctx.GET("/history", h.History)

			ctx.GET("/:id", h.Get)
			ctx.PUT("/:id", h.Update)
			ctx.DELETE("/:id", h.Delete)
		}
	}

	return r
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tejzpr/armis/internal/app"
	"github.com/tejzpr/armis/internal/config"
	"github.com/tejzpr/armis/internal/logger"
)

// HTTPServer serves the context API over HTTP(S)
type HTTPServer struct {
	Engine *gin.Engine
	srv    *http.Server
	tls    config.TLSConfig
	log    *logger.Logger
}

// NewHTTPServer wires the application components into a router
func NewHTTPServer(a *app.App) *HTTPServer {
	if a.Config.Log.Mode == config.LogModeProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := NewRouter(RouterConfig{
		ContextHandler: NewContextHandler(a.Store, a.Ingester, a, UploadLimits{
			MaxFileSize:   a.Config.Ingest.MaxFileSize,
			MaxUploadSize: a.Config.Ingest.MaxUploadSize,
		}, a.Log),
		HealthHandler:      NewHealthHandler(a.Backend, a.Log),
		CORSOrigins:        a.Config.Server.CORSOrigins,
		MaxMultipartMemory: a.Config.Ingest.MaxFileSize,
		Log:                a.Log,
	})

	addr := fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port)
	return &HTTPServer{
		Engine: engine,
		srv:    &http.Server{Addr: addr, Handler: engine},
		tls:    a.Config.Server.TLS,
		log:    a.Log,
	}
}

// Addr returns the listen address
func (s *HTTPServer) Addr() string {
	return s.srv.Addr
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is
// not reported as an error.
func (s *HTTPServer) ListenAndServe() error {
	var err error
	if s.tls.Enabled {
		s.log.Info("HTTP server starting", "addr", s.srv.Addr, "tls", true)
		err = s.srv.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
	} else {
		s.log.Info("HTTP server starting", "addr", s.srv.Addr)
		err = s.srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Package server exposes the entropy and coding operations over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seiflotfy/shannon/internal/logger"
)

type Dependencies struct {
	Handler *Handler
}

func Register(r *gin.Engine, d Dependencies) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	api := r.Group("/api")
	{
		api.POST("/entropy", d.Handler.Entropy)
		api.POST("/joint", d.Handler.Joint)
		api.POST("/fetch", d.Handler.Fetch)

		code := api.Group("/code")
		{
			code.POST("", d.Handler.Code)
			code.POST("/encode", d.Handler.Encode)
			code.POST("/decode", d.Handler.Decode)
		}
	}
}

// NewRouter returns an engine with recovery and all routes registered.
func NewRouter(d Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	Register(r, d)
	return r
}

// Serve runs h on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler, log logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Infof("starting server at %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

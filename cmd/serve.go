package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/itr-cli/internal/processor"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the ITR tool operations over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		proc, closer, err := initProcessor()
		if err != nil {
			return err
		}
		defer closer()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(proc),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownGracefully(srv)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

const shutdownTimeout = 10 * time.Second

// shutdownGracefully drains in-flight requests on a fresh deadline;
// the signal context is already canceled by the time it runs.
func shutdownGracefully(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Warn("server shutdown", zap.Error(err))
	}
}

func newRouter(proc *processor.Processor) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/subsystems/{id}/itrs", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")

		breakdown, err := proc.GetITRStatus(req.Context(), id)
		var notFound *processor.NotFoundError
		if errors.As(err, &notFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error":        notFound.Error(),
				"subsystem_id": notFound.SubsystemID,
				"suggestions":  notFound.Suggestions,
			})
			return
		}
		if err != nil {
			serverError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, breakdown)
	})

	r.Get("/search/subsystems", func(w http.ResponseWriter, req *http.Request) {
		matches, err := proc.SearchSubsystems(req.Context(), req.URL.Query().Get("pattern"))
		if err != nil {
			serverError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, matches)
	})

	r.Get("/search/systems", func(w http.ResponseWriter, req *http.Request) {
		matches, err := proc.SearchSystems(req.Context(), req.URL.Query().Get("pattern"))
		if err != nil {
			serverError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, matches)
	})

	r.Post("/cache/{action}", func(w http.ResponseWriter, req *http.Request) {
		status, err := proc.ManageCache(req.Context(), chi.URLParam(req, "action"))
		if errors.Is(err, processor.ErrUnknownAction) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err != nil {
			serverError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func serverError(w http.ResponseWriter, req *http.Request, err error) {
	zap.L().Error("request failed",
		zap.String("path", req.URL.Path),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

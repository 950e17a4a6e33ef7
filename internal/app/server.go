package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ondes-hq/radio-catalog/internal/catalog"
	"github.com/ondes-hq/radio-catalog/internal/config"
	"github.com/ondes-hq/radio-catalog/internal/logger"
	"github.com/ondes-hq/radio-catalog/internal/ops"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

func notifyTimeout(cfg *config.Config) time.Duration {
	if cfg.NotifyTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(cfg.NotifyTimeoutSeconds) * time.Second
}

// serveHTTP exposes the operation table as POST /v1/ops/{name} with JSON
// argument bodies, plus GET /v1/ops listing operation names.
func serveHTTP(ctx context.Context, addr string, table *ops.Table, log logger.Logger) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/ops", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"operations": table.Names()})
	})

	mux.HandleFunc("POST /v1/ops/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")

		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "read request body failed")
			return
		}
		if len(strings.TrimSpace(string(body))) == 0 {
			body = []byte("{}")
		}

		out, err := table.Dispatch(r.Context(), name, body)
		if err != nil {
			status, msg := statusFor(err)
			log.WarnObj("operation failed", "operation_error", map[string]any{
				"operation": name,
				"status":    status,
				"error":     err.Error(),
			})
			writeError(w, status, msg)
			return
		}
		writeJSON(w, http.StatusOK, out)
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// statusFor maps the error taxonomy onto HTTP statuses. Retryable upstream
// failures map to 503 so callers know a retry is worthwhile.
func statusFor(err error) (int, string) {
	var rejected *catalog.UpstreamRejectedError
	switch {
	case errors.Is(err, ops.ErrUnknownOperation):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, ops.ErrInvalidArgs):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.As(err, &rejected):
		return http.StatusBadRequest, rejected.Error()
	case errors.Is(err, catalog.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, catalog.ErrScrapeUnavailable):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

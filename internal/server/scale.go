package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/niktheblak/helvetic/pkg/scale"
)

const maxUploadSize = 1 << 20

func uploadHandler(syncer *scale.Syncer, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.LogAttrs(r.Context(), slog.LevelDebug, "Upload request", slog.Any("headers", r.Header))
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
		if err != nil {
			logger.LogAttrs(r.Context(), slog.LevelWarn, "Failed to read upload", slog.Any("error", err))
			protocolError(w)
			return
		}
		reply, err := syncer.Sync(r.Context(), body)
		switch {
		case errors.Is(err, scale.ErrTruncatedHeader), errors.Is(err, scale.ErrTruncatedFirmwareHeader):
			protocolError(w)
			return
		case err != nil:
			logger.LogAttrs(r.Context(), slog.LevelError, "Failed to process upload", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		if _, err := w.Write(reply); err != nil {
			logger.LogAttrs(r.Context(), slog.LevelError, "Error while writing reply", slog.Any("error", err))
		}
	})
}

func protocolError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	io.WriteString(w, "ERR")
}

func registerHandler(logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.LogAttrs(r.Context(), slog.LevelInfo, "Register", slog.Any("query", r.URL.Query()))
		w.WriteHeader(http.StatusOK)
	})
}

func validateHandler(logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.LogAttrs(r.Context(), slog.LevelInfo, "Validate", slog.Any("query", r.URL.Query()))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "T")
	})
}

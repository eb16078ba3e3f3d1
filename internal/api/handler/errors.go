package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/gridarena/internal/api/apierr"
)

// writeError reports err to the client, logging anything that maps to a
// server-side failure
func writeError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	if apierr.Status(err) >= http.StatusInternalServerError {
		logger.Error(op+" failed", slog.Any("error", err))
	}
	apierr.WriteError(w, err)
}

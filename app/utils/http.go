package utils

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const maxDebugBody = 2048

// DebugResponse drains at most a couple of KB of the body, logs it and returns it trimmed.
func DebugResponse(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxDebugBody))
	if err != nil {
		slog.Error("error while reading response body", "err", err)
	}
	body := strings.TrimSpace(string(b))
	slog.Debug("got response", "status", resp.Status, "body", body)
	return body
}

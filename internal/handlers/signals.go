package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const maxSignalBody = 64 << 10 // 64KB

// readSignals extracts the datastar signal bag from a request: the
// `datastar` query parameter on GET, the JSON body on other methods.
// Missing or malformed signals read as an empty bag; every consumer
// has a zero-value default. Reads the body at most once per request.
func readSignals(r *http.Request) map[string]any {
	signals := make(map[string]any)

	if raw := r.URL.Query().Get("datastar"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &signals)
		return signals
	}

	if r.Method == http.MethodGet || r.Body == nil {
		return signals
	}
	if ct := r.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		return signals
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSignalBody))
	if err != nil {
		return signals
	}
	_ = json.Unmarshal(body, &signals)
	return signals
}

// signalString reads a signal as a string; numbers are formatted, so a
// numeric payment input still parses downstream.
func signalString(signals map[string]any, key string) string {
	switch v := signals[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

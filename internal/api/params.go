package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/openjobspec/ojs-monitor/internal/core"
)

const (
	defaultPageLength = 10
	maxBodyBytes      = 1 << 20
)

// instanceParam reads ?instance=N, defaulting to the first instance.
func instanceParam(r *http.Request) (int, *core.OJSError) {
	raw := r.URL.Query().Get("instance")
	if raw == "" {
		return 0, nil
	}
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.NewInvalidRequestError("instance must be an integer.", map[string]any{"instance": raw})
	}
	return idx, nil
}

func int64Param(values url.Values, name string, def int64) (int64, *core.OJSError) {
	raw := values.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, core.NewInvalidRequestError(name+" must be an integer.", map[string]any{name: raw})
	}
	return n, nil
}

// listParam reads a repeated parameter such as queues[]=a&queues[]=b. An
// absent parameter yields nil; a parameter present only with empty values
// yields an empty non-nil selection. Comma separated values are split.
func listParam(values url.Values, name string) []string {
	raw, ok := values[name]
	if !ok {
		return nil
	}
	out := []string{}
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// statusesParam parses a status selection, keeping nil for "all".
func statusesParam(names []string) ([]core.StatusKind, *core.OJSError) {
	if names == nil {
		return nil, nil
	}
	statuses, err := core.ParseStatuses(names)
	if err != nil {
		if ojsErr, ok := core.AsOJSError(err); ok {
			return nil, ojsErr
		}
		return nil, core.NewInvalidRequestError(err.Error(), nil)
	}
	return statuses, nil
}

// decodeBody decodes an optional JSON request body into v. An empty body
// leaves v untouched.
func decodeBody(r *http.Request, v any) *core.OJSError {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return core.NewInvalidRequestError("Failed to read request body.", nil)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return core.NewInvalidRequestError("Invalid JSON in request body.", nil)
		}
		return core.NewInvalidRequestError("Invalid request body: "+err.Error(), nil)
	}
	return nil
}

package httpapi

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
)

type jsonObj map[string]interface{}

func writeJSON(rw http.ResponseWriter, logger zerolog.Logger, val interface{}) {
	if err := json.NewEncoder(rw).Encode(val); err != nil {
		logger.Warn().Err(err).Msg("failed to write response")
	}
}

func writeErrMsg(rw http.ResponseWriter, logger zerolog.Logger, code int, msg string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	writeJSON(rw, logger, jsonObj{"error": msg})
}

type loggerResponseWriter struct {
	http.ResponseWriter
	code int
}

func newLoggerResponseWriter(rw http.ResponseWriter) *loggerResponseWriter {
	return &loggerResponseWriter{
		ResponseWriter: rw,
		code:           -1,
	}
}

func (rw *loggerResponseWriter) WriteHeader(code int) {
	if rw.code < 0 {
		rw.code = code
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *loggerResponseWriter) Write(data []byte) (int, error) {
	rw.WriteHeader(http.StatusOK)
	return rw.ResponseWriter.Write(data)
}

func requestLoggerMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			logrw := newLoggerResponseWriter(rw)
			next.ServeHTTP(logrw, r)
			logger.Debug().
				Str("proto", r.Proto).
				Str("method", r.Method).
				Int("code", logrw.code).
				Str("url", r.URL.String()).
				Msg("request")
		})
	}
}

func recoverPanicMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					logger.Error().Interface("panic", p).Str("stack", string(debug.Stack())).Msg("panic occurred")
					writeErrMsg(rw, logger, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

func notFoundHandler(logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		writeErrMsg(rw, logger, http.StatusNotFound, "not found")
	})
}

func methodNotAllowedHandler(logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		writeErrMsg(rw, logger, http.StatusMethodNotAllowed, "method not allowed")
	})
}

package app

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// NewTransport returns the round tripper shared by every outbound client. It logs each request.
func NewTransport(log *zap.Logger) http.RoundTripper {
	return &transport{base: http.DefaultTransport, log: log}
}

type transport struct {
	base http.RoundTripper
	log  *zap.Logger
}

func (tpt *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	res, err := tpt.base.RoundTrip(req)
	elapsed := time.Since(start)

	log := tpt.log.Sugar()
	if err != nil {
		log.Debugw("HTTP request failed",
			"method", req.Method,
			"host", req.URL.Host,
			"path", req.URL.Path,
			"elapsed_msecs", elapsed.Milliseconds(),
			"err", err,
		)
		return nil, err
	}
	log.Debugw("HTTP request completed",
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
		"status", res.StatusCode,
		"elapsed_msecs", elapsed.Milliseconds(),
	)
	return res, nil
}

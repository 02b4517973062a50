// Package web exposes the resolver over HTTP and maps categorized errors
// to response codes.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/feedkit/resolver/internal/feed"
	"github.com/feedkit/resolver/internal/resolver"
	"github.com/feedkit/resolver/internal/store"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

// Server wires the resolver and the feed store into an HTTP API.
type Server struct {
	resolver      *resolver.Resolver
	store         *store.Store
	log           logrus.FieldLogger
	purgeInterval time.Duration
	startedAt     time.Time
}

// New builds a server. A zero purge interval disables the counter sweep.
func New(res *resolver.Resolver, st *store.Store, log logrus.FieldLogger, purgeInterval time.Duration) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		resolver:      res,
		store:         st,
		log:           log,
		purgeInterval: purgeInterval,
		startedAt:     time.Now(),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/r/", s.handleRedirect)
	mux.HandleFunc("/api/resolve", s.handleResolve)
	mux.HandleFunc("/api/feeds/", s.handleFeeds)
	mux.HandleFunc("/api/status", s.handleStatus)
	return withSecurityHeaders(mux)
}

// ListenAndServe runs the server until the context is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if s.purgeInterval > 0 {
		go s.purgeLoop(ctx)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	s.log.WithField("addr", addr).Info("listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// purgeLoop periodically removes counter rows whose retention expired.
func (s *Server) purgeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.store.PurgeExpiredCounters(ctx, time.Now())
			if err != nil {
				s.log.WithError(err).Warn("counter purge failed")
				continue
			}
			if removed > 0 {
				s.log.WithField("removed", removed).Debug("purged expired counters")
			}
		}
	}
}

// handleRedirect serves GET /r/{feedID}/{videoID} with a 302 to the
// resolved media URL.
func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, resolver.CategoryInvalidUsage, "method not allowed")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/r/")
	feedID, videoID, ok := strings.Cut(rest, "/")
	if !ok || videoID == "" || strings.Contains(videoID, "/") {
		writeJSONError(w, http.StatusBadRequest, resolver.CategoryInvalidUsage, "expected /r/{feedID}/{videoID}")
		return
	}

	url, err := s.resolver.Resolve(r.Context(), feedID, videoID)
	if err != nil {
		s.writeResolveError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// handleResolve serves GET /api/resolve?feed=..&video=.. with the resolved
// URL as JSON.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, resolver.CategoryInvalidUsage, "method not allowed")
		return
	}
	feedID := r.URL.Query().Get("feed")
	videoID := r.URL.Query().Get("video")

	url, err := s.resolver.Resolve(r.Context(), feedID, videoID)
	if err != nil {
		s.writeResolveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// feedPayload is the admin representation of feed metadata.
type feedPayload struct {
	Provider     string `json:"provider"`
	Format       string `json:"format"`
	Quality      string `json:"quality"`
	FeatureLevel int    `json:"feature_level"`
	LastAccess   string `json:"last_access,omitempty"`
}

// handleFeeds serves GET and PUT on /api/feeds/{feedID}.
func (s *Server) handleFeeds(w http.ResponseWriter, r *http.Request) {
	feedID := strings.TrimPrefix(r.URL.Path, "/api/feeds/")
	if feedID == "" || strings.Contains(feedID, "/") {
		writeJSONError(w, http.StatusBadRequest, resolver.CategoryInvalidUsage, "expected /api/feeds/{feedID}")
		return
	}

	switch r.Method {
	case http.MethodGet:
		meta, err := s.store.GetFeed(r.Context(), feedID)
		if errors.Is(err, store.ErrFeedNotFound) {
			writeJSONError(w, http.StatusNotFound, resolver.CategoryInvalidUsage, "feed not found")
			return
		}
		if err != nil {
			s.log.WithError(err).Error("feed lookup failed")
			writeJSONError(w, http.StatusInternalServerError, resolver.CategoryResolutionFailed, "feed lookup failed")
			return
		}
		payload := feedPayload{
			Provider:     string(meta.Provider),
			Format:       string(meta.Format),
			Quality:      string(meta.Quality),
			FeatureLevel: meta.FeatureLevel,
		}
		if !meta.LastAccess.IsZero() {
			payload.LastAccess = meta.LastAccess.UTC().Format(time.RFC3339)
		}
		writeJSON(w, http.StatusOK, payload)

	case http.MethodPut:
		var payload feedPayload
		if reqErr := decodeJSONBody(w, r, &payload); reqErr != nil {
			writeJSONError(w, reqErr.status, resolver.CategoryInvalidUsage, reqErr.message)
			return
		}
		meta := feed.Metadata{
			Provider:     feed.Provider(payload.Provider),
			Format:       feed.Format(payload.Format),
			Quality:      feed.Quality(payload.Quality),
			FeatureLevel: payload.FeatureLevel,
		}
		if err := meta.Validate(); err != nil {
			writeJSONError(w, http.StatusBadRequest, resolver.CategoryInvalidUsage, err.Error())
			return
		}
		if err := s.store.PutFeed(r.Context(), feedID, meta); err != nil {
			s.log.WithError(err).Error("feed upsert failed")
			writeJSONError(w, http.StatusInternalServerError, resolver.CategoryResolutionFailed, "feed upsert failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	default:
		writeJSONError(w, http.StatusMethodNotAllowed, resolver.CategoryInvalidUsage, "method not allowed")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, resolver.CategoryInvalidUsage, "method not allowed")
		return
	}
	uptime := time.Since(s.startedAt).Truncate(time.Second).String()
	payload := map[string]any{"uptime": uptime}
	rows, resolutions, err := s.store.CounterStats(r.Context(), time.Now())
	if err != nil {
		s.log.WithError(err).Warn("counter stats unavailable")
	} else {
		payload["counters"] = map[string]int64{
			"rows":        rows,
			"resolutions": resolutions,
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

// writeResolveError maps a resolution failure to the response status its
// category calls for.
func (s *Server) writeResolveError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, store.ErrFeedNotFound):
		status = http.StatusNotFound
	case resolver.IsInvalidUsage(err):
		status = http.StatusBadRequest
	case resolver.IsQuotaExceeded(err):
		status = http.StatusTooManyRequests
	}
	writeJSONError(w, status, resolver.CategoryOf(err), err.Error())
}

type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) *requestError {
	ct := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil || mediaType != "application/json" {
		return &requestError{http.StatusUnsupportedMediaType, "content type must be application/json"}
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return &requestError{http.StatusRequestEntityTooLarge, "request body too large"}
		}
		return &requestError{http.StatusBadRequest, "invalid JSON payload"}
	}
	if err := dec.Decode(new(struct{})); err != io.EOF {
		return &requestError{http.StatusBadRequest, "invalid JSON payload"}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, category resolver.Category, message string) {
	writeJSON(w, status, map[string]string{
		"type":     "error",
		"category": string(category),
		"error":    message,
	})
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// Package resolver implements the resolution pipeline: metadata lookup,
// quota enforcement, provider extraction, and deterministic stream
// selection.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/feedkit/resolver/internal/extractor"
	"github.com/feedkit/resolver/internal/feed"
	"github.com/feedkit/resolver/internal/store"
)

// MetadataStore is the feed metadata collaborator. *store.Store satisfies
// this interface.
type MetadataStore interface {
	GetFeed(ctx context.Context, feedID string) (feed.Metadata, error)
	TouchFeed(ctx context.Context, feedID string, when time.Time) error
}

var urlTemplates = map[feed.Provider]string{
	feed.ProviderYoutube: "https://youtube.com/watch?v=%s",
	feed.ProviderVimeo:   "https://vimeo.com/%s",
}

// Config carries the resolver's injected dependencies.
type Config struct {
	Store      MetadataStore
	Quota      *QuotaPolicy
	Extractors extractor.Registry
	Log        logrus.FieldLogger
	// ExtractTimeout bounds the extraction call, the dominant latency and
	// failure source. Zero disables the bound.
	ExtractTimeout time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Resolver coordinates one stateless resolution per call; the only side
// effect is the quota counter increment.
type Resolver struct {
	store          MetadataStore
	quota          *QuotaPolicy
	extractors     extractor.Registry
	log            logrus.FieldLogger
	extractTimeout time.Duration
	now            func() time.Time
}

// New builds a resolver from its dependencies.
func New(cfg Config) *Resolver {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		store:          cfg.Store,
		quota:          cfg.Quota,
		extractors:     cfg.Extractors,
		log:            log,
		extractTimeout: cfg.ExtractTimeout,
		now:            now,
	}
}

// Resolve turns (feedID, videoID) into one short-lived playable URL.
// Validation, metadata lookup, and the quota check all run before any
// extraction work so rejected requests never pay the extraction cost.
func (r *Resolver) Resolve(ctx context.Context, feedID, videoID string) (string, error) {
	if strings.TrimSpace(feedID) == "" {
		return "", invalidUsagef("invalid feed id")
	}
	videoID = strings.TrimSuffix(videoID, path.Ext(videoID))
	if strings.TrimSpace(videoID) == "" {
		return "", invalidUsagef("invalid video id")
	}

	log := r.log.WithFields(logrus.Fields{"feed": feedID, "video": videoID})

	meta, err := r.store.GetFeed(ctx, feedID)
	if err != nil {
		if errors.Is(err, store.ErrFeedNotFound) {
			return "", wrapCategory(CategoryInvalidUsage, fmt.Errorf("feed %s: %w", feedID, err))
		}
		log.WithError(err).Error("metadata lookup failed")
		return "", wrapCategory(CategoryResolutionFailed, fmt.Errorf("fetching feed metadata: %w", err))
	}
	if err := meta.Validate(); err != nil {
		return "", invalidUsagef("invalid feed metadata: %v", err)
	}

	count, err := r.quota.CheckAndIncrement(ctx, feedID, meta.FeatureLevel)
	if err != nil {
		if IsQuotaExceeded(err) {
			log.WithField("count", count).Warn("daily quota exceeded")
		} else {
			log.WithError(err).Error("quota check failed")
		}
		return "", err
	}

	tpl, ok := urlTemplates[meta.Provider]
	if !ok {
		return "", invalidUsagef("no URL template for provider %q", meta.Provider)
	}
	canonical := fmt.Sprintf(tpl, videoID)

	engine, ok := r.extractors.Lookup(meta.Provider)
	if !ok {
		return "", invalidUsagef("no extractor for provider %q", meta.Provider)
	}

	ectx := ctx
	if r.extractTimeout > 0 {
		var cancel context.CancelFunc
		ectx, cancel = context.WithTimeout(ctx, r.extractTimeout)
		defer cancel()
	}
	candidates, err := engine.Extract(ectx, canonical)
	if err != nil {
		log.WithError(err).WithField("url", canonical).Error("extraction failed")
		return "", wrapCategory(CategoryResolutionFailed, fmt.Errorf("extracting %s: %w", canonical, err))
	}

	selector, ok := SelectorFor(meta.Provider)
	if !ok {
		return "", invalidUsagef("no selection strategy for provider %q", meta.Provider)
	}
	streamURL, err := selector.SelectStream(candidates, meta.Format, meta.Quality)
	if err != nil {
		log.WithError(err).Error("stream selection failed")
		return "", err
	}

	if err := r.store.TouchFeed(ctx, feedID, r.now()); err != nil {
		// Last-access bookkeeping must not fail a resolved request.
		log.WithError(err).Warn("updating feed last access failed")
	}

	log.WithFields(logrus.Fields{
		"provider": meta.Provider,
		"count":    count,
	}).Info("resolved")
	return streamURL, nil
}

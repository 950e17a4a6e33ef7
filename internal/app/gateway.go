package app

import (
	"context"
	"fmt"

	"github.com/ondes-hq/radio-catalog/internal/catalog"
	"github.com/ondes-hq/radio-catalog/internal/config"
	"github.com/ondes-hq/radio-catalog/internal/fetcher"
	"github.com/ondes-hq/radio-catalog/internal/logger"
	"github.com/ondes-hq/radio-catalog/internal/merger"
	"github.com/ondes-hq/radio-catalog/internal/ops"
	"github.com/ondes-hq/radio-catalog/internal/orchestrator"
	"github.com/ondes-hq/radio-catalog/internal/resolver"
	"github.com/ondes-hq/radio-catalog/internal/scrape"
	"github.com/ondes-hq/radio-catalog/internal/stations"
	"github.com/ondes-hq/radio-catalog/internal/storage"
	"github.com/ondes-hq/radio-catalog/pkg/httpclient"
	"github.com/ondes-hq/radio-catalog/pkg/notify"
)

// Gateway is the catalog gateway runtime: it owns the wired operation table
// and the resources behind it.
type Gateway struct {
	cfg   *config.Config
	table *ops.Table
	store storage.Store
	log   logger.Logger
}

// NewGateway builds the runtime from config: graph client, scraper,
// resolution pipeline, station registry, result cache, audit sinks, and
// finally the operation table.
func NewGateway(cfg *config.Config, log logger.Logger) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	if cfg.APIKey == "" {
		log.WarnObj("no API key configured; graph queries will likely be rejected", "config_key", "api_key")
	}

	httpClient := httpclient.NewRestyClient(cfg.HTTPTimeout)

	graph, err := catalog.New(catalog.Options{
		Endpoint:   cfg.GraphEndpoint,
		APIKey:     cfg.APIKey,
		UserAgent:  cfg.UserAgent,
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.RetryBackoff,
		HTTP:       httpClient,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("init graph client: %w", err)
	}

	scraper := scrape.New(scrape.Options{
		HTTP:        httpClient,
		BaseURL:     cfg.WebsiteBaseURL,
		PodcastsURL: cfg.PodcastsURL,
		UserAgent:   cfg.UserAgent,
		Logger:      log,
	})

	reg, err := stations.Load(cfg.StationsFile)
	if err != nil {
		return nil, fmt.Errorf("load stations registry: %w", err)
	}
	log.InfoObj("stations registry loaded", "stations_meta", map[string]any{
		"count": len(reg.All()),
	})

	orc, err := orchestrator.New(
		resolver.New(graph),
		fetcher.New(graph, log),
		merger.New(scraper, cfg.ScrapeWorkers, log),
		scraper,
		reg,
		cfg.FanoutLimit,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}

	store, err := storage.NewStore(cfg.CacheType, cfg.CachePath, storage.Options{
		ResultTTL: cfg.CacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init result cache: %w", err)
	}
	log.InfoObj("result cache initialized", "cache_config", map[string]any{
		"type":        cfg.CacheType,
		"path":        cfg.CachePath,
		"ttl_seconds": int(cfg.CacheTTL.Seconds()),
	})

	events, err := buildEventSinks(cfg, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Gateway{
		cfg:   cfg,
		table: ops.NewTable(orc, store, events, log),
		store: store,
		log:   log,
	}, nil
}

func buildEventSinks(cfg *config.Config, log logger.Logger) (*notify.Fanout, error) {
	var sinks []notify.Publisher
	if cfg.NotifyLogEvents {
		sinks = append(sinks, notify.NewLogPublisher("audit-log", log))
	}
	if cfg.NotifyWebhookURL != "" {
		webhook, err := notify.NewHTTPPublisher(notify.HTTPConfig{
			ID:      "audit-webhook",
			URL:     cfg.NotifyWebhookURL,
			Timeout: notifyTimeout(cfg),
		})
		if err != nil {
			return nil, fmt.Errorf("build webhook sink: %w", err)
		}
		sinks = append(sinks, webhook)
	}
	return notify.NewFanout(sinks), nil
}

// Run serves the operation table over HTTP until the context is cancelled.
func (g *Gateway) Run(ctx context.Context) error {
	if g == nil || g.table == nil {
		return fmt.Errorf("gateway is not initialized")
	}
	defer g.closeStore()

	g.log.InfoObj("gateway starting", "gateway_state", map[string]any{
		"listen_addr": g.cfg.ListenAddr,
		"operations":  len(g.table.Names()),
	})
	return serveHTTP(ctx, g.cfg.ListenAddr, g.table, g.log)
}

func (g *Gateway) closeStore() {
	if g == nil || g.store == nil {
		return
	}
	if err := g.store.Close(); err != nil {
		g.log.ErrorObj("result cache close failed", "error", err)
	}
}

package main

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/orbzodiac84/regpulse/internal/analyzer"
	"github.com/orbzodiac84/regpulse/internal/collector"
	"github.com/orbzodiac84/regpulse/internal/model"
	"github.com/orbzodiac84/regpulse/internal/notify"
	"github.com/orbzodiac84/regpulse/internal/pipeline"
	"github.com/orbzodiac84/regpulse/internal/registry"
	"github.com/orbzodiac84/regpulse/internal/store"
	"github.com/orbzodiac84/regpulse/pkg/gemini"
)

// env bundles the wired subsystems a command needs.
type env struct {
	Store    store.Store
	Agencies map[string]model.Agency
	Analyzer *analyzer.Analyzer
	Notifier *notify.Notifier
	Pipeline *pipeline.Pipeline
}

func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "regpulse.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv wires the store, registry, collectors, analyzer, notifier, and
// pipeline from config, and runs migrations.
func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	agencies, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		st.Close()
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Scraper.Timeout()}
	feeds := collector.NewRSSCollector(httpClient, cfg.Scraper.UserAgent)
	scraper := collector.NewScraper(cfg.Scraper, httpClient)

	llm := gemini.NewClient(cfg.Gemini.Key, gemini.WithBaseURL(cfg.Gemini.BaseURL))
	an := analyzer.New(llm, cfg.Gemini, cfg.Analyzer)
	notifier := notify.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID)

	return &env{
		Store:    st,
		Agencies: agencies,
		Analyzer: an,
		Notifier: notifier,
		Pipeline: pipeline.New(st, agencies, feeds, scraper, an, notifier),
	}, nil
}

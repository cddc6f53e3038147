package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"footy_go/internal/domain"
	"footy_go/internal/feed"
	"footy_go/internal/hub"
	"footy_go/internal/infra"
	"footy_go/internal/infra/compliance"
	"footy_go/internal/infra/funding"
	"footy_go/internal/infra/storage"
	"footy_go/internal/ledger"
	"footy_go/internal/pricing"
	"footy_go/internal/registry"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config     *infra.Config
	Storage    *storage.Storage
	Downloader *infra.PortraitDownloader
	Registry   *registry.Registry
	Engine     *pricing.Engine
	Hub        *hub.Hub
	Ledger     *ledger.Ledger
	Driver     *feed.Driver
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, DB, pipeline wiring).
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping Footy Go...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	// 4. Initialize Portrait Downloader
	if cfg.Assets.BaseURL != "" {
		downloader, err := infra.NewPortraitDownloader(cfg.Assets.BaseURL)
		if err != nil {
			return err
		}
		b.Downloader = downloader
		slog.Info("✅ Portrait downloader ready")
	}

	// 5. Seed the instrument registry, carrying over previously synced
	// portrait paths.
	b.Registry = registry.New()
	synced := make(map[string]storage.PlayerInfo)
	if players, err := store.GetAllPlayers(); err == nil {
		for _, p := range players {
			synced[p.ID] = p
		}
	}
	now := time.Now()
	seeds := make([]domain.Instrument, 0, len(cfg.Players))
	for _, p := range cfg.Players {
		seeds = append(seeds, domain.Instrument{
			ID:        p.ID,
			Name:      p.Name,
			Position:  p.Position,
			Team:      p.Team,
			Price:     cfg.Pricing.BasePrice,
			BasePrice: cfg.Pricing.BasePrice,
			UpdatedAt: now,
			IconPath:  synced[p.ID].IconPath,
		})
	}
	b.Registry.Seed(seeds)
	slog.Info("✅ Registry seeded", slog.Int("instruments", len(seeds)))

	// 6. Pricing engine, hub, ledger
	b.Engine = pricing.NewEngine(pricing.Config{
		GoalWeight:   cfg.Pricing.GoalWeight,
		AssistWeight: cfg.Pricing.AssistWeight,
		MinuteWeight: cfg.Pricing.MinuteWeight,
		InjuryFactor: cfg.Pricing.InjuryFactor,
	})
	b.Hub = hub.New(b.Registry, cfg.Hub.QueueSize)

	gate := compliance.NewTierGate(cfg.Compliance.DefaultTier, cfg.Compliance.Tiers)
	var provider domain.FundingProvider
	if cfg.Funding.BaseURL != "" {
		provider = funding.NewClient(cfg.Funding.BaseURL, cfg.Funding.SecretKey)
	}
	b.Ledger = ledger.New(b.Registry, gate, provider, store)

	// 7. Feed driver
	source, normalizer, err := b.buildFeed()
	if err != nil {
		return err
	}
	interval := time.Duration(cfg.Feed.PollIntervalSec) * time.Second
	b.Driver = feed.NewDriver(source, normalizer, b.Registry, b.Engine, b.Hub, store, interval)

	return nil
}

func (b *Bootstrap) buildFeed() (feed.Source, feed.Normalizer, error) {
	cfg := b.Config
	normalizer, err := feed.NormalizerFor(cfg.Feed.Source)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Feed.Source == feed.SourceSimulator {
		ids := make([]string, 0, len(cfg.Players))
		for _, p := range cfg.Players {
			ids = append(ids, p.ID)
		}
		return feed.NewSimulatorSource(ids), normalizer, nil
	}
	return feed.NewPollSource(cfg.Feed.URL, cfg.Feed.APIKey), normalizer, nil
}

// SyncAssets synchronizes player metadata and portraits in the background.
func (b *Bootstrap) SyncAssets(ctx context.Context) {
	slog.Info("🔄 Starting asset synchronization...")

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent downloads

	for _, seed := range b.Config.Players {
		wg.Add(1)
		go func(p infra.PlayerSeed) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			player := &storage.PlayerInfo{
				ID:        p.ID,
				Name:      p.Name,
				Position:  p.Position,
				Team:      p.Team,
				UpdatedAt: time.Now(),
			}

			// Preserve previously synced assets
			if existing, _ := b.Storage.GetPlayer(p.ID); existing != nil {
				player.IconPath = existing.IconPath
				player.LastSyncedAt = existing.LastSyncedAt
			}

			if err := b.Storage.UpsertPlayer(player); err != nil {
				slog.Error("Failed to upsert player", slog.String("id", p.ID), slog.Any("error", err))
			}

			if b.Downloader == nil {
				return
			}
			path, err := b.Downloader.DownloadPortrait(p.ID)
			if err != nil {
				slog.Warn("Failed to download portrait", slog.String("id", p.ID), slog.Any("error", err))
			} else if path != "" {
				player.IconPath = path
				player.LastSyncedAt = time.Now()
				b.Storage.UpsertPlayer(player)
			}
		}(seed)
	}

	wg.Wait()
	slog.Info("✨ Asset synchronization completed")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/photonav/gallery/internal/bridge"
	"github.com/photonav/gallery/internal/config"
	"github.com/photonav/gallery/internal/labeling"
	"github.com/photonav/gallery/internal/mediaindex"
	"github.com/photonav/gallery/internal/observability"
	"github.com/photonav/gallery/internal/overlay"
	"github.com/photonav/gallery/internal/query"
	"github.com/photonav/gallery/internal/repository"
	"github.com/photonav/gallery/internal/selection"
	"github.com/photonav/gallery/internal/services"
	"github.com/photonav/gallery/internal/settings"
)

func main() {
	log := observability.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Errorf("failed to load configuration: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetry, err := observability.Initialize(ctx, observability.NewConfig("gallery-core", "1.0.0"))
	if err != nil {
		log.Warnf("telemetry init failed: %v", err)
	}

	// Cache store
	changes := repository.NewChanges()
	var mediaRepo repository.MediaRepo
	var favoriteRepo repository.FavoriteRepo
	var labelRepo repository.LabelRepo
	var settingsRepo repository.SettingsRepo

	if cfg.UsePostgres() {
		log.Info("using PostgreSQL cache")
		db, err := repository.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			log.Errorf("failed to open PostgreSQL cache: %v", err)
			os.Exit(1)
		}
		defer db.Close()
		mediaRepo = repository.NewMediaRepositoryPostgres(db, changes)
		favoriteRepo = repository.NewFavoriteRepositoryPostgres(db, changes)
		labelRepo = repository.NewLabelRepositoryPostgres(db, changes)
		settingsRepo = repository.NewSettingsRepositoryPostgres(db, changes)
	} else {
		log.Info("using SQLite cache")
		db, err := repository.NewSQLiteDB(cfg.DatabasePath)
		if err != nil {
			log.Errorf("failed to open SQLite cache: %v", err)
			os.Exit(1)
		}
		defer db.Close()
		mediaRepo = repository.NewMediaRepository(db, changes)
		favoriteRepo = repository.NewFavoriteRepository(db, changes)
		labelRepo = repository.NewLabelRepository(db, changes)
		settingsRepo = repository.NewSettingsRepository(db, changes)
	}

	// Media index over the configured roots
	index, err := mediaindex.NewFSIndex(cfg.Media.Roots, cfg.Media.TrashDir)
	if err != nil {
		log.Errorf("failed to open media index: %v", err)
		os.Exit(1)
	}

	// Query layer
	library := query.NewLibrary(mediaRepo, favoriteRepo, labelRepo, changes)
	library.Start(ctx)
	defer library.Close()

	// Sync engine; a failed refresh force-clears the loading flag so the
	// renderer never sticks in a spinner.
	syncEngine := services.NewSyncEngine(index, mediaRepo, labelRepo, labeling.NullLabeler{}, library.ForceLoaded)

	// Settings streams
	prefs := settings.NewStore(settingsRepo, changes)
	prefs.Start(ctx)
	defer prefs.Stop()
	seedGestureDefaults(ctx, prefs, cfg.Gesture)

	// Selection over the index, resyncing after successful mutations
	selectionCtl := selection.NewController(index, nil, func() {
		go syncEngine.Refresh(context.WithoutCancel(ctx))
	})

	// Overlay state owner
	overlayState := overlay.NewStateOwner()

	// Filesystem watcher driving debounced resyncs
	if cfg.Watcher.Enabled {
		watcher, err := services.NewChangeWatcher(func() {
			syncEngine.Refresh(context.WithoutCancel(ctx))
		})
		if err != nil {
			log.Warnf("watcher unavailable: %v", err)
		} else {
			defer watcher.Close()
			for _, root := range cfg.Media.Roots {
				if err := watcher.Register(root); err != nil {
					log.Warnf("cannot watch %s: %v", root, err)
				}
			}
			go watcher.Run(ctx)
		}
	}

	// UI event bridge
	hub := bridge.NewHub()
	go hub.Run()
	publisher := bridge.NewPublisher(hub)
	publisher.Start(ctx, library, syncEngine, selectionCtl, overlayState, prefs)
	defer publisher.Stop()

	srv := &http.Server{
		Addr:         cfg.BridgeAddress,
		Handler:      bridge.NewRouter(hub),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Infof("bridge listening on %s", cfg.BridgeAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("bridge server error: %v", err)
			cancel()
		}
	}()

	// Initial sync, then open the query gate
	go func() {
		syncEngine.Refresh(ctx)
		library.MarkReady()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("bridge shutdown: %v", err)
	}
	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			log.Warnf("telemetry shutdown: %v", err)
		}
	}
	log.Info("stopped")
}

// seedGestureDefaults writes the configured gesture defaults into the
// settings table when the keys are unset, so the renderer always finds a
// value.
func seedGestureDefaults(ctx context.Context, prefs *settings.Store, g config.Gesture) {
	seed := func(key, value string) {
		if prefs.GetString(ctx, key, "") == "" {
			if err := prefs.SetString(ctx, key, value); err != nil {
				observability.Warnf("failed to seed %s: %v", key, err)
			}
		}
	}
	seed(settings.KeySwipeToClose, boolString(g.SwipeToClose))
	seed(settings.KeySwipeToReveal, boolString(g.SwipeToReveal))
	if g.DoubleTapZoom > 1 {
		seed(settings.KeyDoubleTapZoom, strconv.Itoa(g.DoubleTapZoom))
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

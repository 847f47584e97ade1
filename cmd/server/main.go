package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"advancedentitylimit/internal/catalog"
	"advancedentitylimit/internal/config"
	"advancedentitylimit/internal/groups"
	"advancedentitylimit/internal/limits"
	"advancedentitylimit/internal/permstore"
	"advancedentitylimit/internal/persistence/indexdb"
	persistlog "advancedentitylimit/internal/persistence/log"
	"advancedentitylimit/internal/persistence/snapshot"
	"advancedentitylimit/internal/registry"
	"advancedentitylimit/internal/transport/feed"
	"advancedentitylimit/internal/transport/httpapi"
	"advancedentitylimit/internal/worldstate"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		configPath = flag.String("config", "", "path to config.yaml (default: <configs>/config.yaml)")
		grantsPath = flag.String("grants", "", "path to grants.yaml (default: <configs>/grants.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite decision index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cp := *configPath
	if cp == "" {
		cp = filepath.Join(*configDir, "config.yaml")
	}
	cfg, err := config.Load(cp)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	gp := *grantsPath
	if gp == "" {
		gp = filepath.Join(*configDir, "grants.yaml")
	}
	perms, err := permstore.Load(gp)
	if err != nil {
		logger.Fatalf("load grants: %v", err)
	}

	reg, err := registry.Load(*configDir)
	if err != nil {
		logger.Fatalf("load registries: %v", err)
	}

	world := worldstate.New(logger)

	var clans groups.ClanProvider
	if cfg.UseClanPooling {
		clans = groups.NewClanProvider(cfg.ClanProvider, cfg.ClanAPIURL, logger)
	}
	agg := groups.New(world, clans, cfg.UseTeamPooling, cfg.UseClanPooling)

	store := limits.NewStore()
	store.SetCatalog(catalog.Build(reg))

	savePath := filepath.Join(*dataDir, "limits.json.zst")
	doc, err := snapshot.Read(savePath)
	if err != nil {
		logger.Fatalf("load tier document: %v", err)
	}
	store.Restore(snapshot.ToTiers(doc))

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
	}

	decLog := persistlog.NewDecisionLogger(*dataDir)
	defer decLog.Close()

	var svc *limits.Service
	feedSrv := feed.NewServer(logger, func(limit int) string { return svc.LimitMessage(limit) })

	sinks := []limits.DecisionSink{decLog, feedSrv}
	if idx != nil {
		sinks = append(sinks, idx)
	}

	svc = limits.NewService(limits.Options{
		Store:   store,
		Perms:   perms,
		Pools:   agg,
		Counter: world,
		Sinks:   sinks,
		Logger:  logger,
		Save: func(tiers []*limits.Tier) error {
			d := snapshot.FromTiers(tiers)
			if err := snapshot.Write(savePath, d); err != nil {
				return err
			}
			if idx != nil {
				idx.RecordSnapshot(savePath, len(d.Tiers))
			}
			return nil
		},
		Rebuild: func() (map[string]string, error) {
			r, err := registry.Load(*configDir)
			if err != nil {
				return nil, err
			}
			return catalog.Build(r), nil
		},
		MessagePrefix:       cfg.MessagePrefix,
		LimitReachedMessage: cfg.LimitReachedMessage,
		DefaultLimit:        cfg.DefaultLimit,
	})

	if err := svc.SeedDefaults(); err != nil {
		logger.Fatalf("seed default tiers: %v", err)
	}
	if cfg.AutoFillEntities {
		if changed, err := svc.RefreshCatalog(); err != nil {
			logger.Fatalf("catalog refresh: %v", err)
		} else if changed {
			logger.Printf("tier data was updated from the catalog")
		}
	}

	mux := http.NewServeMux()
	httpapi.NewServer(svc, perms, idx, logger).Register(mux)
	mux.HandleFunc("/v1/feed", feedSrv.Handler())
	registerDebugWorld(mux, world)

	srv := &http.Server{Addr: *addr, Handler: mux}

	// Host-driven periodic save signal.
	saveTicker := time.NewTicker(time.Duration(cfg.SaveEverySeconds) * time.Second)
	defer saveTicker.Stop()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Printf("listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http: %v", err)
		}
	}()

	for {
		select {
		case <-saveTicker.C:
			if err := svc.Save(); err != nil {
				logger.Printf("periodic save: %v", err)
			}
		case <-stop:
			logger.Printf("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = srv.Shutdown(ctx)
			cancel()
			if err := svc.Save(); err != nil {
				logger.Printf("final save: %v", err)
			}
			return
		}
	}
}

// registerDebugWorld exposes the embedded world so operators can drive the
// stand-in host: spawn/kill live objects and edit teams.
func registerDebugWorld(mux *http.ServeMux, world *worldstate.World) {
	mux.HandleFunc("/debug/v1/spawn", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Owner    uint64 `json:"owner"`
			Category string `json:"category"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Owner == 0 || req.Category == "" {
			http.Error(rw, "bad request", http.StatusBadRequest)
			return
		}
		id := world.Spawn(req.Owner, req.Category)
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]uint64{"id": id})
	})
	mux.HandleFunc("/debug/v1/kill/", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id, err := strconv.ParseUint(r.URL.Path[len("/debug/v1/kill/"):], 10, 64)
		if err != nil {
			http.Error(rw, "bad id", http.StatusBadRequest)
			return
		}
		world.Kill(id)
		rw.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/debug/v1/team", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			ID      uint64   `json:"id"`
			Members []uint64 `json:"members"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == 0 {
			http.Error(rw, "bad request", http.StatusBadRequest)
			return
		}
		world.SetTeam(req.ID, req.Members...)
		rw.WriteHeader(http.StatusNoContent)
	})
}

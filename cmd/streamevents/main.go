package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/streamevents/streamevents/internal/config"
	"github.com/streamevents/streamevents/internal/embeddings"
	"github.com/streamevents/streamevents/internal/scheduler"
	"github.com/streamevents/streamevents/internal/search"
	"github.com/streamevents/streamevents/internal/semantic"
	"github.com/streamevents/streamevents/internal/storage"
	"github.com/streamevents/streamevents/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "serve":
		runServe(cfg)
	case "backfill":
		backfillFlags := flag.NewFlagSet("backfill", flag.ExitOnError)
		force := backfillFlags.Bool("force", false, "Re-embed events that already have embeddings")
		limit := backfillFlags.Int("limit", 0, "Maximum events to consider (0 = all)")
		backfillFlags.Parse(args)

		runBackfill(cfg, *force, *limit)
	case "reindex":
		runReindex(cfg)
	case "update-status":
		runUpdateStatus(cfg)
	case "seed":
		runSeed(cfg)
	case "search":
		searchFlags := flag.NewFlagSet("search", flag.ExitOnError)
		mode := searchFlags.String("mode", "semantic", "Search mode: semantic, keyword, or hybrid")
		weight := searchFlags.Float64("weight", 0.3, "Semantic weight for hybrid mode (0.0-1.0)")
		future := searchFlags.Bool("future", true, "Only show events scheduled in the future")
		searchFlags.Parse(args)

		if searchFlags.NArg() < 1 {
			fmt.Println("Error: search query required")
			fmt.Println("Usage: streamevents search [flags] <query>")
			os.Exit(1)
		}
		runSearch(cfg, strings.Join(searchFlags.Args(), " "), *mode, *weight, *future)
	case "stats":
		runStats(cfg)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.AppEnv != "prod" && cfg.AppEnv != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func printUsage() {
	fmt.Println("StreamEvents - streaming event platform with semantic search")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  streamevents <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                    Start the API server and the status scheduler")
	fmt.Println("  backfill [flags]         Compute embeddings for events that lack them")
	fmt.Println("  reindex                  Rebuild the keyword search index")
	fmt.Println("  update-status            Apply due event status transitions once")
	fmt.Println("  seed                     Create demo users and events")
	fmt.Println("  search [flags] <query>   Search events from the command line")
	fmt.Println("  stats                    Show storage and index statistics")
	fmt.Println()
	fmt.Println("Backfill Flags:")
	fmt.Println("  -force            Re-embed events that already have embeddings")
	fmt.Println("  -limit=<n>        Maximum events to consider (0 = all)")
	fmt.Println()
	fmt.Println("Search Flags:")
	fmt.Println("  -mode=<mode>      semantic (default), keyword, or hybrid")
	fmt.Println("  -weight=<w>       Semantic weight for hybrid mode (default 0.3)")
	fmt.Println("  -future=false     Include past events")
	fmt.Println()
	fmt.Println("Configuration comes from STREAMEVENTS_* environment variables,")
	fmt.Println("e.g. STREAMEVENTS_ADDR, STREAMEVENTS_DATA_DIR,")
	fmt.Println("STREAMEVENTS_EMBEDDINGS_PROVIDER (ollama, lmstudio, hash).")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  streamevents serve")
	fmt.Println("  streamevents backfill -limit=100")
	fmt.Println("  streamevents search \"retro gaming tournament\"")
	fmt.Println("  streamevents search -mode=hybrid -weight=0.5 jazz")
}

func openStorage(cfg *config.Config) *storage.DB {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("create data directory")
	}
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	return db
}

func openIndex(cfg *config.Config) *search.Index {
	idx, err := search.Open(cfg.IndexPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.IndexPath).Msg("open search index")
	}
	return idx
}

func newProvider(cfg *config.Config) *semantic.Provider {
	return semantic.NewProvider(cfg.EmbeddingsProvider, cfg.EmbeddingsURL, cfg.EmbeddingsModel)
}

func runServe(cfg *config.Config) {
	db := openStorage(cfg)
	defer db.Close()
	idx := openIndex(cfg)
	defer idx.Close()

	provider := newProvider(cfg)
	server := web.NewServer(db, idx, provider,
		time.Duration(cfg.SessionTTLHours)*time.Hour, cfg.AppEnv)
	updater := scheduler.NewStatusUpdater(db)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Router(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Msg("api server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		interval := time.Duration(cfg.StatusIntervalSeconds) * time.Second
		err := updater.Run(ctx, interval)
		if err == context.Canceled {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func runBackfill(cfg *config.Config, force bool, limit int) {
	db := openStorage(cfg)
	defer db.Close()

	provider := newProvider(cfg)
	stats, err := semantic.NewBackfill(db, provider).Run(force, limit)
	if err != nil {
		log.Fatal().Err(err).Msg("backfill failed")
	}

	fmt.Println()
	fmt.Println("=== Backfill Complete ===")
	fmt.Printf("Scanned:  %d\n", stats.Scanned)
	fmt.Printf("Updated:  %d\n", stats.Updated)
	fmt.Printf("Skipped:  %d\n", stats.Skipped)
	fmt.Printf("Failed:   %d\n", len(stats.Failed))
	fmt.Printf("Duration: %v\n", stats.Duration.Round(time.Millisecond))
	if len(stats.Failed) > 0 {
		fmt.Printf("Failed event IDs: %v\n", stats.Failed)
		os.Exit(1)
	}
}

func runReindex(cfg *config.Config) {
	db := openStorage(cfg)
	defer db.Close()
	idx := openIndex(cfg)
	defer idx.Close()

	start := time.Now()
	if err := idx.Rebuild(db); err != nil {
		log.Fatal().Err(err).Msg("reindex failed")
	}

	count, err := idx.Count()
	if err != nil {
		log.Fatal().Err(err).Msg("index count failed")
	}
	fmt.Println("=== Reindex Complete ===")
	fmt.Printf("Events indexed: %d\n", count)
	fmt.Printf("Duration:       %v\n", time.Since(start).Round(time.Millisecond))
}

func runUpdateStatus(cfg *config.Config) {
	db := openStorage(cfg)
	defer db.Close()

	started, finished, err := scheduler.NewStatusUpdater(db).RunOnce(time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("status update failed")
	}
	fmt.Printf("Events started:  %d\n", started)
	fmt.Printf("Events finished: %d\n", finished)
}

func runSearch(cfg *config.Config, query, mode string, weight float64, onlyFuture bool) {
	db := openStorage(cfg)
	defer db.Close()

	provider := newProvider(cfg)

	var results []searchHit
	switch mode {
	case "semantic":
		hits, err := semanticHits(db, provider, query, onlyFuture, semantic.DefaultTopK)
		if err != nil {
			log.Fatal().Err(err).Msg("semantic search failed")
		}
		results = hits
	case "keyword":
		idx := openIndex(cfg)
		defer idx.Close()
		keyword, err := idx.Search(query, semantic.DefaultTopK)
		if err != nil {
			log.Fatal().Err(err).Msg("keyword search failed")
		}
		for _, r := range keyword {
			results = append(results, searchHit{title: r.Title, category: r.Category, score: r.Score})
		}
	case "hybrid":
		idx := openIndex(cfg)
		defer idx.Close()
		keyword, err := idx.Search(query, semantic.DefaultTopK*3)
		if err != nil {
			log.Fatal().Err(err).Msg("keyword search failed")
		}
		hits, err := semanticHits(db, provider, query, onlyFuture, semantic.DefaultTopK*3)
		if err != nil {
			log.Fatal().Err(err).Msg("semantic search failed")
		}
		semanticResults := make([]*search.Result, 0, len(hits))
		for _, h := range hits {
			semanticResults = append(semanticResults, &search.Result{
				EventID: h.id, Title: h.title, Category: h.category, Score: h.score,
			})
		}
		merged, err := search.Merge(keyword, semanticResults, 1-weight, semantic.DefaultTopK)
		if err != nil {
			log.Fatal().Err(err).Msg("merge failed")
		}
		for _, r := range merged {
			results = append(results, searchHit{title: r.Title, category: r.Category, score: r.Score})
		}
	default:
		log.Fatal().Str("mode", mode).Msg("invalid search mode (valid: semantic, keyword, hybrid)")
	}

	if len(results) == 0 {
		fmt.Println("No results found")
		return
	}
	fmt.Printf("Found %d results:\n\n", len(results))
	for i, r := range results {
		fmt.Printf("%d. %s\n", i+1, r.title)
		if r.category != "" {
			fmt.Printf("   Category: %s\n", r.category)
		}
		fmt.Printf("   Score: %.3f\n\n", r.score)
	}
}

type searchHit struct {
	id       int64
	title    string
	category string
	score    float64
}

func semanticHits(db *storage.DB, provider *semantic.Provider, query string, onlyFuture bool, k int) ([]searchHit, error) {
	queryVec, err := provider.EmbedText(query)
	if err != nil {
		return nil, err
	}

	filter := storage.EventFilter{}
	if onlyFuture {
		now := time.Now()
		filter.ScheduledAfter = &now
	}
	events, err := db.ListEvents(filter)
	if err != nil {
		return nil, err
	}

	candidates := make([]semantic.Candidate[*storage.Event], 0, len(events))
	for _, e := range events {
		candidates = append(candidates, semantic.Candidate[*storage.Event]{
			Item:   e,
			Vector: embeddings.DeserializeVector(e.Embedding),
		})
	}

	ranked := semantic.CosineTopK(queryVec, candidates, k)
	hits := make([]searchHit, 0, len(ranked))
	for _, r := range ranked {
		hits = append(hits, searchHit{
			id:       r.Item.ID,
			title:    r.Item.Title,
			category: r.Item.Category,
			score:    float64(r.Score),
		})
	}
	return hits, nil
}

func runStats(cfg *config.Config) {
	db := openStorage(cfg)
	defer db.Close()
	idx := openIndex(cfg)
	defer idx.Close()

	eventCount, err := db.CountEvents()
	if err != nil {
		log.Fatal().Err(err).Msg("count events failed")
	}
	embeddedCount, err := db.CountEmbeddedEvents()
	if err != nil {
		log.Fatal().Err(err).Msg("count embedded events failed")
	}
	indexCount, err := idx.Count()
	if err != nil {
		log.Fatal().Err(err).Msg("index count failed")
	}

	fmt.Println("=== StreamEvents Statistics ===")
	fmt.Printf("Events in database: %d\n", eventCount)
	fmt.Printf("Events embedded:    %d\n", embeddedCount)
	fmt.Printf("Events indexed:     %d\n", indexCount)
}

func runSeed(cfg *config.Config) {
	db := openStorage(cfg)
	defer db.Close()
	idx := openIndex(cfg)
	defer idx.Close()

	users := []struct {
		username, email, password, displayName, bio string
		admin                                       bool
	}{
		{"admin", "admin@streamevents.com", "admin123", "Administrador", "Usuari administrador del sistema.", true},
		{"mariagarcia", "mariagarcia@streamevents.com", "password123", "Maria Garcia", "Organitzadora de tornejos de retro gaming.", false},
		{"jordipuig", "jordipuig@streamevents.com", "password123", "Jordi Puig", "Músic de jazz i directes acústics.", false},
		{"annasoler", "annasoler@streamevents.com", "password123", "Anna Soler", "Professora de programació en directe.", false},
		{"paucasals", "paucasals@streamevents.com", "password123", "Pau Casals", "Comentarista esportiu.", false},
	}

	userIDs := map[string]int64{}
	created := 0
	for _, u := range users {
		existing, err := db.GetUserByUsername(u.username)
		if err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("seed: lookup user")
		}
		if existing != nil {
			userIDs[u.username] = existing.ID
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Msg("seed: hash password")
		}
		user := &storage.User{
			Username:     u.username,
			Email:        u.email,
			PasswordHash: string(hash),
			DisplayName:  u.displayName,
			Bio:          u.bio,
			IsAdmin:      u.admin,
		}
		if err := db.CreateUser(user); err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("seed: create user")
		}
		userIDs[u.username] = user.ID
		created++
		fmt.Printf("Created user %s\n", u.username)
	}

	now := time.Now().UTC().Truncate(time.Hour)
	events := []*storage.Event{
		{
			Title:         "Torneig Retro Gaming: Super Mario Kart",
			Description:   "Torneig obert de Super Mario Kart amb comentaris en directe i premis per als tres primers.",
			Category:      "gaming",
			ScheduledDate: now.Add(48 * time.Hour),
			MaxViewers:    500,
			IsFeatured:    true,
			Tags:          "retro, tournament, snes",
			StreamURL:     "https://www.twitch.tv/streamevents_gaming",
			CreatorID:     userIDs["mariagarcia"],
		},
		{
			Title:         "Concert acústic de jazz",
			Description:   "Sessió íntima de jazz amb standards i improvisació, preguntes del xat entre peces.",
			Category:      "music",
			ScheduledDate: now.Add(72 * time.Hour),
			MaxViewers:    300,
			Tags:          "jazz, acoustic, live",
			StreamURL:     "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			CreatorID:     userIDs["jordipuig"],
		},
		{
			Title:         "Aprèn Go des de zero",
			Description:   "Classe en directe d'introducció a Go: sintaxi, tipus, i un petit servidor web de final.",
			Category:      "education",
			ScheduledDate: now.Add(96 * time.Hour),
			MaxViewers:    1000,
			IsFeatured:    true,
			Tags:          "golang, programming, beginners",
			StreamURL:     "https://www.youtube.com/watch?v=abc123xyz",
			CreatorID:     userIDs["annasoler"],
		},
		{
			Title:         "Tertúlia esportiva: la jornada",
			Description:   "Repàs de la jornada amb convidats i preguntes obertes del públic.",
			Category:      "talk",
			ScheduledDate: now.Add(24 * time.Hour),
			MaxViewers:    200,
			Tags:          "sports, debate",
			CreatorID:     userIDs["paucasals"],
		},
	}

	eventCount, err := db.CountEvents()
	if err != nil {
		log.Fatal().Err(err).Msg("seed: count events")
	}
	seededEvents := 0
	if eventCount == 0 {
		for _, e := range events {
			e.Status = storage.StatusScheduled
			if err := db.CreateEvent(e); err != nil {
				log.Fatal().Err(err).Str("title", e.Title).Msg("seed: create event")
			}
			if err := idx.IndexEvent(e); err != nil {
				log.Fatal().Err(err).Str("title", e.Title).Msg("seed: index event")
			}
			seededEvents++
			fmt.Printf("Created event %q\n", e.Title)
		}
	}

	fmt.Println()
	fmt.Printf("Seed complete: %d users created, %d events created\n", created, seededEvents)
	if seededEvents > 0 {
		fmt.Println("Run 'streamevents backfill' to compute embeddings for the demo events.")
	}
}

package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/crier/internal/article"
	"horse.fit/crier/internal/cache"
	"horse.fit/crier/internal/cli"
	"horse.fit/crier/internal/cluster"
	"horse.fit/crier/internal/config"
	"horse.fit/crier/internal/dedup"
	"horse.fit/crier/internal/logging"
	"horse.fit/crier/internal/recency"
	payloadschema "horse.fit/crier/schema"
)

// check reads a directory of article JSON files, runs every article through
// the duplicate checks, clusters the unique remainder, and prints the report.
// With -store the first article of each cluster is persisted so subsequent
// runs see it as already-covered.
func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	dir := fs.String("dir", "testdata/articles", "Directory containing .json article files")
	store := fs.Bool("store", false, "Persist one representative per cluster after checking")
	timeout := fs.Duration("timeout", 30*time.Second, "Overall command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	articles, invalid, err := loadArticles(strings.TrimSpace(*dir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load articles: %v\n", err)
		return 1
	}
	if len(articles) == 0 {
		fmt.Fprintf(os.Stderr, "No valid article files found under %s\n", strings.TrimSpace(*dir))
		return 1
	}

	storeClient, err := cache.NewRedis(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("cache client init failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to cache: %v\n", err)
		return 1
	}
	defer storeClient.Close()

	tracker := recency.NewTracker(storeClient, logger, recency.Options{
		TTL:       cfg.ContentTTL(),
		MaxTopics: cfg.RecentTopicsMax,
	})
	service := dedup.NewService(storeClient, logger, dedup.Options{
		ContentTTL: cfg.ContentTTL(),
		IntentTTL:  cfg.IntentTTL(),
		Topics:     tracker,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var unique []article.Article
	duplicates := 0
	for _, a := range articles {
		verdict := service.IsDuplicate(ctx, a, "")
		if verdict.Duplicate {
			duplicates++
			logger.Info().
				Str("url", a.URL).
				Str("reason", string(verdict.Reason)).
				Str("matched", verdict.MatchedFingerprint).
				Msg("duplicate article")
			continue
		}
		logger.Debug().
			Str("url", a.URL).
			Float64("best_score", verdict.BestScore).
			Float64("topic_similarity", tracker.TopicSimilarity(ctx, a)).
			Msg("unique article")
		unique = append(unique, a)
	}

	clusters := cluster.NewFirstMatch().Cluster(unique)
	for i, group := range clusters {
		fmt.Printf("cluster %d (%d articles):\n", i+1, len(group))
		for _, a := range group {
			fmt.Printf("  [%s] %s\n", a.Source, a.Title)
		}
	}

	stored := 0
	if *store {
		for _, group := range clusters {
			representative := group[0]
			service.MarkIntent(ctx, representative)
			if service.StoreContent(ctx, representative, "") {
				stored++
			}
			service.ClearIntent(ctx, representative)
		}
	}

	fmt.Printf(
		"check scanned=%d invalid=%d duplicates=%d unique=%d clusters=%d stored=%d\n",
		len(articles)+invalid,
		invalid,
		duplicates,
		len(unique),
		len(clusters),
		stored,
	)
	return 0
}

func loadArticles(dir string) ([]article.Article, int, error) {
	files, err := collectJSONFiles(dir, true)
	if err != nil {
		return nil, 0, err
	}

	var articles []article.Article
	invalid := 0
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			invalid++
			fmt.Fprintf(os.Stderr, "SKIP %s: read failed: %v\n", path, err)
			continue
		}

		payload, err := payloadschema.ValidateArticlePayload(json.RawMessage(raw))
		if err != nil {
			invalid++
			fmt.Fprintf(os.Stderr, "SKIP %s: %v\n", path, err)
			continue
		}

		articles = append(articles, payloadToArticle(payload))
	}
	return articles, invalid, nil
}

func payloadToArticle(payload *payloadschema.ArticlePayload) article.Article {
	a := article.Article{
		Title:       payload.Title,
		Description: payload.Description,
		URL:         payload.URL,
		Source:      payload.Source,
		Keywords:    payload.Keywords,
		Topic:       payload.Topic,
	}
	if ts := strings.TrimSpace(payload.PublishedAt); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			a.PublishedAt = parsed.UTC()
		}
	}
	return a
}

package cluster

import (
	"testing"

	"horse.fit/crier/internal/article"
)

func titles(cluster []article.Article) []string {
	out := make([]string, 0, len(cluster))
	for _, a := range cluster {
		out = append(out, a.Title)
	}
	return out
}

func TestCluster_EmptyBatch(t *testing.T) {
	t.Parallel()

	if got := NewFirstMatch().Cluster(nil); got != nil {
		t.Fatalf("expected nil for empty batch, got %v", got)
	}
}

func TestCluster_UnrelatedArticlesStaySingletons(t *testing.T) {
	t.Parallel()

	batch := []article.Article{
		{Title: "City council approves new park budget"},
		{Title: "Local bakery wins regional pastry award"},
		{Title: "High school robotics team reaches finals"},
	}

	clusters := NewFirstMatch().Cluster(batch)
	if len(clusters) != 3 {
		t.Fatalf("expected 3 singleton clusters, got %d: %v", len(clusters), clusters)
	}
	for i, cluster := range clusters {
		if len(cluster) != 1 {
			t.Fatalf("cluster %d not a singleton: %v", i, titles(cluster))
		}
		if cluster[0].Title != batch[i].Title {
			t.Fatalf("input order not preserved: cluster %d holds %q", i, cluster[0].Title)
		}
	}
}

func TestCluster_SameStoryByEntityOverlap(t *testing.T) {
	t.Parallel()

	batch := []article.Article{
		{Title: "Bitcoin ETF launch filed by BlackRock"},
		{Title: "BlackRock files new Bitcoin ETF paperwork"},
		{Title: "Ethereum gas fees drop 40% after upgrade"},
	}

	clusters := NewFirstMatch().Cluster(batch)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d: %v", len(clusters), clusters)
	}
	if len(clusters[0]) != 2 {
		t.Fatalf("expected the two BlackRock stories grouped, got %v", titles(clusters[0]))
	}
	if clusters[0][0].Title != batch[0].Title || clusters[0][1].Title != batch[1].Title {
		t.Fatalf("cluster member order not preserved: %v", titles(clusters[0]))
	}
	if len(clusters[1]) != 1 || clusters[1][0].Title != batch[2].Title {
		t.Fatalf("expected the Ethereum story alone, got %v", titles(clusters[1]))
	}
}

func TestCluster_SameStoryByTopicAndEntity(t *testing.T) {
	t.Parallel()

	batch := []article.Article{
		{
			Title: "SEC weighs new disclosure rules",
			Topic: "Regulation",
		},
		{
			Title: "Commissioners debate timing of sec disclosure vote",
			Topic: "regulation",
		},
	}

	clusters := NewFirstMatch().Cluster(batch)
	if len(clusters) != 1 || len(clusters[0]) != 2 {
		t.Fatalf("expected one cluster of two, got %v", clusters)
	}
}

func TestCluster_SameStoryByProjectAndEvent(t *testing.T) {
	t.Parallel()

	batch := []article.Article{
		{
			Title:       "Solana hit by another outage",
			Description: "Block production stopped for several hours overnight.",
		},
		{
			Title:       "Validators restart chain after downtime",
			Description: "The Solana outage lasted five hours before engineers restored block production.",
		},
		{
			Title: "Solana developers discuss fee markets at conference",
		},
	}

	clusters := NewFirstMatch().Cluster(batch)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if len(clusters[0]) != 2 {
		t.Fatalf("expected the outage pair grouped, got %v", titles(clusters[0]))
	}
	if len(clusters[1]) != 1 || clusters[1][0].Title != batch[2].Title {
		t.Fatalf("expected the fee-market story alone, got %v", titles(clusters[1]))
	}
}

func TestCluster_FirstMatchWins(t *testing.T) {
	t.Parallel()

	// The third article overlaps both earlier clusters on entities; it must
	// land in the first one it matches.
	batch := []article.Article{
		{Title: "Coinbase expands bitcoin custody services"},
		{Title: "Kraken launches ethereum staking product"},
		{Title: "Coinbase adds bitcoin staking for institutions"},
	}

	clusters := NewFirstMatch().Cluster(batch)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d: %v", len(clusters), clusters)
	}
	if len(clusters[0]) != 2 || clusters[0][1].Title != batch[2].Title {
		t.Fatalf("expected the third article joined to the first cluster, got %v", titles(clusters[0]))
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Porkelson/dnd-project/internal/catalog"
	"github.com/Porkelson/dnd-project/internal/config"
	"github.com/Porkelson/dnd-project/internal/engine"
	"github.com/Porkelson/dnd-project/internal/models"
	"github.com/Porkelson/dnd-project/internal/narrator"
)

type sessionReport struct {
	lines []string
	final models.PlayerState
}

func main() {
	sessions := flag.Int("sessions", 3, "number of independent sessions to play")
	maxTurns := flag.Int("turns", 10, "turns per session")
	seed := flag.Uint64("seed", 1, "base seed; session i uses seed+i")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		if cat, err = catalog.Load(cfg.CatalogPath); err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
	}

	prov, err := narrator.New(ctx, narrator.Options{
		Backend:        narrator.Backend(cfg.Narrator),
		GeminiAPIKey:   cfg.GeminiAPIKey,
		GeminiModel:    cfg.GeminiModel,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIModel:    cfg.OpenAIModel,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		RequestTimeout: cfg.NarrationTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create narrator: %v", err)
	}
	defer narrator.Close(prov)

	reports := make([]sessionReport, *sessions)
	g, ctx := errgroup.WithContext(ctx)
	for i := range *sessions {
		g.Go(func() error {
			s := *seed + uint64(i)
			eng, err := engine.New(cat, prov, engine.WithSeed(s), engine.WithTimeout(cfg.NarrationTimeout))
			if err != nil {
				return err
			}
			r, err := play(ctx, eng, rand.New(rand.NewPCG(s, s)), *maxTurns)
			if err != nil {
				return fmt.Errorf("session %d: %w", i, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	for i, r := range reports {
		fmt.Printf("=== Session %d (seed %d) ===\n", i, *seed+uint64(i))
		for _, l := range r.lines {
			fmt.Println(l)
		}
		fmt.Printf("Final tags: [%s]\n\n", strings.Join(r.final.Tags, ", "))
	}
}

// play picks events and choices at random until maxTurns or until nothing
// is eligible.
func play(ctx context.Context, eng *engine.Engine, rng *rand.Rand, maxTurns int) (sessionReport, error) {
	var r sessionReport
	for turn := 1; turn <= maxTurns; turn++ {
		ev, ok := eng.PickRandom(ctx)
		if !ok {
			r.lines = append(r.lines, "You have explored all available events.")
			break
		}
		idx := rng.IntN(len(ev.Choices))
		out, err := eng.Process(ctx, ev, idx)
		if err != nil {
			return r, err
		}
		r.lines = append(r.lines,
			fmt.Sprintf("--- Turn %d: %s [%s] ---", turn, ev.Title, ev.Category),
			fmt.Sprintf("Choice: %s", ev.Choices[idx]),
			fmt.Sprintf("Outcome: %s", out.Description),
		)

		follow := out.Choices[rng.IntN(len(out.Choices))]
		if err := eng.ResolveFollowUp(follow); err != nil {
			return r, err
		}
		r.lines = append(r.lines, fmt.Sprintf("Then: %s. %s", follow.Text, follow.Outcome))
	}
	r.final = eng.PlayerState()
	return r, nil
}

// Command game runs the adventure in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Porkelson/dnd-project/internal/catalog"
	"github.com/Porkelson/dnd-project/internal/config"
	"github.com/Porkelson/dnd-project/internal/engine"
	"github.com/Porkelson/dnd-project/internal/models"
	"github.com/Porkelson/dnd-project/internal/narrator"
	"github.com/Porkelson/dnd-project/internal/storage"
	"github.com/Porkelson/dnd-project/internal/tui"
)

const saveName = "current"

func main() {
	os.Exit(run())
}

func run() int {
	sessionID := flag.String("session", "", "resume a stored session by id (requires DB_PATH)")
	listSessions := flag.Bool("list", false, "list stored sessions, or saves in SAVE_DIR without DB_PATH, and exit")
	fresh := flag.Bool("new", false, "ignore the last save and start over")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		config.Exitf("game: %v", err)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "game: %v\n", err)
		return 1
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *storage.DB
	if cfg.DBPath != "" {
		db, err = storage.Open(cfg.DBPath)
		if err != nil {
			slog.Error("failed to open session database", "path", cfg.DBPath, "err", err)
			return 1
		}
		defer db.Close()
	}

	if *listSessions {
		if db == nil {
			return printSaves(cfg.SaveDir, os.Stdout)
		}
		return printSessions(ctx, db, os.Stdout)
	}

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			slog.Error("failed to load catalog", "path", cfg.CatalogPath, "err", err)
			return 1
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
		slog.Error("failed to create narrator", "backend", cfg.Narrator, "err", err)
		return 1
	}
	defer func() {
		if err := narrator.Close(prov); err != nil {
			slog.Warn("narrator close error", "err", err)
		}
	}()

	opts := []engine.Option{
		engine.WithTimeout(cfg.NarrationTimeout),
		engine.WithLogger(logger),
	}
	if cfg.Seed != 0 {
		opts = append(opts, engine.WithSeed(cfg.Seed))
	}

	id := *sessionID
	switch {
	case id != "":
		if db == nil {
			fmt.Fprintln(os.Stderr, "game: -session requires DB_PATH")
			return 1
		}
		sess, err := db.LoadSession(ctx, id)
		if err != nil {
			slog.Error("failed to load session", "session_id", id, "err", err)
			return 1
		}
		opts = append(opts, engine.WithState(sess.State))
		slog.Info("resuming session", "session_id", id, "name", sess.Name)
	case !*fresh:
		state, err := models.LoadState(cfg.SaveDir, saveName)
		switch {
		case err == nil:
			opts = append(opts, engine.WithState(state))
			slog.Info("resuming last save", "dir", cfg.SaveDir)
		case !errors.Is(err, fs.ErrNotExist):
			slog.Warn("ignoring unreadable save", "dir", cfg.SaveDir, "err", err)
		}
	}
	if id == "" {
		id = storage.NewSessionID()
	}

	eng, err := engine.New(cat, prov, opts...)
	if err != nil {
		slog.Error("failed to create engine", "err", err)
		return 1
	}

	slog.Info("game starting",
		"narrator", cfg.Narrator,
		"events", cat.Len(),
		"session_id", id,
	)

	saver := tui.SaverFunc(func(ctx context.Context, state models.PlayerState) error {
		if err := state.Save(cfg.SaveDir, saveName); err != nil {
			return err
		}
		if db != nil {
			return db.SaveSession(ctx, id, saveName, state)
		}
		return nil
	})

	if err := tui.Run(ctx, eng, saver, logger); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "game: %v\n", err)
		return 1
	}
	return 0
}

// newLogger writes to LOG_FILE when set. The terminal belongs to the UI, so
// without a file only warnings and errors are logged, to stderr.
func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	if cfg.LogFile == "" {
		level := max(cfg.LogLevel, slog.LevelWarn)
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.LogLevel}))
	return logger, func() { f.Close() }, nil
}

func printSessions(ctx context.Context, db *storage.DB, w io.Writer) int {
	sessions, err := db.ListSessions(ctx)
	if err != nil {
		slog.Error("failed to list sessions", "err", err)
		return 1
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No stored sessions.")
		return 0
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %s  level %d  %d tags  %s\n",
			s.ID, s.Name, s.State.Stats.Level, len(s.State.Tags), s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return 0
}

func printSaves(dir string, w io.Writer) int {
	saves, err := models.ListSaves(dir)
	if err != nil {
		slog.Error("failed to list saves", "dir", dir, "err", err)
		return 1
	}
	if len(saves) == 0 {
		fmt.Fprintln(w, "No saves.")
		return 0
	}
	for _, name := range saves {
		fmt.Fprintln(w, name)
	}
	return 0
}

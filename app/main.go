package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"toughturtle/app/config"
	"toughturtle/app/events"
	"toughturtle/app/server"
	"toughturtle/app/storage"
	"toughturtle/app/strava"
	"toughturtle/app/tg"
	"toughturtle/app/tracker"
	"toughturtle/app/utils"
	"toughturtle/app/verify"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	eventBuffer     = 256
	codeLedgerTTL   = time.Hour
	jwtIssuer       = "toughturtle"
	leaderboardFlag = "limit"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "toughturtle",
	Short: "Tough Turtle fitness tracker",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		setupLogger(cfg)
		return nil
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var resetDailyCmd = &cobra.Command{
	Use:   "reset-daily",
	Short: "Reset challenge progress of every user",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		tr, err := newTracker(store, events.Nop{})
		if err != nil {
			return err
		}
		n, err := tr.ResetAll(cmd.Context())
		slog.Info("daily reset finished", "users", n)
		return err
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Print the top turtles",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt(leaderboardFlag)
		if limit <= 0 {
			limit = cfg.LeaderboardSize
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		tr, err := newTracker(store, events.Nop{})
		if err != nil {
			return err
		}
		entries, err := tr.Leaderboard(cmd.Context(), limit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%3d. %-32s %6d XP  %s\n", e.Rank, e.Username, e.Experience, e.Stage)
		}
		return nil
	},
}

func init() {
	leaderboardCmd.Flags().Int(leaderboardFlag, 0, "number of entries (default LEADERBOARD_SIZE)")
	rootCmd.AddCommand(serveCmd, resetDailyCmd, leaderboardCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.IsProd() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func openStore() (*storage.SQLStore, error) {
	store := &storage.SQLStore{}
	if err := store.Connect(cfg.DBDriver, cfg.DBDSN); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.DBDriver, err)
	}
	return store, nil
}

func newTracker(store storage.Store, publisher events.Publisher) (*tracker.Tracker, error) {
	catalog, err := tracker.LoadCatalog(cfg.ChallengeCatalog)
	if err != nil {
		return nil, err
	}
	tr := tracker.New(store, publisher)
	tr.Catalog = catalog
	tr.Location = cfg.Location
	return tr, nil
}

// secret returns value, or a random one for local runs. Tokens signed with it die with the process.
func secret(name, value string) string {
	if value != "" {
		return value
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	slog.Warn("no secret configured, using an ephemeral one", "name", name)
	return hex.EncodeToString(b)
}

func serve(ctx context.Context) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	notifications := events.NewChannelPublisher(eventBuffer)
	publishers := events.Multi{notifications}
	if cfg.MQURL != "" {
		mq, err := events.NewAMQPPublisher(cfg.MQURL)
		if err != nil {
			return err
		}
		defer mq.Close()
		publishers = append(publishers, mq)
	}

	tr, err := newTracker(store, publishers)
	if err != nil {
		return err
	}

	vault, err := utils.NewVault(secret("SESSION_KEY", cfg.SessionKey))
	if err != nil {
		return err
	}
	jwt := utils.JWT{Key: []byte(secret("JWT_SECRET", cfg.JWTSecret)), Issuer: jwtIssuer}

	srv := &server.HttpHandler{
		Url:             cfg.URL,
		Port:            cfg.Port,
		Tracker:         tr,
		StravaScope:     cfg.StravaScope,
		Verifier:        verify.NewEngine(cfg.Location, cfg.WeekStart),
		JWT:             jwt,
		JWTTTL:          cfg.JWTTTL,
		Vault:           vault,
		TelegramBotName: cfg.TelegramBotName,
		LeaderboardSize: cfg.LeaderboardSize,
	}
	var ledger strava.CodeLedger
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		ledger = strava.NewRedisLedger(rdb, codeLedgerTTL)
	}
	if cfg.StravaEnabled() {
		srv.Strava = strava.NewStravaClient(cfg.StravaClientID, cfg.StravaClientSecret, cfg.StravaTimeout, ledger)
	} else {
		slog.Warn("strava credentials missing, strava endpoints are disabled")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })
	if cfg.TelegramAPIKey != "" {
		bot := tg.NewTelegramClient(cfg.TelegramAPIKey, tr, jwt, notifications.C)
		if ledger != nil {
			bot.Ledger = ledger
		}
		g.Go(func() error { return bot.Start(ctx) })
	} else {
		// without a bot nobody reads notifications; drain them so they are not counted as dropped
		g.Go(func() error { drain(ctx, notifications.C); return nil })
	}

	slog.Info("tough turtle is up", "env", cfg.Env, "url", cfg.URL)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("shut down cleanly")
	return nil
}

func drain(ctx context.Context, c <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-c:
			slog.Debug("event", "type", e.Type, "userID", e.UserID)
		}
	}
}

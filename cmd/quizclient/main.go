package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ip-05/quizzus-client/internal/client"
	"github.com/ip-05/quizzus-client/internal/config"
	"github.com/ip-05/quizzus-client/internal/game"
	"github.com/ip-05/quizzus-client/internal/rest"
	"github.com/ip-05/quizzus-client/internal/transport"
)

func main() {
	configFile := flag.String("config", "", "optional config file")
	inviteCode := flag.String("join", "", "invite code of the room to join")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Default()
	if err := config.Load(*configFile, cfg); err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if *inviteCode == "" {
		logger.Fatal("missing -join invite code")
	}

	ctx := context.Background()

	api := rest.New(cfg.Server.APIBase, cfg.Auth.Token, logger)
	me, err := api.Me(ctx)
	if err != nil {
		logger.Fatal("resolve identity", zap.Error(err))
	}
	logger.Info("authenticated", zap.Uint("id", me.ID), zap.String("name", me.Name))

	tr := transport.New(transport.Config{
		Endpoint:     cfg.Server.WSEndpoint,
		Token:        cfg.Auth.Token,
		PingInterval: cfg.Game.PingInterval,
		Logger:       logger,
	})

	c := client.New(ctx, client.Config{
		Transport: tr,
		Rest:      api,
		LocalUser: *me,
		Logger:    logger,
	})
	defer c.Close()

	if err := c.JoinRoom(*inviteCode); err != nil {
		logger.Fatal("join room", zap.Error(err))
	}

	snaps, unsubscribe := c.Subscribe(16)
	defer unsubscribe()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sig:
			_ = c.LeaveRoom()
			return

		case snap, ok := <-snaps:
			if !ok {
				return
			}
			printSnapshot(logger, snap)
		}
	}
}

func printSnapshot(logger *zap.Logger, snap client.Snapshot) {
	s := snap.State
	fields := []zap.Field{
		zap.Int("version", snap.Version),
		zap.Bool("connected", snap.Connected),
		zap.String("phase", string(s.Phase)),
		zap.Int("participants", len(s.Participants)),
	}
	if s.Question != nil {
		fields = append(fields, zap.String("question", s.Question.Name))
	}
	if s.Phase == game.PhaseGraph {
		counts := game.TallyCounts(s)
		fields = append(fields,
			zap.Ints("tally", counts),
			zap.Float64s("percents", game.TallyPercents(counts, game.DefaultFloorPercent)),
		)
	}
	if s.Countdown >= 0 {
		fields = append(fields, zap.Int("countdown", s.Countdown))
	}
	for _, e := range s.Leaderboard {
		fields = append(fields, zap.Float64("points:"+e.Name, e.Points))
	}
	logger.Info("state", fields...)
}

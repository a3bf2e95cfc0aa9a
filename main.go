package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shunskating/skate-server/internal/catalog"
	"github.com/shunskating/skate-server/internal/database"
	"github.com/shunskating/skate-server/internal/game"
	"github.com/shunskating/skate-server/internal/httpserver"
	"github.com/shunskating/skate-server/internal/store"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := catalog.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load trick catalog")
	}
	cat := catalog.Default()
	categories, tricks := cat.Stats()
	log.Info().Int("categories", categories).Int("tricks", tricks).Msg("catalog loaded")

	db, err := database.OpenAndMigrate(getEnv("DATABASE_PATH", "./data/skate.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	// RNG_SEED pins every coin toss and opponent roll; 0 seeds from the clock.
	seed, _ := strconv.ParseInt(getEnv("RNG_SEED", "0"), 10, 64)

	srv := httpserver.New(httpserver.ConfigFromEnv(), store.NewMemoryStore(), db, cat, game.NewRand(seed))
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting skate-server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/msl-practice/backend/internal/logger"
	"github.com/zhouzirui/msl-practice/backend/internal/model/persona"
	"github.com/zhouzirui/msl-practice/backend/internal/storage/postgres"
)

// seed 将内置的 persona 目录写入 Postgres，已存在的记录按 id 覆盖。
func main() {
	_ = godotenv.Load()
	logger.Setup(logger.Config{Level: "info", Format: "console"})

	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres 连接串，默认读取 DATABASE_URL")
	dryRun := flag.Bool("dry-run", false, "只打印将要写入的 persona")
	flag.Parse()

	catalog := persona.Seed()
	if *dryRun {
		for _, p := range catalog {
			log.Info().Str("id", p.ID).Str("name", p.Name).Str("specialty", p.Specialty).Msg("persona")
		}
		return
	}
	if *dsn == "" {
		log.Fatal().Msg("缺少 -dsn 或 DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Open(ctx, postgres.Config{DSN: *dsn})
	if err != nil {
		log.Fatal().Err(err).Msg("数据库连接失败")
	}
	defer db.Close()

	store := db.Personas()
	for _, p := range catalog {
		if err := store.Put(ctx, p); err != nil {
			log.Fatal().Err(err).Str("id", p.ID).Msg("写入 persona 失败")
		}
		log.Info().Str("id", p.ID).Str("name", p.Name).Msg("persona seeded")
	}
	log.Info().Int("count", len(catalog)).Msg("seed complete")
}

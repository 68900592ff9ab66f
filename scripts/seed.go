package main

import (
	"context"
	"os"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/viewingscheduler/internal/domain/entities"
	"github.com/zatekoja/viewingscheduler/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/viewingscheduler/internal/infrastructure/observability"
	"github.com/zatekoja/viewingscheduler/migrations"
	"github.com/zatekoja/viewingscheduler/pkg/config"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	observability.InitLogger("viewing-scheduler-seed", cfg.Environment, cfg.LogLevel)

	ctx := context.Background()

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer pgClient.Close()

	if err := migrations.Apply(ctx, pgClient.DB()); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		if _, err := pgClient.DB().ExecContext(ctx, `TRUNCATE TABLE appointments, agents RESTART IDENTITY CASCADE`); err != nil {
			log.Fatal().Err(err).Msg("Failed to reset tables")
		}
	}

	now := time.Now().UTC()
	agents := []entities.Agent{
		{ID: uuid.New().String(), Email: "sarah.mitchell@example.co.uk", FirstName: "Sarah", LastName: "Mitchell", IsActive: true},
		{ID: uuid.New().String(), Email: "james.okafor@example.co.uk", FirstName: "James", LastName: "Okafor", IsActive: true},
		{ID: uuid.New().String(), Email: "priya.shah@example.co.uk", FirstName: "Priya", LastName: "Shah", IsActive: true},
		{ID: uuid.New().String(), Email: "tom.reilly@example.co.uk", FirstName: "Tom", LastName: "Reilly", IsActive: false},
	}

	db := goqu.New("postgres", pgClient.DB())
	for _, a := range agents {
		query, args, err := db.Insert("agents").
			Rows(goqu.Record{
				"id":         a.ID,
				"email":      a.Email,
				"first_name": a.FirstName,
				"last_name":  a.LastName,
				"is_active":  a.IsActive,
				"created_at": now,
				"updated_at": now,
			}).
			OnConflict(goqu.DoNothing()).
			ToSQL()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build agent insert")
		}
		if _, err := pgClient.DB().ExecContext(ctx, query, args...); err != nil {
			log.Error().Err(err).Str("email", a.Email).Msg("Failed to create agent")
			continue
		}
		log.Info().Str("agent", a.FullName()).Bool("active", a.IsActive).Msg("Seeded agent")
	}

	log.Info().Int("agents", len(agents)).Msg("Seeding complete")
}

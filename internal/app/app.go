package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/doglog/doglog/internal/ai"
	"github.com/doglog/doglog/internal/config"
	"github.com/doglog/doglog/internal/db"
	"github.com/doglog/doglog/internal/repository"
	"github.com/doglog/doglog/internal/service"
	"github.com/doglog/doglog/internal/storage"
	"github.com/jmoiron/sqlx"
)

type App struct {
	Cfg               *config.Config
	DB                *sqlx.DB
	EventService      *service.EventService
	GoalService       *service.GoalService
	StepService       *service.StepService
	GenerationService *service.StepGenerationService
	SuggestionService *service.SuggestionService
	ExportService     *service.ExportService
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	if cfg.DBMigrate {
		err = db.RunMigrations(database.DB, cfg.DBDriver)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to run migrations: %v", err)
		}
	}

	a, err := NewWithDB(ctx, cfg, database)
	if err != nil {
		database.Close()
		return nil, err
	}
	return a, nil
}

// NewWithDB wires the app around an open, migrated database.
func NewWithDB(ctx context.Context, cfg *config.Config, database *sqlx.DB) (*App, error) {
	// Repositories
	txRunner := repository.NewTxRunner(database)
	eventRepository := repository.NewEventRepository(database)
	goalRepository := repository.NewGoalRepository(database)
	goalStepRepository := repository.NewGoalStepRepository(database)
	goalAttemptRepository := repository.NewGoalAttemptRepository(database)
	goalSuggestionRepository := repository.NewGoalSuggestionRepository(database)
	aiRunRepository := repository.NewAIRunRepository(database)

	// Storage
	var archiveStorage storage.Storage
	if cfg.StorageEnabled() {
		s, err := storage.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %v", err)
		}
		archiveStorage = s
	} else {
		slog.Info("export archive storage disabled", "hint", "set S3_BUCKET to enable")
	}

	// AI
	var planner service.StepPlanner
	var suggester service.GoalSuggester
	if cfg.OpenAIAPIKey != "" {
		client, err := ai.NewClient(ai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.OpenAITimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AI client: %v", err)
		}

		p, err := ai.NewPlanner(client)
		if err != nil {
			return nil, fmt.Errorf("failed to load step prompt: %v", err)
		}
		picker, err := ai.NewPicker(client)
		if err != nil {
			return nil, fmt.Errorf("failed to load suggestion prompt: %v", err)
		}
		planner = p
		suggester = picker
	} else {
		slog.Info("OPENAI_API_KEY not set, using fallback plans and suggestions")
	}

	// Services
	eventService := service.NewEventService(eventRepository, txRunner)
	goalService := service.NewGoalService(goalRepository, goalStepRepository, txRunner)
	stepService := service.NewStepService(goalStepRepository, goalAttemptRepository, txRunner)
	generationService := service.NewStepGenerationService(goalService, aiRunRepository, planner)
	suggestionService := service.NewSuggestionService(goalService, goalSuggestionRepository, suggester, cfg.Location())
	exportService := service.NewExportService(goalService, eventRepository, archiveStorage)

	return &App{
		Cfg:               cfg,
		DB:                database,
		EventService:      eventService,
		GoalService:       goalService,
		StepService:       stepService,
		GenerationService: generationService,
		SuggestionService: suggestionService,
		ExportService:     exportService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/voltrip/internal/adapters/bolt"
	"github.com/samirrijal/voltrip/internal/adapters/directions"
	natsadapter "github.com/samirrijal/voltrip/internal/adapters/nats"
	"github.com/samirrijal/voltrip/internal/adapters/postgres"
	"github.com/samirrijal/voltrip/internal/core/domain"
	"github.com/samirrijal/voltrip/internal/core/ports"
	"github.com/samirrijal/voltrip/internal/core/usecases"
	"github.com/samirrijal/voltrip/internal/pkg/config"
	"github.com/samirrijal/voltrip/internal/pkg/logging"
	"github.com/samirrijal/voltrip/internal/workflows"
)

func main() {
	cfg, err := config.Load("voltrip-surveyor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, "voltrip-surveyor")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	var directory ports.ChargerDirectory
	if cfg.Chargers.Source == "postgres" {
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		directory = postgres.NewChargerRepo(db)
	} else {
		directory = bolt.New(bolt.Options{
			BaseURL:   cfg.Chargers.BaseURL,
			AppToken:  cfg.Chargers.AppToken,
			AuthToken: cfg.Chargers.AuthToken,
			Timeout:   cfg.Chargers.QueryTimeout(),
		})
	}

	// Results go back over NATS; requests arrive on the work queue stream.
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.CorridorSurveyWorkflow)
	w.RegisterActivity(&workflows.SurveyActivities{
		Provider:  directions.New(cfg.Directions.BaseURL, cfg.Directions.APIKey, cfg.Route.RouteTimeout()),
		Directory: usecases.NewDirectoryService(directory, nil, 0, cfg.Chargers.QueryTimeout()),
		Publisher: pub,
	})

	err = sub.SubscribeSurveyRequests(ctx, func(ctx context.Context, req domain.SurveyRequest) error {
		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        "survey-" + uuid.NewString(),
			TaskQueue: cfg.Temporal.TaskQueue,
		}, workflows.CorridorSurveyWorkflow, req)
		if err != nil {
			slog.Error("start survey workflow", "error", err)
			return err
		}
		slog.Info("survey workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe survey requests: %v", err)
	}

	slog.Info("surveyor worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

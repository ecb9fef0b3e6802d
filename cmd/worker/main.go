package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-bakery-orderflow/internal/app"
	"github.com/imrishuroy/go-bakery-orderflow/internal/aws"
	"github.com/imrishuroy/go-bakery-orderflow/internal/config"
	"github.com/imrishuroy/go-bakery-orderflow/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	processor := app.NewProcessor(cfg, clients, app.NewOrderStore(cfg, clients), logger)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if cfg.RunLocal {
		v := viper.New()
		v.AutomaticEnv()
		v.SetDefault("local_sqs_body", `{"order_id":"local-order-1","reason":"created"}`)
		event := events.SQSEvent{
			Records: []events.SQSMessage{{MessageId: "local-1", Body: v.GetString("local_sqs_body")}},
		}
		resp, err := processor.Handle(context.Background(), event)
		if err != nil {
			logger.Fatal("local handler error", zap.Error(err))
		}
		logger.Info("local event processed", zap.Int("failures", len(resp.BatchItemFailures)))
		return
	}

	lambda.Start(processor.Handle)
}

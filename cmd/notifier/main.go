package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"

	"github.com/minicrm/crm-api/internal/infrastructure/config"
	"github.com/minicrm/crm-api/internal/infrastructure/notify"
	"github.com/minicrm/crm-api/internal/infrastructure/queue"
	"github.com/minicrm/crm-api/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadNotifier(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{})
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "crm-notifier",
	})

	// --- SMTP ---
	opts := []mail.Option{
		mail.WithPort(cfg.SMTP.Port),
		mail.WithTimeout(cfg.SMTP.DialTimeout),
	}
	if cfg.SMTP.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTP.Username),
			mail.WithPassword(cfg.SMTP.Password),
		)
	}
	if cfg.SMTP.SSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.SMTP.Host, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create mail client")
	}

	// --- RabbitMQ ---
	conn, err := amqp.Dial(cfg.RabbitMQ)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to rabbitmq")
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open channel")
	}
	defer ch.Close()

	q, err := queue.DeclareNotificationsQueue(ch)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to declare notifications queue")
	}
	if err := ch.Qos(1, 0, false); err != nil {
		log.Fatal().Err(err).Msg("failed to set prefetch")
	}

	deliveries, err := ch.Consume(
		q.Name,
		"",    // consumer tag assigned by the broker
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to consume")
	}

	log.Info().Str("queue", q.Name).Msg("notifier started")
	notify.New(client, cfg.SMTP.From, log).Consume(ctx, deliveries)
	log.Info().Msg("notifier stopped")
}

package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suchimauz/clinic-availability-resolver/internal/config"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/in"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
)

// AppointmentListener consumes appointment lifecycle events from the clinic
// bus and drops the affected patient's cached history, so the next resolution
// sees the new appointment.
type AppointmentListener struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	useCase in.ScheduleResolverUseCase
	cfg     *config.Config
	logger  out.LoggerPort
}

// Routing key: clinic.appointment.<event>, e.g. clinic.appointment.booked
type AppointmentEventMessage struct {
	AppointmentCode string `json:"appointmentCode"`
	PatientCode     string `json:"patientCode"`
	Status          string `json:"status"`
}

func NewAppointmentListener(useCase in.ScheduleResolverUseCase, cfg *config.Config, logger out.LoggerPort) (*AppointmentListener, error) {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("rabbitmq.disabled", out.LogFields{
			"message": "RabbitMQ is disabled, listener will not be started",
		})
		return nil, nil
	}

	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Error("rabbitmq.connect.failed", out.LogFields{
			"error": err.Error(),
			"url":   cfg.RabbitMQ.URL,
		})
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		logger.Error("rabbitmq.channel.failed", out.LogFields{
			"error": err.Error(),
		})
		return nil, err
	}

	return &AppointmentListener{
		conn:    conn,
		channel: channel,
		useCase: useCase,
		cfg:     cfg,
		logger:  logger.WithModule("AppointmentListener"),
	}, nil
}

func (l *AppointmentListener) Start(ctx context.Context) error {
	queue, err := l.channel.QueueDeclare(
		l.cfg.RabbitMQ.Queue,
		true,  // durable
		true,  // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return err
	}
	err = l.channel.QueueBind(
		queue.Name,
		l.cfg.RabbitMQ.Bind,
		l.cfg.RabbitMQ.Exchange,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	msgs, err := l.channel.Consume(
		queue.Name,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return err
	}

	go l.consume(ctx, msgs)

	l.logger.Info("appointment.queue.started", out.LogFields{
		"queue": queue.Name,
	})

	return nil
}

func (l *AppointmentListener) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			// A closed delivery channel means the broker connection is gone
			if !ok {
				l.logger.Warn("appointment.queue.closed", out.LogFields{
					"queue": l.cfg.RabbitMQ.Queue,
				})
				return
			}
			if err := l.processMessage(ctx, msg); err != nil {
				msg.Nack(false, true) // requeue message
				continue
			}
			msg.Ack(false)
		}
	}
}

func (l *AppointmentListener) processMessage(ctx context.Context, msg amqp.Delivery) error {
	var event AppointmentEventMessage
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		// Malformed message, requeueing would loop forever
		l.logger.Warn("appointment.message.malformed", out.LogFields{
			"error":     err.Error(),
			"msgString": string(msg.Body),
		})
		return nil
	}

	if event.PatientCode == "" {
		return nil
	}

	l.logger.Info("appointment.message.received", out.LogFields{
		"routingKey":      msg.RoutingKey,
		"appointmentCode": event.AppointmentCode,
		"patientCode":     event.PatientCode,
		"status":          event.Status,
	})

	return l.useCase.InvalidatePatientHistory(ctx, event.PatientCode)
}

func (l *AppointmentListener) Stop() error {
	if l == nil || l.channel == nil {
		return nil
	}

	if err := l.channel.Close(); err != nil {
		return err
	}
	return l.conn.Close()
}

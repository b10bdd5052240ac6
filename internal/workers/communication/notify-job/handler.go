// internal/workers/communication/notify-job/handler.go
package notifyjob

import (
	"context"
	"strings"
	"time"

	"collision-site/internal/common/config"
	"collision-site/internal/common/errors"
	"collision-site/internal/common/logger"
	"collision-site/internal/common/metrics"
	notifydispatch "collision-site/internal/workers/communication/notify-dispatch"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	DefaultTaskType = "site-notify"
	defaultTimeout  = 30 * time.Second
)

type Config struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

func ConfigFromApp(cfg *config.Config) *Config {
	c := &Config{
		TaskType:      cfg.Camunda.TaskType,
		MaxJobsActive: cfg.Camunda.MaxJobsActive,
		Timeout:       config.GetDuration(cfg.Camunda.Timeout),
	}
	if c.TaskType == "" {
		c.TaskType = DefaultTaskType
	}
	if c.MaxJobsActive <= 0 {
		c.MaxJobsActive = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// Output is written back to the process instance.
type Output struct {
	NotificationSent bool   `json:"notificationSent"`
	NotificationType string `json:"notificationType"`
	SentAt           string `json:"sentAt"`
}

// Handler sends operator notifications for BPMN service tasks whose
// variables are {type, data}.
type Handler struct {
	config       *Config
	dispatcher   notifydispatch.Dispatcher
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
	now          func() time.Time
}

func NewHandler(cfg *Config, dispatcher notifydispatch.Dispatcher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": cfg.TaskType})
	return &Handler{
		config:       cfg,
		dispatcher:   dispatcher,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
		now:          time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(h.config.TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(h.config.TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, job.Variables)
	metrics.WorkerJobDuration.WithLabelValues(h.config.TaskType).Observe(time.Since(start).Seconds())
	if err != nil {
		code := "UNKNOWN"
		if stdErr, ok := errors.As(err); ok {
			code = string(stdErr.Code)
		}
		metrics.WorkerJobsFailed.WithLabelValues(h.config.TaskType, code).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return nil
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		return err
	}
	if _, err := cmd.Send(ctx); err != nil {
		return err
	}

	metrics.WorkerJobsCompleted.WithLabelValues(h.config.TaskType).Inc()
	h.logger.Info("job completed successfully", map[string]interface{}{"jobKey": job.Key})
	return nil
}

// Execute decodes job variables and dispatches the notification. Variables
// are checked exactly like an /api/notify body.
func (h *Handler) Execute(ctx context.Context, variables string) (*Output, error) {
	req, err := notifydispatch.DecodeRequest(strings.NewReader(variables))
	if err != nil {
		return nil, err
	}
	if err := h.dispatcher.Dispatch(ctx, req); err != nil {
		return nil, err
	}
	return &Output{
		NotificationSent: true,
		NotificationType: string(req.Kind),
		SentAt:           h.now().UTC().Format(time.RFC3339),
	}, nil
}

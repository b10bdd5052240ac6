// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"collision-site/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

const workerName = "collision-site"

// JobHandler reports an error only for failures it could not hand back to
// the broker itself.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job) error
}

// WorkerConfig controls job activation for one task type.
type WorkerConfig struct {
	TaskType      string
	MaxJobsActive int
	// Timeout is how long an activated job stays locked to this worker.
	Timeout time.Duration
}

type CamundaWorker struct {
	worker worker.JobWorker
	logger logger.Logger
}

func NewWorker(client zbc.Client, cfg WorkerConfig, handler JobHandler, log logger.Logger) *CamundaWorker {
	log = log.WithFields(map[string]interface{}{"taskType": cfg.TaskType})

	step := client.NewJobWorker().
		JobType(cfg.TaskType).
		Handler(func(client worker.JobClient, job entities.Job) {
			if err := handler.Handle(client, job); err != nil {
				log.Error("Handler returned error", map[string]interface{}{
					"error":  err.Error(),
					"jobKey": job.Key,
				})
			}
		}).
		Name(workerName).
		MaxJobsActive(cfg.MaxJobsActive)
	if cfg.Timeout > 0 {
		step = step.Timeout(cfg.Timeout)
	}
	jobWorker := step.Open()

	log.Info("worker started", map[string]interface{}{"maxJobsActive": cfg.MaxJobsActive})

	return &CamundaWorker{worker: jobWorker, logger: log}
}

// Stop waits for in-flight jobs. The Zeebe client is owned by the caller.
func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}

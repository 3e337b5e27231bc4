package schedule

import "context"

// Job is a periodic task run by the infrastructure scheduler.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

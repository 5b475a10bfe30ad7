package framework

import "context"

type taskContextKey struct{}

// TaskContext carries request metadata through contexts so telemetry from the
// model clients and tools can be correlated to a single question.
type TaskContext struct {
	ID       string
	Question string
	Source   string
}

// WithTaskContext attaches task metadata to the context.
func WithTaskContext(ctx context.Context, task TaskContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, taskContextKey{}, task)
}

// TaskContextFrom extracts task metadata, if present.
func TaskContextFrom(ctx context.Context) (TaskContext, bool) {
	if ctx == nil {
		return TaskContext{}, false
	}
	val := ctx.Value(taskContextKey{})
	task, ok := val.(TaskContext)
	return task, ok
}

// TaskID returns the task id stored in ctx, or an empty string.
func TaskID(ctx context.Context) string {
	task, _ := TaskContextFrom(ctx)
	return task.ID
}

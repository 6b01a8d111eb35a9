package queue

import "context"

// Task 一条后台任务：稳定的类型名加不透明的负载字节。
type Task struct {
	Type    string
	Payload []byte
}

// Handler 处理一条任务，返回非 nil 错误时按后端策略重试，必须幂等。
type Handler func(ctx context.Context, task Task) error

// Client 投递任务。
type Client interface {
	Enqueue(ctx context.Context, t Task) error
	Close() error
}

// Server 消费任务，Run 阻塞到 ctx 取消为止。
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
}

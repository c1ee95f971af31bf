// 包 eventloop：单线程任务循环，为每个地图会话提供“下一轮执行”的调度语义
package eventloop

import (
	"context"
	"errors"
	"sync"

	"github.com/plutoqz/ruoyi-f/internal/logger"
)

// ErrClosed：循环已关闭，不再接收任务
var ErrClosed = errors.New("event loop closed")

// 文档注释：单线程任务循环
// 背景：地图引擎的事件分发与工具重建必须串行，且清理动作需推迟到当前回调返回之后；
// Post 把任务排到下一轮，Run 在单个 goroutine 上按 FIFO 执行。
// 约束：同一时刻只允许一个 Run；任务内 panic 被捕获并记录，不会终止循环；
// 不在任务内部调用 Do（同一 goroutine 等待自身会死锁）。
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	running bool
	closed  bool
}

func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post：将任务排入下一轮；循环关闭后返回 false
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Len：待执行任务数
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// 文档注释：运行循环直到 ctx 取消或 Close
// 约束：每一轮只执行进入该轮时已排队的任务，本轮内新投递的任务留到下一轮。
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("event loop already running")
	}
	l.running = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()
	for {
		if l.Turn() == 0 {
			l.mu.Lock()
			closed := l.closed && len(l.queue) == 0
			l.mu.Unlock()
			if closed {
				return ErrClosed
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-l.wake:
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// Turn：执行一轮（当前队列快照），返回执行数量
func (l *Loop) Turn() int {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()
	for _, fn := range batch {
		l.exec(fn)
	}
	return len(batch)
}

// 文档注释：在调用方 goroutine 中排空队列
// 背景：CLI 与测试没有常驻 Run 时，用它推进所有待执行轮次。
// 约束：有 Run 在执行时不要调用；返回总执行数量。
func (l *Loop) Flush() int {
	n := 0
	for i := 0; i < maxFlushTurns; i++ {
		c := l.Turn()
		if c == 0 {
			return n
		}
		n += c
	}
	logger.L().Warn("loop_flush_truncated", "turns", maxFlushTurns)
	return n
}

// 连续重新投递的任务（如持续绘制的重建）不能让 Flush 无限运行
const maxFlushTurns = 1024

// 文档注释：在循环上执行 fn 并等待其返回
// 背景：HTTP 处理器等外部 goroutine 通过它串行访问适配器。
// 约束：没有 Run 时 fn 在调用方直接执行，随后推进一轮；ctx 取消时返回 ctx.Err()，fn 仍可能稍后执行。
func (l *Loop) Do(ctx context.Context, fn func()) error {
	l.mu.Lock()
	running := l.running
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if !running {
		l.exec(fn)
		l.Turn()
		return nil
	}
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close：停止接收新任务；已排队任务仍会在 Run 中执行完
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.L().Error("loop_task_panic", "panic", r)
		}
	}()
	fn()
}

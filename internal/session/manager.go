// 包 session：在线地图会话登记表
package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plutoqz/ruoyi-f/internal/eventloop"
	"github.com/plutoqz/ruoyi-f/internal/logger"
	"github.com/plutoqz/ruoyi-f/internal/mapadapter"
	"github.com/plutoqz/ruoyi-f/internal/metrics"
	"github.com/plutoqz/ruoyi-f/internal/sdkloader"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
)

// Config：会话管理参数
type Config struct {
	Credentials map[sdkloader.Provider]sdkloader.Credentials
	Loader      *sdkloader.Loader
	BaseMap     string
	IdleTTL     time.Duration
	MaxSessions int
}

// 文档注释：会话管理器
// 背景：负责会话创建、查找、关闭与空闲回收；HTTP 层只持有会话编号。
// 约束：空闲超时默认 30 分钟；上限默认 64；线程安全读写。
type Manager struct {
	mu  sync.RWMutex
	ss  map[string]*Session
	cfg Config
	now func() time.Time
}

func NewManager(cfg Config) *Manager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 64
	}
	return &Manager{ss: make(map[string]*Session), cfg: cfg, now: time.Now}
}

// 文档注释：创建会话并初始化适配器
// 背景：初始化在循环启动前于调用方 goroutine 完成，随后循环 goroutine 接管。
// 返回：未知服务商返回 mapadapter.ErrUnknownProvider；初始化失败时会话不登记。
func (m *Manager) Create(ctx context.Context, p sdkloader.Provider, v mapadapter.MapView) (*Session, error) {
	m.mu.RLock()
	n := len(m.ss)
	m.mu.RUnlock()
	if n >= m.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}
	id := uuid.NewString()
	lp := eventloop.New()
	a, err := mapadapter.New(p, "session-"+id, mapadapter.Options{
		Credentials: m.cfg.Credentials[p],
		Loader:      m.cfg.Loader,
		Loop:        lp,
		BaseMap:     m.cfg.BaseMap,
	})
	if err != nil {
		return nil, err
	}
	var ierr error
	if err := lp.Do(ctx, func() { _, ierr = a.Init(ctx, v) }); err != nil {
		return nil, err
	}
	if ierr != nil {
		a.Destroy()
		lp.Close()
		return nil, ierr
	}
	runCtx, cancel := context.WithCancel(context.Background())
	now := m.now()
	s := &Session{
		id:       id,
		provider: p,
		adapter:  a,
		loop:     lp,
		cancel:   cancel,
		done:     make(chan struct{}),
		created:  now,
		lastUsed: now,
		state:    a.State().String(),
	}
	go func() {
		defer close(s.done)
		if err := lp.Run(runCtx); err != nil && !errors.Is(err, eventloop.ErrClosed) && !errors.Is(err, context.Canceled) {
			logger.L().Error("session_loop_error", "id", id, "err", err)
		}
	}()
	m.mu.Lock()
	m.ss[id] = s
	metrics.SessionsActive.Set(float64(len(m.ss)))
	m.mu.Unlock()
	logger.L().Info("session_created", "id", id, "provider", string(p))
	return s, nil
}

// Get：按编号查找会话
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.ss[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Close：关闭并注销会话
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.ss[id]
	if ok {
		delete(m.ss, id)
		metrics.SessionsActive.Set(float64(len(m.ss)))
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.close()
	logger.L().Info("session_closed", "id", id)
	return nil
}

// List：按创建时间排序的会话概要
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.ss))
	for _, s := range m.ss {
		out = append(out, s.Info())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

// Len：在线会话数
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ss)
}

// 文档注释：启动空闲回收循环
// 背景：周期性关闭超过 IdleTTL 未访问的会话；在 ctx 取消时停止并关闭全部会话。
func (m *Manager) Start(ctx context.Context) {
	iv := m.cfg.IdleTTL / 2
	if iv > time.Minute {
		iv = time.Minute
	}
	t := time.NewTicker(iv)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				m.Shutdown()
				return
			case <-t.C:
				m.sweep()
			}
		}
	}()
}

// sweep：关闭空闲会话，返回关闭数量
func (m *Manager) sweep() int {
	now := m.now()
	var idle []string
	m.mu.RLock()
	for id, s := range m.ss {
		if s.idleSince(now) >= m.cfg.IdleTTL {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()
	n := 0
	for _, id := range idle {
		if m.Close(id) == nil {
			logger.L().Info("session_expired", "id", id)
			n++
		}
	}
	return n
}

// Shutdown：关闭全部会话
func (m *Manager) Shutdown() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.ss))
	for id := range m.ss {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		_ = m.Close(id)
	}
}

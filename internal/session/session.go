package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/plutoqz/ruoyi-f/internal/eventloop"
	"github.com/plutoqz/ruoyi-f/internal/mapadapter"
	"github.com/plutoqz/ruoyi-f/internal/sdkloader"
)

var (
	ErrGestureUnsupported = errors.New("adapter does not support simulated gestures")
	ErrThemeUnsupported   = errors.New("adapter does not support theme switching")
	ErrBadGesture         = errors.New("invalid gesture")
)

// 事件类型
const (
	EventBoxSelect   = "box_select"
	EventPolygonDraw = "polygon_draw"
)

// 收件箱上限，超出时丢弃最旧事件
const inboxLimit = 256

// Event：适配器回调产出，按发生顺序编号
type Event struct {
	Seq      int64                        `json:"seq"`
	Kind     string                       `json:"kind"`
	At       time.Time                    `json:"at"`
	Features []mapadapter.SelectedFeature `json:"features,omitempty"`
	Geometry *geojson.FeatureCollection   `json:"geometry,omitempty"`
}

// Info：会话概要
type Info struct {
	ID       string             `json:"id"`
	Provider sdkloader.Provider `json:"provider"`
	State    string             `json:"state"`
	Created  time.Time          `json:"created"`
	LastUsed time.Time          `json:"lastUsed"`
}

// 文档注释：单个地图会话
// 背景：一个适配器独占一个事件循环；外部 goroutine 只能经 Do 访问适配器。
// 约束：回调在循环 goroutine 上执行，只写收件箱；收件箱与时间戳由 mu 保护。
type Session struct {
	id       string
	provider sdkloader.Provider
	adapter  mapadapter.Adapter
	loop     *eventloop.Loop
	cancel   context.CancelFunc
	done     chan struct{}
	created  time.Time

	mu       sync.Mutex
	lastUsed time.Time
	seq      int64
	inbox    []Event
	closed   bool
	// state 为适配器状态快照，只在循环上刷新
	state string
}

func (s *Session) ID() string                   { return s.id }
func (s *Session) Provider() sdkloader.Provider { return s.provider }

// Info：会话概要快照
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{ID: s.id, Provider: s.provider, State: s.state, Created: s.created, LastUsed: s.lastUsed}
}

func (s *Session) setState(st mapadapter.State) {
	s.mu.Lock()
	s.state = st.String()
	s.mu.Unlock()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastUsed)
}

// 文档注释：在会话循环上访问适配器
// 返回：fn 的错误优先；循环已关闭时为 eventloop.ErrClosed。
func (s *Session) Do(ctx context.Context, fn func(a mapadapter.Adapter) error) error {
	s.touch()
	var ferr error
	if err := s.loop.Do(ctx, func() {
		ferr = fn(s.adapter)
		s.setState(s.adapter.State())
	}); err != nil {
		return err
	}
	return ferr
}

func (s *Session) push(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	ev.Seq = s.seq
	ev.At = time.Now()
	s.inbox = append(s.inbox, ev)
	if len(s.inbox) > inboxLimit {
		s.inbox = append([]Event(nil), s.inbox[len(s.inbox)-inboxLimit:]...)
	}
}

// 文档注释：读取收件箱中序号大于 after 的事件
// 约束：drain 为 true 时清空收件箱。
func (s *Session) Events(after int64, drain bool) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, 0, len(s.inbox))
	for _, ev := range s.inbox {
		if ev.Seq > after {
			out = append(out, ev)
		}
	}
	if drain {
		s.inbox = nil
	}
	return out
}

// EnableBoxSelect：开启框选，结果写入收件箱
func (s *Session) EnableBoxSelect(ctx context.Context) error {
	return s.Do(ctx, func(a mapadapter.Adapter) error {
		return a.EnableBoxSelect(func(fs []mapadapter.SelectedFeature) {
			s.push(Event{Kind: EventBoxSelect, Features: fs})
		})
	})
}

// EnablePolygonDraw：开启连续绘制，每个多边形写入收件箱
func (s *Session) EnablePolygonDraw(ctx context.Context) error {
	return s.Do(ctx, func(a mapadapter.Adapter) error {
		return a.EnablePolygonDraw(func(fc *geojson.FeatureCollection) {
			s.push(Event{Kind: EventPolygonDraw, Geometry: fc})
		})
	})
}

// Popup：当前弹窗，未打开时为 nil
func (s *Session) Popup(ctx context.Context) (*mapadapter.Popup, error) {
	var p *mapadapter.Popup
	err := s.Do(ctx, func(a mapadapter.Adapter) error {
		if cur := a.Popup(); cur != nil {
			cp := *cur
			cp.Lines = append([]string(nil), cur.Lines...)
			p = &cp
		}
		return nil
	})
	return p, err
}

// SetTheme：切换底图主题（仅支持主题的实现）
func (s *Session) SetTheme(ctx context.Context, theme string) error {
	return s.Do(ctx, func(a mapadapter.Adapter) error {
		th, ok := a.(mapadapter.Themer)
		if !ok {
			return ErrThemeUnsupported
		}
		return th.SetTheme(theme)
	})
}

// Gesture：模拟手势，坐标为 WGS84 [lng, lat]
type Gesture struct {
	Kind        string       `json:"kind"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// 文档注释：在会话上回放手势
// 约束：rectangle 需 2 个角点；click 需 1 个点；polygon 至少 3 个顶点。
func (s *Session) Gesture(ctx context.Context, g Gesture) error {
	return s.Do(ctx, func(a mapadapter.Adapter) error {
		sim, ok := a.(mapadapter.Simulator)
		if !ok {
			return ErrGestureUnsupported
		}
		switch g.Kind {
		case "rectangle":
			if len(g.Coordinates) != 2 {
				return ErrBadGesture
			}
			return sim.SimulateRectangle(g.Coordinates[0], g.Coordinates[1])
		case "polygon":
			if len(g.Coordinates) < 3 {
				return ErrBadGesture
			}
			return sim.SimulatePolygon(g.Coordinates)
		case "click":
			if len(g.Coordinates) != 1 {
				return ErrBadGesture
			}
			return sim.SimulateClick(g.Coordinates[0])
		}
		return ErrBadGesture
	})
}

// 文档注释：销毁适配器并停止循环
// 约束：可重复调用；等待循环 goroutine 退出。
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.loop.Do(ctx, func() {
		s.adapter.Destroy()
		s.setState(s.adapter.State())
	})
	s.loop.Close()
	s.cancel()
	<-s.done
}

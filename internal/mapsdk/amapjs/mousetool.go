package amapjs

import (
	"errors"

	"github.com/paulmach/orb"

	"github.com/plutoqz/ruoyi-f/internal/mapsdk"
)

// 文档注释：在 draw 事件分发过程中关闭工具
// 背景：高德 MouseTool 在自身 draw 回调里同步 close 会破坏内部状态，之后该工具不再响应任何手势；
// 调用方必须把清理推迟到下一轮。
var ErrToolReentrant = errors.New("mousetool closed inside its own draw dispatch")

// DrawEvent：绘制完成事件，Obj 为 *Rectangle 或 *Polygon
type DrawEvent struct {
	Obj Overlay
}

const (
	modeRectangle = "rectangle"
	modePolygon   = "polygon"
)

// 文档注释：鼠标绘制工具
// 约束：一次只处于一种模式；Close 后不可再用，需重新构造。
type MouseTool struct {
	m      *Map
	mode   string
	opts   PolygonOptions
	ev     mapsdk.Emitter
	drawn  []Overlay
	closed bool
	broken bool
}

func NewMouseTool(m *Map) *MouseTool {
	t := &MouseTool{m: m}
	if m != nil && !m.destroyed {
		m.tools = append(m.tools, t)
	}
	return t
}

// Rectangle：进入矩形绘制模式
func (t *MouseTool) Rectangle(o PolygonOptions) { t.arm(modeRectangle, o) }

// Polygon：进入多边形绘制模式
func (t *MouseTool) Polygon(o PolygonOptions) { t.arm(modePolygon, o) }

func (t *MouseTool) arm(mode string, o PolygonOptions) {
	if t.closed || t.broken {
		return
	}
	t.mode = mode
	t.opts = o
}

func (t *MouseTool) On(name string, fn mapsdk.Handler) int { return t.ev.On(name, fn) }
func (t *MouseTool) Off(name string, id int)               { t.ev.Off(name, id) }

// Active：可以接收手势
func (t *MouseTool) Active() bool { return !t.closed && !t.broken && t.mode != "" }

// Broken：是否因重入关闭而失效
func (t *MouseTool) Broken() bool { return t.broken }

// 文档注释：关闭工具
// 参数：clear 为 true 时同时移除本工具绘制的覆盖物。
// 返回：在 draw 分发中调用时返回 ErrToolReentrant，工具随即失效。
func (t *MouseTool) Close(clear bool) error {
	if t.ev.Dispatching("draw") {
		t.broken = true
		return ErrToolReentrant
	}
	if t.closed {
		return nil
	}
	if clear && t.m != nil {
		t.m.Remove(t.drawn...)
	}
	t.drawn = nil
	t.release()
	return nil
}

func (t *MouseTool) release() {
	t.closed = true
	t.mode = ""
	t.ev.OffAll("")
	if t.m == nil {
		return
	}
	for i, x := range t.m.tools {
		if x == t {
			t.m.tools = append(t.m.tools[:i], t.m.tools[i+1:]...)
			break
		}
	}
}

func (m *Map) toolFor(mode string) (*MouseTool, error) {
	if m.destroyed {
		return nil, mapsdk.ErrMapDestroyed
	}
	for i := len(m.tools) - 1; i >= 0; i-- {
		t := m.tools[i]
		if t.mode != mode {
			continue
		}
		if t.broken {
			return nil, ErrToolReentrant
		}
		if t.Active() {
			return t, nil
		}
	}
	return nil, mapsdk.ErrNoActiveTool
}

// 文档注释：模拟拖拽矩形
// 背景：由最近激活的矩形工具接收；矩形作为覆盖物加入地图后分发 draw。
func (m *Map) DragRectangle(a, b LngLat) error {
	t, err := m.toolFor(modeRectangle)
	if err != nil {
		return err
	}
	r := &Rectangle{bounds: orb.MultiPoint{a.point(), b.point()}.Bound(), visible: true}
	m.Add(r)
	t.drawn = append(t.drawn, r)
	t.ev.Emit("draw", DrawEvent{Obj: r})
	return nil
}

// 文档注释：模拟逐点绘制多边形并双击结束
// 约束：路径至少 3 个点，交付的路径保持未闭合（与 SDK 一致）。
func (m *Map) DrawPolygon(path []LngLat) error {
	if len(path) < 3 {
		return errors.New("polygon needs at least 3 vertices")
	}
	t, err := m.toolFor(modePolygon)
	if err != nil {
		return err
	}
	o := t.opts
	o.Path = append([]LngLat(nil), path...)
	if n := len(o.Path); o.Path[0] == o.Path[n-1] {
		o.Path = o.Path[:n-1]
	}
	pg := NewPolygon(o)
	m.Add(pg)
	t.drawn = append(t.drawn, pg)
	t.ev.Emit("draw", DrawEvent{Obj: pg})
	return nil
}

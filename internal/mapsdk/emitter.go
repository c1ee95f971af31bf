package mapsdk

// Handler：事件回调
type Handler func(ev any)

type binding struct {
	id int
	fn Handler
}

// 文档注释：事件分发器
// 背景：各引擎的覆盖物、地图与绘制工具都通过它绑定与触发事件。
// 约束：非并发安全，只在所属会话的循环上使用；分发期间增删监听不影响本次分发。
type Emitter struct {
	handlers map[string][]binding
	next     int
	depth    map[string]int
}

// On：绑定监听，返回用于解绑的编号
func (e *Emitter) On(name string, fn Handler) int {
	if e.handlers == nil {
		e.handlers = make(map[string][]binding)
	}
	e.next++
	e.handlers[name] = append(e.handlers[name], binding{id: e.next, fn: fn})
	return e.next
}

// Off：解绑指定编号，未知编号忽略
func (e *Emitter) Off(name string, id int) {
	hs := e.handlers[name]
	for i, b := range hs {
		if b.id == id {
			e.handlers[name] = append(hs[:i:i], hs[i+1:]...)
			return
		}
	}
}

// OffAll：解绑某事件的全部监听；name 为空时清空所有事件
func (e *Emitter) OffAll(name string) {
	if name == "" {
		e.handlers = nil
		return
	}
	delete(e.handlers, name)
}

// Listeners：某事件的监听数量
func (e *Emitter) Listeners(name string) int {
	return len(e.handlers[name])
}

// Emit：同步触发，返回被调用的监听数量
func (e *Emitter) Emit(name string, ev any) int {
	hs := append([]binding(nil), e.handlers[name]...)
	if len(hs) == 0 {
		return 0
	}
	if e.depth == nil {
		e.depth = make(map[string]int)
	}
	e.depth[name]++
	defer func() { e.depth[name]-- }()
	for _, b := range hs {
		b.fn(ev)
	}
	return len(hs)
}

// Dispatching：是否处于该事件的分发过程中
func (e *Emitter) Dispatching(name string) bool {
	return e.depth[name] > 0
}

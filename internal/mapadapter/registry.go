package mapadapter

import (
	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
)

// record：图层登记项，Native 为原生覆盖物句柄
type record[T any] struct {
	ID      string
	Name    string
	Visible bool
	Data    *geojson.FeatureCollection
	Native  T
}

// 文档注释：按添加顺序保存的图层登记表
// 约束：编号在 remove 或 clear 前保持有效；同编号重复添加由调用方先移除旧项。
type registry[T any] struct {
	order []string
	m     map[string]*record[T]
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func (r *registry[T]) put(rec *record[T]) {
	if r.m == nil {
		r.m = make(map[string]*record[T])
	}
	if _, ok := r.m[rec.ID]; !ok {
		r.order = append(r.order, rec.ID)
	}
	r.m[rec.ID] = rec
}

func (r *registry[T]) get(id string) (*record[T], bool) {
	rec, ok := r.m[id]
	return rec, ok
}

func (r *registry[T]) remove(id string) {
	if _, ok := r.m[id]; !ok {
		return
	}
	delete(r.m, id)
	for i, x := range r.order {
		if x == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *registry[T]) each(fn func(rec *record[T])) {
	for _, id := range r.order {
		fn(r.m[id])
	}
}

func (r *registry[T]) clear() {
	r.order = nil
	r.m = nil
}

func (r *registry[T]) infos() []LayerInfo {
	out := make([]LayerInfo, 0, len(r.order))
	r.each(func(rec *record[T]) {
		n := 0
		if rec.Data != nil {
			n = len(rec.Data.Features)
		}
		out = append(out, LayerInfo{ID: rec.ID, Name: rec.Name, Visible: rec.Visible, Features: n})
	})
	return out
}

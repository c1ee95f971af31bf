package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"github.com/plutoqz/ruoyi-f/internal/coord"
	"github.com/plutoqz/ruoyi-f/internal/logger"
	"github.com/plutoqz/ruoyi-f/internal/penalty"
	"github.com/plutoqz/ruoyi-f/internal/store"
)

type ruleView struct {
	Label string       `json:"label"`
	Rule  penalty.Rule `json:"rule"`
}

func (h *handlers) penaltyRules(c *gin.Context) {
	labels := penalty.Labels()
	out := make([]ruleView, 0, len(labels))
	for _, l := range labels {
		r, _ := penalty.Lookup(l)
		out = append(out, ruleView{Label: l, Rule: r})
	}
	ok(c, gin.H{"rules": out, "severities": penalty.Severities})
}

type evaluateRequest struct {
	ViolationType string          `json:"violationType" binding:"required"`
	Details       penalty.Details `json:"details"`
	// Geometry 为可选的 WGS84 GeoJSON；Details 缺面积或中心时由它计算
	Geometry json.RawMessage `json:"geometry,omitempty"`
}

// 文档注释：补齐面积与中心
// 约束：面积为球面面积（平方米），中心为平面质心；只在 Details 对应字段为零时填充。
func (r *evaluateRequest) fillFromGeometry() error {
	if len(r.Geometry) == 0 || (r.Details.Area > 0 && r.Details.Center != [2]float64{}) {
		return nil
	}
	fc, err := coord.ParseFeatureCollection(r.Geometry)
	if err != nil {
		return err
	}
	var area float64
	var mp orb.MultiPolygon
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = append(mp, g)
		case orb.MultiPolygon:
			mp = append(mp, g...)
		}
	}
	if len(mp) == 0 {
		return errors.New("geometry has no polygon")
	}
	for _, p := range mp {
		area += geo.Area(p)
	}
	if r.Details.Area <= 0 {
		r.Details.Area = area
	}
	if r.Details.Center == [2]float64{} {
		ct, _ := planar.CentroidArea(mp)
		r.Details.Center = [2]float64{ct.Lon(), ct.Lat()}
	}
	return nil
}

func (h *handlers) penaltyEvaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.fillFromGeometry(); err != nil {
		badRequest(c, err)
		return
	}
	res, hit := h.d.Cache.Evaluate(c.Request.Context(), req.ViolationType, req.Details)
	ok(c, gin.H{"result": res, "cached": hit, "details": req.Details})
}

// 文档注释：评估并存档
// 背景：同一请求体 10 秒内重复提交返回 409；地址与操作人地区为尽力补充，失败不阻断。
func (h *handlers) createCase(c *gin.Context) {
	if h.d.Store == nil {
		unavailable(c, "case store")
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 8<<20))
	if err != nil {
		badRequest(c, err)
		return
	}
	var req evaluateRequest
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.ViolationType == "" {
		fail(c, http.StatusBadRequest, "violationType is required")
		return
	}
	if err := req.fillFromGeometry(); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	res, _ := h.d.Cache.Evaluate(ctx, req.ViolationType, req.Details)
	if res.RuleID == "" {
		fail(c, http.StatusUnprocessableEntity, res.Report)
		return
	}
	first, err := h.d.Cache.FirstSeen(ctx, "cases", body, 0)
	if err != nil {
		logger.L().Warn("dedupe_error", "err", err)
	}
	if !first {
		fail(c, http.StatusConflict, "duplicate submission")
		return
	}
	cs := &store.Case{
		Name:          req.Details.Name,
		ViolationType: req.ViolationType,
		RuleID:        res.RuleID,
		Severity:      string(res.Severity),
		Area:          req.Details.Area,
		CenterLng:     req.Details.Center[0],
		CenterLat:     req.Details.Center[1],
		LandType:      req.Details.LandType,
		FineText:      res.FineText,
		Report:        res.Report,
		Geometry:      req.Geometry,
		OperatorIP:    operatorIP(c.Request),
	}
	if !res.Symbolic() {
		f := res.Fine
		cs.Fine = &f
	}
	if h.d.AMap.Enabled() && req.Details.Center != [2]float64{} {
		if a, err := h.d.AMap.Regeo(ctx, req.Details.Center[0], req.Details.Center[1]); err == nil {
			cs.Address = a.Formatted
		} else {
			logger.L().Warn("case_regeo_error", "err", err)
		}
	}
	if rg, found := h.d.Region.Lookup(cs.OperatorIP); found {
		cs.OperatorRegion = rg.String()
	}
	if err := h.d.Store.Create(ctx, cs); err != nil {
		failErr(c, err)
		return
	}
	created(c, gin.H{"case": cs, "result": res})
}

func (h *handlers) recentCases(c *gin.Context) {
	if h.d.Store == nil {
		unavailable(c, "case store")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	cs, err := h.d.Store.Recent(c.Request.Context(), limit)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, gin.H{"cases": cs, "limit": store.ClampLimit(limit)})
}

func (h *handlers) getCase(c *gin.Context) {
	if h.d.Store == nil {
		unavailable(c, "case store")
		return
	}
	cs, err := h.d.Store.Get(c.Request.Context(), c.Param("no"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, cs)
}

func (h *handlers) caseStats(c *gin.Context) {
	if h.d.Store == nil {
		unavailable(c, "case store")
		return
	}
	st, err := h.d.Store.Stats(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	if st == nil {
		st = []store.SeverityCount{}
	}
	ok(c, gin.H{"stats": st})
}

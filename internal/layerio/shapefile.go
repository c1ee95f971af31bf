// 包 layerio：把 Shapefile（.shp 或 zip 打包）读成 WGS84 GeoJSON 要素集合
package layerio

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/plutoqz/ruoyi-f/internal/coord"
	"github.com/plutoqz/ruoyi-f/internal/logger"
	"github.com/plutoqz/ruoyi-f/internal/metrics"
)

var (
	ErrUnsupportedFile = errors.New("file must be .shp or .zip")
	ErrNoShapefile     = errors.New("zip contains no .shp file")
	ErrUnknownCRS      = errors.New("unknown source crs")
	ErrTooManyFeatures = errors.New("too many features")
)

// 编码取值
const (
	EncodingAuto    = "auto"
	EncodingUTF8    = "utf8"
	EncodingGB18030 = "gb18030"
)

// Options：读取参数
type Options struct {
	// CRS 为源坐标系：wgs84 | gcj02 | bd09 | epsg3857，空值按 wgs84
	CRS string
	// Encoding 为属性编码：auto | utf8 | gbk | gb18030；auto 先看 .cpg，再按 UTF-8 合法性判断
	Encoding string
	// MaxFeatures 为 0 时取 50000
	MaxFeatures int
}

// Result：读取结果
type Result struct {
	Collection   *geojson.FeatureCollection `json:"geojson"`
	GeometryType string                     `json:"geometryType"`
	Encoding     string                     `json:"encoding"`
	Features     int                        `json:"features"`
	Skipped      int                        `json:"skipped"`
	// MissingDBF 为 true 表示没有同名 .dbf，要素不带属性
	MissingDBF bool `json:"missingDbf,omitempty"`
}

// 文档注释：按扩展名读取 .shp 或 .zip
// 约束：.shp 需同名 .dbf 在同目录（缺失时要素无属性）；扩展名大小写不敏感。
func ReadFile(path string, o Options) (*Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return readShapefile(path, o)
	case ".zip":
		return readZipFile(path, o)
	}
	return nil, ErrUnsupportedFile
}

func readZipFile(path string, o Options) (*Result, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()
	return ReadZip(&zr.Reader, o)
}

// 文档注释：读取 zip 中的第一个 Shapefile
// 背景：go-shp 只能按路径打开，因此把同名的 shp/shx/dbf/cpg 解压到临时目录，扩展名统一为小写。
func ReadZip(zr *zip.Reader, o Options) (*Result, error) {
	var base string
	for _, f := range zr.File {
		name := f.Name
		if strings.HasPrefix(filepath.Base(name), "._") || strings.Contains(name, "__MACOSX") {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), ".shp") {
			base = strings.TrimSuffix(name, filepath.Ext(name))
			break
		}
	}
	if base == "" {
		return nil, ErrNoShapefile
	}
	dir, err := os.MkdirTemp("", "layerio-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	for _, f := range zr.File {
		ext := strings.ToLower(filepath.Ext(f.Name))
		if strings.TrimSuffix(f.Name, filepath.Ext(f.Name)) != base {
			continue
		}
		switch ext {
		case ".shp", ".shx", ".dbf", ".cpg", ".prj":
		default:
			continue
		}
		if err := extract(f, filepath.Join(dir, "layer"+ext)); err != nil {
			return nil, fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return readShapefile(filepath.Join(dir, "layer.shp"), o)
}

func extract(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	w, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, rc); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func readShapefile(path string, o Options) (res *Result, err error) {
	defer func() {
		if err != nil {
			metrics.LayerImportsTotal.WithLabelValues("error").Inc()
			logger.L().Warn("layer_import_error", "file", filepath.Base(path), "err", err)
			return
		}
		metrics.LayerImportsTotal.WithLabelValues("ok").Inc()
		logger.L().Info("layer_imported", "file", filepath.Base(path), "features", res.Features, "skipped", res.Skipped, "encoding", res.Encoding)
	}()
	fn, ok := coord.ByName(o.CRS, coord.WGS84)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCRS, o.CRS)
	}
	limit := o.MaxFeatures
	if limit <= 0 {
		limit = 50000
	}
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}
	defer r.Close()

	dec := &decoder{enc: resolveEncoding(o.Encoding, path)}
	fields := r.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = dec.decode(strings.TrimRight(f.String(), "\x00 "))
	}

	fc := geojson.NewFeatureCollection()
	res = &Result{Collection: fc, GeometryType: shapeTypeName(r.GeometryType)}
	if !hasDBF(path) {
		res.MissingDBF = true
		names = nil
		logger.L().Warn("layer_import_warn", "file", filepath.Base(path), "reason", "dbf_missing")
	}
	for r.Next() {
		n, s := r.Shape()
		g := toGeometry(s)
		if g == nil {
			res.Skipped++
			continue
		}
		if len(fc.Features) >= limit {
			return nil, fmt.Errorf("%w: more than %d", ErrTooManyFeatures, limit)
		}
		f := geojson.NewFeature(coord.TransformGeometry(g, fn))
		f.ID = n
		for i, name := range names {
			f.Properties[name] = dec.decode(strings.TrimRight(r.Attribute(i), "\x00 "))
		}
		fc.Append(f)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile: %w", err)
	}
	res.Encoding = dec.effective()
	res.Features = len(fc.Features)
	return res, nil
}

// 文档注释：确定属性编码
// 约束：显式指定优先；auto 时读取同名 .cpg（UTF-8 / GBK / 936 等写法），读不到保持 auto。
func resolveEncoding(want, shpPath string) string {
	switch normalizeEncoding(want) {
	case EncodingUTF8:
		return EncodingUTF8
	case EncodingGB18030:
		return EncodingGB18030
	}
	b, err := os.ReadFile(strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".cpg")
	if err != nil {
		return EncodingAuto
	}
	if e := normalizeEncoding(string(b)); e != EncodingAuto {
		return e
	}
	return EncodingAuto
}

func normalizeEncoding(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "", "_", "").Replace(s)
	switch s {
	case "utf8":
		return EncodingUTF8
	case "gbk", "gb2312", "gb18030", "936", "cp936":
		return EncodingGB18030
	}
	return EncodingAuto
}

// 文档注释：属性值解码器
// 约束：GB18030 是 GBK 的超集，GBK 数据按 GB18030 解码结果一致；auto 模式下逐值判断，
// 合法 UTF-8 原样保留，其余按 GB18030 解码。
type decoder struct {
	enc   string
	sawGB bool
}

func (d *decoder) decode(s string) string {
	if s == "" || d.enc == EncodingUTF8 {
		return s
	}
	if d.enc == EncodingAuto && utf8.ValidString(s) {
		return s
	}
	out, err := simplifiedchinese.GB18030.NewDecoder().String(s)
	if err != nil {
		return s
	}
	d.sawGB = true
	return out
}

func (d *decoder) effective() string {
	switch {
	case d.enc == EncodingGB18030, d.sawGB:
		return EncodingGB18030
	}
	return EncodingUTF8
}

// hasDBF：同目录下是否有同名 .dbf（扩展名大小写不敏感）
func hasDBF(shpPath string) bool {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	for _, ext := range []string{".dbf", ".DBF"} {
		if _, err := os.Stat(base + ext); err == nil {
			return true
		}
	}
	return false
}

func shapeTypeName(t shp.ShapeType) string {
	switch t {
	case shp.POINT, shp.POINTZ, shp.POINTM:
		return "Point"
	case shp.MULTIPOINT, shp.MULTIPOINTZ, shp.MULTIPOINTM:
		return "MultiPoint"
	case shp.POLYLINE, shp.POLYLINEZ, shp.POLYLINEM:
		return "LineString"
	case shp.POLYGON, shp.POLYGONZ, shp.POLYGONM:
		return "Polygon"
	}
	return "Unknown"
}

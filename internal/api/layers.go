package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/plutoqz/ruoyi-f/internal/layerio"
)

// 文档注释：上传 Shapefile 并转换为 WGS84 GeoJSON
// 参数：multipart 字段 file（.shp 或 .zip），可选表单 crs、encoding。
// 约束：单独上传 .shp 时没有 .dbf，要素不带属性。
func (h *handlers) layerImport(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.d.UploadLimit)
	fh, err := c.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			fail(c, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		badRequest(c, err)
		return
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext != ".shp" && ext != ".zip" {
		badRequest(c, layerio.ErrUnsupportedFile)
		return
	}
	src, err := fh.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer src.Close()
	tmp, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		failErr(c, err)
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		failErr(c, err)
		return
	}
	if err := tmp.Close(); err != nil {
		failErr(c, err)
		return
	}
	res, err := layerio.ReadFile(tmp.Name(), layerio.Options{
		CRS:      c.PostForm("crs"),
		Encoding: c.PostForm("encoding"),
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, res)
}

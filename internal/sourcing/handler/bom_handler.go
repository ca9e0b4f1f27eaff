package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/andrespineda/bom-parts-sourcing/internal/sourcing/entity"
	"github.com/andrespineda/bom-parts-sourcing/internal/sourcing/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 上传文件大小上限
const maxUploadSize = 16 << 20 // 16MB

// BOMHandler BOM上传与自动选料接口
type BOMHandler struct {
	bomSvc    *service.BOMService
	searchSvc *service.SearchService
	logger    *zap.Logger
}

// NewBOMHandler 创建BOM处理器
func NewBOMHandler(bomSvc *service.BOMService, searchSvc *service.SearchService, logger *zap.Logger) *BOMHandler {
	return &BOMHandler{bomSvc: bomSvc, searchSvc: searchSvc, logger: logger}
}

// BOMUploadResponse BOM上传响应
type BOMUploadResponse struct {
	Success        bool               `json:"success"`
	Error          string             `json:"error,omitempty"`
	OutputFilename string             `json:"output_filename,omitempty"`
	Matched        int                `json:"matched"`
	NotFound       int                `json:"not_found"`
	Skipped        int                `json:"skipped"`
	AlreadySourced int                `json:"already_sourced"`
	Configured     map[string]bool    `json:"configured"`
	Rows           []entity.RowResult `json:"rows,omitempty"`
	CSV            string             `json:"csv,omitempty"`
}

// Upload 上传BOM并逐行选料
// POST /api/v1/bom/upload （multipart，字段名file）
// 文件解析失败是用户可见的4xx；供应商故障静默降级，不影响接口成功
func (h *BOMHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.fail(c, http.StatusBadRequest, "no file uploaded: "+err.Error())
		return
	}
	if fileHeader.Size > maxUploadSize {
		h.fail(c, http.StatusBadRequest, fmt.Sprintf("file too large (max %dMB)", maxUploadSize>>20))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "read uploaded file: "+err.Error())
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "read uploaded file: "+err.Error())
		return
	}

	bomFile, err := h.bomSvc.ParseUpload(fileHeader.Filename, data)
	if err != nil {
		h.fail(c, http.StatusBadRequest, err.Error())
		return
	}

	report := h.bomSvc.Process(c.Request.Context(), fileHeader.Filename, bomFile)

	c.JSON(http.StatusOK, BOMUploadResponse{
		Success:        true,
		OutputFilename: report.OutputFilename,
		Matched:        report.Matched,
		NotFound:       report.NotFound,
		Skipped:        report.Skipped,
		AlreadySourced: report.AlreadySourced,
		Configured:     h.searchSvc.ConfiguredFlags(),
		Rows:           report.Rows,
		CSV:            report.CSV,
	})
}

func (h *BOMHandler) fail(c *gin.Context, status int, message string) {
	c.JSON(status, BOMUploadResponse{
		Success:    false,
		Error:      message,
		Configured: h.searchSvc.ConfiguredFlags(),
	})
}

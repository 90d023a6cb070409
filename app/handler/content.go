package handler

import (
	"media-forge/app/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContentHandler 内容处理器
type ContentHandler struct {
	contentService *service.ContentService
}

// NewContentHandler 创建内容处理器
func NewContentHandler(contentService *service.ContentService) *ContentHandler {
	return &ContentHandler{contentService: contentService}
}

// CreateContentRequest 创建内容请求结构
type CreateContentRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	SourceURL string `json:"source_url" binding:"required,url"`
}

// Create 注册内容并自动触发视频下载
func (h *ContentHandler) Create(c *gin.Context) {
	var req CreateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	content, err := h.contentService.CreateContent(req.ProjectID, req.SourceURL)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, content, "内容创建成功")
}

// Get 获取内容详情（含字幕和任务）
func (h *ContentHandler) Get(c *gin.Context) {
	content, err := h.contentService.GetContent(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, content, "获取成功")
}

// Delete 删除内容及其关联记录
func (h *ContentHandler) Delete(c *gin.Context) {
	if err := h.contentService.DeleteContent(c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, nil, "删除成功")
}

package handler

import (
	"media-forge/app/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SubtitleHandler 字幕处理器
type SubtitleHandler struct {
	pipelineService *service.PipelineService
}

// NewSubtitleHandler 创建字幕处理器
func NewSubtitleHandler(pipelineService *service.PipelineService) *SubtitleHandler {
	return &SubtitleHandler{pipelineService: pipelineService}
}

// GenerateSubtitleRequest 生成字幕请求结构
type GenerateSubtitleRequest struct {
	Language string `json:"language"`
}

// TranslateSubtitleRequest 翻译字幕请求结构
type TranslateSubtitleRequest struct {
	TargetLanguage string `json:"target_language" binding:"required"`
}

// Generate 为内容创建原始字幕生成任务
func (h *SubtitleHandler) Generate(c *gin.Context) {
	var req GenerateSubtitleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
			return
		}
	}

	subtitle, task, err := h.pipelineService.CreateSubtitle(c.Param("id"), req.Language)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, gin.H{
		"subtitle": subtitle,
		"task":     task,
	}, "字幕生成任务已创建")
}

// Translate 同步翻译已完成的字幕
func (h *SubtitleHandler) Translate(c *gin.Context) {
	var req TranslateSubtitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	subtitle, err := h.pipelineService.TranslateSubtitle(c.Request.Context(), c.Param("id"), req.TargetLanguage)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, subtitle, "翻译完成")
}

// Burn 为字幕创建烧录任务
func (h *SubtitleHandler) Burn(c *gin.Context) {
	task, err := h.pipelineService.CreateSubtitleBurn(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, task, "字幕烧录任务已创建")
}

// Get 获取字幕详情
func (h *SubtitleHandler) Get(c *gin.Context) {
	subtitle, err := h.pipelineService.GetSubtitle(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, subtitle, "获取成功")
}

// List 列出内容下的全部字幕
func (h *SubtitleHandler) List(c *gin.Context) {
	subtitles, err := h.pipelineService.ListSubtitles(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, subtitles, "获取成功")
}

// Delete 删除字幕
func (h *SubtitleHandler) Delete(c *gin.Context) {
	if err := h.pipelineService.DeleteSubtitle(c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, nil, "删除成功")
}

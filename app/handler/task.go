package handler

import (
	"media-forge/app/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TaskHandler 任务处理器
type TaskHandler struct {
	pipelineService *service.PipelineService
	taskQueue       *service.PersistentTaskQueue
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(pipelineService *service.PipelineService, taskQueue *service.PersistentTaskQueue) *TaskHandler {
	return &TaskHandler{
		pipelineService: pipelineService,
		taskQueue:       taskQueue,
	}
}

// WatermarkRequest 水印烧录请求结构
type WatermarkRequest struct {
	WatermarkPath string `json:"watermark_path"`
}

// CreateDownload 为内容创建下载任务
func (h *TaskHandler) CreateDownload(c *gin.Context) {
	task, err := h.pipelineService.CreateDownload(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, task, "下载任务已创建")
}

// CreateWatermark 为内容创建水印烧录任务
func (h *TaskHandler) CreateWatermark(c *gin.Context) {
	var req WatermarkRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
			return
		}
	}

	task, err := h.pipelineService.CreateWatermarkBurn(c.Param("id"), req.WatermarkPath)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, task, "水印任务已创建")
}

// Get 查询任务状态和进度
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.pipelineService.GetTask(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, task, "获取成功")
}

// QueueStatus 查询队列各状态任务数量
func (h *TaskHandler) QueueStatus(c *gin.Context) {
	status, err := h.taskQueue.GetQueueStatus()
	if err != nil {
		respondError(c, http.StatusInternalServerError, 500, "查询队列状态失败: "+err.Error())
		return
	}

	respondSuccess(c, status, "获取成功")
}

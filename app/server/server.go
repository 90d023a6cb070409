package server

import (
	"context"
	"media-forge/app/config"
	"media-forge/app/database"
	"media-forge/app/filewatcher"
	"media-forge/app/handler"
	"media-forge/app/logger"
	"media-forge/app/middleware"
	"media-forge/app/service"
	"media-forge/app/utils/ffmpeg"
	"media-forge/app/utils/transcribe"
	"media-forge/app/utils/translate"
	"media-forge/app/utils/videodl"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Server 表示 HTTP 服务器
type Server struct {
	Config *config.Config
	Logger *logger.Logger
	gin    *gin.Engine
	http   *http.Server

	contentService     *service.ContentService
	pipelineService    *service.PipelineService
	taskQueue          *service.PersistentTaskQueue
	maintenanceService *service.MaintenanceService
	mediaWatcher       *filewatcher.MediaWatcher
}

// New 创建一个新的 Server 实例
func New(cfg *config.Config, log *logger.Logger) *Server {
	router := gin.Default()

	s := &Server{
		gin: router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
		Config: cfg,
		Logger: log,
	}

	// 外部能力客户端
	db := database.GetDB()
	downloadClient := videodl.New(cfg.Download, log)
	transcribeClient := transcribe.New(cfg.Transcribe, log)
	translateClient := translate.New(cfg.Translate, log)
	videoFilter := ffmpeg.New(cfg.Ffmpeg, log)

	// 业务服务
	s.pipelineService = service.NewPipelineService(db, cfg, log, translateClient)
	s.contentService = service.NewContentService(db, log, s.pipelineService)
	s.maintenanceService = service.NewMaintenanceService(db, cfg, log)

	// 任务队列和执行器
	s.taskQueue = service.NewPersistentTaskQueue(db, cfg, log)
	s.taskQueue.Register(service.NewDownloadExecutor(db, cfg, log, downloadClient))
	s.taskQueue.Register(service.NewSubtitleGenerateExecutor(db, cfg, log, transcribeClient))
	s.taskQueue.Register(service.NewSubtitleBurnExecutor(db, cfg, log, videoFilter))
	s.taskQueue.Register(service.NewWatermarkBurnExecutor(db, cfg, log, videoFilter))

	// 媒体目录监控：文件被外部删除时清掉内容上的过期指针
	if cfg.Watcher.Enabled {
		watcher, err := filewatcher.New(cfg.Storage.MediaDir, log, func(path string) {
			cleared, err := s.contentService.ClearFilePath(path)
			if err != nil {
				log.Errorf("清理文件指针失败: %v", err)
				return
			}
			if cleared > 0 {
				log.Infof("已清理 %d 条内容的文件指针: %s", cleared, path)
			}
		})
		if err != nil {
			log.Errorf("创建媒体目录监控失败: %v", err)
		} else {
			s.mediaWatcher = watcher
		}
	}

	// 设置路由
	s.setupRoutes()

	return s
}

// Start 启动服务器
func (s *Server) Start() error {
	s.Logger.Infof("在端口 %s 启动服务器", s.http.Addr)

	// 启动后台服务
	s.taskQueue.Start()
	s.maintenanceService.Start()
	if s.mediaWatcher != nil {
		if err := s.mediaWatcher.Start(); err != nil {
			s.Logger.Errorf("启动媒体目录监控失败: %v", err)
		}
	}

	return s.http.ListenAndServe()
}

// Shutdown 按启动的反序停止后台服务并关闭服务器
func (s *Server) Shutdown(ctx context.Context) error {
	if s.mediaWatcher != nil {
		s.mediaWatcher.Stop()
	}
	s.maintenanceService.Stop()
	s.taskQueue.Stop()

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		s.Logger.Errorf("关闭数据库连接失败: %v", err)
	}
	return s.http.Shutdown(ctx)
}

// setupRoutes 设置API路由
func (s *Server) setupRoutes() {
	// 创建处理器实例
	authHandler := handler.NewAuthHandler(s.Config)
	contentHandler := handler.NewContentHandler(s.contentService)
	subtitleHandler := handler.NewSubtitleHandler(s.pipelineService)
	taskHandler := handler.NewTaskHandler(s.pipelineService, s.taskQueue)

	// API路由组
	api := s.gin.Group("/api")

	// 认证相关路由（不需要JWT验证）
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
	}

	// 需要JWT验证的路由
	protected := api.Group("/")
	protected.Use(middleware.JWTAuth(s.Config))
	{
		// 用户相关
		protected.GET("/me", authHandler.Me)

		// 内容相关路由
		contents := protected.Group("/contents")
		{
			contents.POST("/", contentHandler.Create)
			contents.GET("/:id", contentHandler.Get)
			contents.DELETE("/:id", contentHandler.Delete)

			// 加工阶段
			contents.POST("/:id/download", taskHandler.CreateDownload)
			contents.POST("/:id/subtitles", subtitleHandler.Generate)
			contents.GET("/:id/subtitles", subtitleHandler.List)
			contents.POST("/:id/watermark", taskHandler.CreateWatermark)
		}

		// 字幕相关路由
		subtitles := protected.Group("/subtitles")
		{
			subtitles.GET("/:id", subtitleHandler.Get)
			subtitles.DELETE("/:id", subtitleHandler.Delete)
			subtitles.POST("/:id/translate", subtitleHandler.Translate)
			subtitles.POST("/:id/burn", subtitleHandler.Burn)
		}

		// 任务相关路由
		tasks := protected.Group("/tasks")
		{
			tasks.GET("/:id", taskHandler.Get)
			tasks.GET("/queue/status", taskHandler.QueueStatus)
		}
	}
}

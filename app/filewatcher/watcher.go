package filewatcher

import (
	"media-forge/app/logger"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// RemovedCallback 文件被移除时的回调，参数为被移除文件的完整路径
type RemovedCallback func(path string)

// MediaWatcher 媒体目录监控。媒体产物在外部被删除或移走时，
// 通过回调清理内容记录上的过期文件指针。
type MediaWatcher struct {
	dir       string
	watcher   *fsnotify.Watcher
	logger    *logger.Logger
	onRemoved RemovedCallback
	done      chan struct{}
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// New 创建媒体目录监控
func New(dir string, log *logger.Logger, onRemoved RemovedCallback) (*MediaWatcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &MediaWatcher{
		dir:       dir,
		watcher:   watcher,
		logger:    log,
		onRemoved: onRemoved,
		done:      make(chan struct{}),
	}, nil
}

// Start 启动监控
func (w *MediaWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	w.running = true
	w.wg.Add(1)
	go w.loop()

	w.logger.Infof("媒体目录监控已启动: %s", w.dir)
	return nil
}

// Stop 停止监控
func (w *MediaWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false

	close(w.done)
	w.watcher.Close()
	w.wg.Wait()

	w.logger.Info("媒体目录监控已停止")
}

// loop 处理文件系统事件
func (w *MediaWatcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// 删除和移走都意味着指针失效
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.logger.Warnf("媒体文件被外部移除: %s", event.Name)
				if w.onRemoved != nil {
					w.onRemoved(event.Name)
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("媒体目录监控出错: %v", err)
		}
	}
}

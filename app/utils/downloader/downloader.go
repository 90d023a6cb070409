package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36"

// DownloadToFile 将远端文件流式写入本地路径，返回写入的字节数。
// 先写入临时文件再重命名，已存在的目标文件会被覆盖。
func DownloadToFile(ctx context.Context, url, destPath string) (written int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "identity") // 禁用压缩，避免 Content-Length 不匹配

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// 允许最多 10 次重定向
			if len(via) >= 10 {
				return fmt.Errorf("重定向次数过多")
			}
			req.Header.Set("User-Agent", defaultUserAgent)
			return nil
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("HTTP请求失败，状态码: %d, 响应: %s", resp.StatusCode, string(bodyBytes))
	}

	// 确保保存目录存在
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, fmt.Errorf("创建保存目录失败: %w", err)
	}

	tmpPath := destPath + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("创建文件失败: %w", err)
	}
	defer func() {
		file.Close()
		// 失败时删除未完成的临时文件
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	written, err = io.Copy(file, resp.Body)
	if err != nil {
		return 0, fmt.Errorf("写入文件内容失败: %w", err)
	}

	if err = file.Sync(); err != nil {
		return 0, fmt.Errorf("刷新文件到磁盘失败: %w", err)
	}
	if err = file.Close(); err != nil {
		return 0, fmt.Errorf("关闭文件失败: %w", err)
	}

	// 验证文件大小（如果服务器提供了 Content-Length）
	if resp.ContentLength > 0 && written != resp.ContentLength {
		os.Remove(tmpPath)
		err = fmt.Errorf("下载不完整: 期望 %d bytes, 实际 %d bytes", resp.ContentLength, written)
		return 0, err
	}
	if written == 0 {
		os.Remove(tmpPath)
		err = fmt.Errorf("下载的文件为空")
		return 0, err
	}

	if err = os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("重命名文件失败: %w", err)
	}

	return written, nil
}

package srt

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// Line 一条字幕
type Line struct {
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
	Text      string
}

// Parse 解析 SRT 格式文本
func Parse(text string) ([]Line, error) {
	var lines []Line

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	current := Line{}
	state := "index" // index -> time -> text
	var textLines []string

	flush := func() {
		if len(textLines) > 0 {
			current.Text = strings.Join(textLines, "\n")
			lines = append(lines, current)
		}
		current = Line{}
		textLines = nil
		state = "index"
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch state {
		case "index":
			if line == "" {
				continue
			}
			index, err := strconv.Atoi(line)
			if err != nil {
				continue // 跳过非序号行
			}
			current.Index = index
			state = "time"

		case "time":
			if line == "" {
				continue
			}
			start, end, err := parseTimeRange(line)
			if err != nil {
				return nil, fmt.Errorf("解析时间轴失败: %w", err)
			}
			current.StartTime = start
			current.EndTime = end
			state = "text"

		case "text":
			if line == "" {
				flush()
				continue
			}
			textLines = append(textLines, line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("字幕内容为空或不是有效的 SRT 格式")
	}

	return lines, nil
}

// Format 将字幕序列化为 SRT 格式文本
func Format(lines []Line) string {
	var b strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&b, "%d\n", line.Index)
		fmt.Fprintf(&b, "%s --> %s\n", formatDuration(line.StartTime), formatDuration(line.EndTime))
		fmt.Fprintf(&b, "%s\n\n", line.Text)
	}
	return b.String()
}

// Validate 校验文本是否为非空的有效 SRT
func Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("字幕内容为空")
	}
	_, err := Parse(text)
	return err
}

// DetectLanguage 识别字幕文本的语言，返回小写语言名（如 spanish）。
// 识别不出时返回空字符串。
func DetectLanguage(text string) string {
	lines, err := Parse(text)
	if err != nil {
		return ""
	}

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line.Text)
		b.WriteString(" ")
	}

	info := whatlanggo.Detect(b.String())
	if !info.IsReliable() {
		return ""
	}
	return strings.ToLower(info.Lang.String())
}

// NormalizeLanguage 归一化语言标识。BCP 47 标签取其基础语言，
// 其余输入只做小写与去空格处理。
func NormalizeLanguage(lang string) string {
	trimmed := strings.ToLower(strings.TrimSpace(lang))
	if trimmed == "" || trimmed == "original" {
		return trimmed
	}

	if tag, err := language.Parse(trimmed); err == nil {
		if base, conf := tag.Base(); conf >= language.High {
			return base.String()
		}
	}
	return trimmed
}

// parseTimeRange 解析 "00:00:01,000 --> 00:00:02,500" 形式的时间轴
func parseTimeRange(line string) (time.Duration, time.Duration, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("无效的时间轴行: %s", line)
	}

	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseTimestamp 解析 "00:01:02,345" 形式的时间戳
func parseTimestamp(ts string) (time.Duration, error) {
	ts = strings.Replace(ts, ",", ".", 1)
	segments := strings.Split(ts, ":")
	if len(segments) != 3 {
		return 0, fmt.Errorf("无效的时间戳: %s", ts)
	}

	hours, err := strconv.Atoi(segments[0])
	if err != nil {
		return 0, fmt.Errorf("无效的时间戳: %s", ts)
	}
	minutes, err := strconv.Atoi(segments[1])
	if err != nil {
		return 0, fmt.Errorf("无效的时间戳: %s", ts)
	}
	seconds, err := strconv.ParseFloat(segments[2], 64)
	if err != nil {
		return 0, fmt.Errorf("无效的时间戳: %s", ts)
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second)), nil
}

// formatDuration 将时长格式化为 SRT 时间戳
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	milliseconds := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, milliseconds)
}

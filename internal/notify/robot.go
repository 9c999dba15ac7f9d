// 本文件用于企业微信机器人通知
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"salon-agent/internal/logger"
	"salon-agent/internal/state"
)

const (
	webhookURLFormat = "https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=%s"
	timeFormat       = "2006-01-02 15:04:05"
	robotTimeout     = 10 * time.Second
)

// Robot 企业微信机器人，承接主管侧通知
type Robot struct {
	robotKey   string
	webhookURL string
	client     *http.Client
	state      *state.RuntimeState
}

type message struct {
	MsgType  string   `json:"msgtype"`
	Markdown markdown `json:"markdown"`
}

type markdown struct {
	Content string `json:"content"`
}

// NewRobot 创建新的企业微信机器人，Key 为空时返回 nil
func NewRobot(robotKey string, st *state.RuntimeState) *Robot {
	if robotKey == "" {
		return nil
	}
	return &Robot{
		robotKey:   robotKey,
		webhookURL: fmt.Sprintf(webhookURLFormat, robotKey),
		client:     &http.Client{Timeout: robotTimeout},
		state:      st,
	}
}

// Notify 发送通知到企业微信机器人
func (r *Robot) Notify(ctx context.Context, payload Payload) error {
	if r == nil {
		return nil
	}
	logger.Info("开始发送企业微信机器人消息")

	msg := buildMarkdownMessage(payload, time.Now())
	jsonReq, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	if err := r.sendRequest(ctx, jsonReq); err != nil {
		return err
	}

	if r.state != nil {
		r.state.RecordNotification("robot", payload.Kind, payload.SessionID)
	}
	logger.Info("企业微信机器人消息发送成功")
	return nil
}

func buildMarkdownMessage(payload Payload, now time.Time) message {
	var content string
	switch payload.Kind {
	case KindSupervisor:
		content = fmt.Sprintf(
			"### 求助升级 <font color=\"warning\">#%d</font> \r\n ### 问题: %s \r\n ### 会话: %s \r\n ### datetime: <font color=\"info\">%s</font>",
			payload.RequestID, payload.Question, payload.SessionID, now.Format(timeFormat))
	case KindCaller:
		content = fmt.Sprintf(
			"### 回复顾客 <font color=\"info\">%s</font> \r\n ### 问题: %s \r\n ### 答案: %s",
			payload.SessionID, payload.Question, payload.Answer)
	default:
		content = fmt.Sprintf(
			"### 超时提醒 \r\n ### 问题: %s \r\n ### 会话: %s", payload.Question, payload.SessionID)
	}
	return message{
		MsgType:  "markdown",
		Markdown: markdown{Content: content},
	}
}

func (r *Robot) sendRequest(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("企业微信机器人消息发送失败，状态码: %d", resp.StatusCode)
	}
	return nil
}

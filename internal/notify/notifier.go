// 本文件用于主管与顾客通知的发送与组合
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"salon-agent/internal/logger"
	"salon-agent/internal/state"
)

// 通知类型
const (
	KindSupervisor = "supervisor" // 升级求助，发给主管
	KindCaller     = "caller"     // 解决回执，发给顾客
	KindTimeout    = "timeout"    // 超时提示，本地记录
)

// Payload 表示一次通知的内容
type Payload struct {
	Kind      string
	SessionID string
	RequestID int64
	Question  string
	Answer    string
	Time      time.Time
}

// Notifier 表示通知发送器
type Notifier interface {
	Notify(ctx context.Context, payload Payload) error
}

// ConsoleNotifier 把通知打印到控制台，模拟真实的消息通道
type ConsoleNotifier struct {
	out   io.Writer
	state *state.RuntimeState
}

// NewConsoleNotifier 创建控制台通知器
func NewConsoleNotifier(st *state.RuntimeState) *ConsoleNotifier {
	return &ConsoleNotifier{out: os.Stdout, state: st}
}

// NewConsoleNotifierWithWriter 供测试注入输出
func NewConsoleNotifierWithWriter(out io.Writer, st *state.RuntimeState) *ConsoleNotifier {
	return &ConsoleNotifier{out: out, state: st}
}

// Notify 打印通知内容并记录事件
func (n *ConsoleNotifier) Notify(_ context.Context, payload Payload) error {
	if n == nil {
		return nil
	}
	fmt.Fprintln(n.out, formatConsoleLine(payload))
	if n.state != nil {
		n.state.RecordNotification("console", payload.Kind, payload.SessionID)
	}
	return nil
}

func formatConsoleLine(payload Payload) string {
	switch payload.Kind {
	case KindSupervisor:
		return fmt.Sprintf("[SUPERVISOR] Hey, I need help answering: %q (request #%d)",
			payload.Question, payload.RequestID)
	case KindCaller:
		return fmt.Sprintf("[CALLER %s] About your question %q: %s",
			payload.SessionID, payload.Question, payload.Answer)
	case KindTimeout:
		return fmt.Sprintf("[TIMEOUT] Could not get an answer in time for %q (session %s)",
			payload.Question, payload.SessionID)
	default:
		return fmt.Sprintf("[NOTIFY] %q", payload.Question)
	}
}

// Set 组合控制台与机器人通知
// 控制台始终生效，机器人仅在配置了 Key 时生效
type Set struct {
	Console *ConsoleNotifier
	Robot   *Robot
}

// Notify 依次发送各通道，任一失败只记日志不阻断流程
func (s *Set) Notify(ctx context.Context, payload Payload) error {
	if s == nil {
		return nil
	}
	var firstErr error
	if s.Console != nil {
		if err := s.Console.Notify(ctx, payload); err != nil {
			firstErr = err
		}
	}
	if s.Robot != nil {
		if err := s.Robot.Notify(ctx, payload); err != nil {
			logger.Error("机器人通知发送失败: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

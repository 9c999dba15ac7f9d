// 本文件用于接待代理的会话外壳
// 控制台读写模拟实时语音/文本通道，每次连接对应一个会话
package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"salon-agent/internal/escalate"
	"salon-agent/internal/llm"
	"salon-agent/internal/logger"
	"salon-agent/internal/state"
)

// 实时通道必需的三个环境变量，任一缺失都拒绝建立会话
var requiredEnvKeys = []string{
	"LIVEKIT_URL",
	"LIVEKIT_API_KEY",
	"LIVEKIT_API_SECRET",
}

// rephrasePromptFormat 把知识库答案交给 LLM 润色的系统提示词
// 原话术事实不允许被改写，失败时直接回退原文
const rephrasePromptFormat = `You are the front-desk receptionist of %s.
Rewrite the given reply in one or two warm, natural sentences.
Keep every fact exactly as given. Do not add information. Reply with the rewritten text only.`

// Credentials 实时通道凭据
type Credentials struct {
	URL       string
	APIKey    string
	APISecret string
}

// LoadCredentials 从环境读取实时通道凭据
// .env 文件存在时先加载，缺失任意一项返回错误
func LoadCredentials() (Credentials, error) {
	_ = godotenv.Load()

	values := make(map[string]string, len(requiredEnvKeys))
	for _, key := range requiredEnvKeys {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			return Credentials{}, fmt.Errorf("环境变量 %s 未设置", key)
		}
		values[key] = value
	}
	return Credentials{
		URL:       values["LIVEKIT_URL"],
		APIKey:    values["LIVEKIT_API_KEY"],
		APISecret: values["LIVEKIT_API_SECRET"],
	}, nil
}

// Shell 会话外壳
type Shell struct {
	workflow  *escalate.Workflow
	llmClient *llm.Client
	runtime   *state.RuntimeState
	salonName string
	in        io.Reader
	out       io.Writer
}

// NewShell 创建会话外壳，llmClient 可以为 nil
func NewShell(workflow *escalate.Workflow, llmClient *llm.Client, runtime *state.RuntimeState, salonName string) *Shell {
	return &Shell{
		workflow:  workflow,
		llmClient: llmClient,
		runtime:   runtime,
		salonName: salonName,
		in:        os.Stdin,
		out:       os.Stdout,
	}
}

// SetIO 供测试注入输入输出
func (s *Shell) SetIO(in io.Reader, out io.Writer) {
	s.in = in
	s.out = out
}

// RunSession 运行一次完整会话直到输入结束或 ctx 取消
func (s *Shell) RunSession(ctx context.Context) error {
	sessionID := uuid.NewString()
	if s.runtime != nil {
		s.runtime.MarkSessionStarted()
	}
	logger.Info("会话已建立: %s", sessionID)

	fmt.Fprintf(s.out, "Hello, this is %s. How can I help you today?\n", s.salonName)

	scanner := bufio.NewScanner(s.in)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if isGoodbye(text) {
			fmt.Fprintln(s.out, "Thank you for calling. Goodbye!")
			break
		}

		reply := s.workflow.HandleInput(ctx, text, sessionID)
		fmt.Fprintf(s.out, "%s\n", s.polish(ctx, reply))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("读取会话输入失败: %w", err)
	}

	logger.Info("会话已结束: %s", sessionID)
	return nil
}

// polish 在启用 AI 时用 LLM 润色应答，失败回退原文
func (s *Shell) polish(ctx context.Context, reply string) string {
	if s.llmClient == nil {
		return reply
	}
	polished, err := s.llmClient.Chat(ctx, fmt.Sprintf(rephrasePromptFormat, s.salonName), reply)
	if err != nil {
		logger.Warn("应答润色失败，使用原话术: %v", err)
		return reply
	}
	return polished
}

func isGoodbye(text string) bool {
	switch strings.ToLower(text) {
	case "bye", "goodbye", "exit", "quit":
		return true
	default:
		return false
	}
}

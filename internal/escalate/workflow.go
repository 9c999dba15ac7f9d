// 本文件用于升级工作流的编排
// 知识库未命中时创建求助请求 通知主管 跟踪会话 超时巡检 直到人工解决回写知识库
package escalate

import (
	"context"
	"fmt"
	"time"

	"salon-agent/internal/logger"
	"salon-agent/internal/match"
	"salon-agent/internal/notify"
	"salon-agent/internal/state"
	"salon-agent/internal/store"
)

// 面向用户的固定话术
const (
	AckMessage     = "Let me check with my supervisor and get back to you."
	ApologyMessage = "Sorry, something went wrong on my side. Please try again later."
)

// ErrRequestNotFound 表示请求不存在或已进入终态
var ErrRequestNotFound = fmt.Errorf("求助请求不存在或已处理")

// Workflow 升级工作流
// 持有自己的待跟进会话表，多个实例互不影响
type Workflow struct {
	store          *store.Store
	notifier       notify.Notifier
	pending        *PendingSessions
	runtime        *state.RuntimeState
	sessionTimeout time.Duration
	sweepInterval  time.Duration
}

// Options 工作流参数
type Options struct {
	SessionTimeout time.Duration // 默认 30 分钟
	SweepInterval  time.Duration // 默认 60 秒
}

// NewWorkflow 创建升级工作流
func NewWorkflow(st *store.Store, notifier notify.Notifier, runtime *state.RuntimeState, opts Options) *Workflow {
	sessionTimeout := opts.SessionTimeout
	if sessionTimeout <= 0 {
		sessionTimeout = 30 * time.Minute
	}
	sweepInterval := opts.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = 60 * time.Second
	}
	return &Workflow{
		store:          st,
		notifier:       notifier,
		pending:        NewPendingSessions(),
		runtime:        runtime,
		sessionTimeout: sessionTimeout,
		sweepInterval:  sweepInterval,
	}
}

// Pending 返回工作流自有的待跟进会话表
func (w *Workflow) Pending() *PendingSessions {
	return w.pending
}

// HandleInput 处理一轮用户输入并返回应答文本
// 知识库命中直接返回答案，未命中时创建求助请求并返回固定话术
// 持久化错误就地转成道歉话术，不向上传播
func (w *Workflow) HandleInput(ctx context.Context, text, sessionID string) string {
	entries, err := w.store.ListKnowledge()
	if err != nil {
		logger.Error("读取知识库失败: %v", err)
		return ApologyMessage
	}

	if answer, ok := match.Match(text, entries); ok {
		if w.runtime != nil {
			w.runtime.MarkAnswered()
		}
		return answer
	}

	requestID, err := w.store.CreateRequest(text, sessionID)
	if err != nil {
		logger.Error("创建求助请求失败: %v", err)
		return ApologyMessage
	}

	w.pending.Put(sessionID, text, w.sessionTimeout)
	if w.runtime != nil {
		w.runtime.MarkEscalated()
	}
	logger.Info("知识库未命中，已创建求助请求 #%d，会话 %s", requestID, sessionID)

	if err := w.notifier.Notify(ctx, notify.Payload{
		Kind:      notify.KindSupervisor,
		SessionID: sessionID,
		RequestID: requestID,
		Question:  text,
		Time:      time.Now(),
	}); err != nil {
		logger.Error("主管通知发送失败: %v", err)
	}

	return AckMessage
}

// Resolve 人工解决一个求助请求
// 请求转为 resolved 后把问答幂等写入知识库，两步是独立提交，不在同一事务内
// 如果本进程持有对应会话，再补发一条给顾客的模拟通知
func (w *Workflow) Resolve(ctx context.Context, requestID int64, answer, question string) error {
	updated, err := w.store.ResolveRequest(requestID, answer)
	if err != nil {
		return err
	}
	if !updated {
		return ErrRequestNotFound
	}

	inserted, err := w.store.InsertKnowledgeIfAbsent(question, answer)
	if err != nil {
		// 请求已解决，知识库回写失败只记日志
		logger.Error("知识库回写失败: %v", err)
	} else if inserted {
		logger.Info("知识库新增条目: %q", question)
	}

	if w.runtime != nil {
		w.runtime.MarkResolved()
	}

	if entry, ok := w.pending.RemoveByQuestion(question); ok {
		if err := w.notifier.Notify(ctx, notify.Payload{
			Kind:      notify.KindCaller,
			SessionID: entry.SessionID,
			RequestID: requestID,
			Question:  question,
			Answer:    answer,
			Time:      time.Now(),
		}); err != nil {
			logger.Error("顾客通知发送失败: %v", err)
		}
	}

	logger.Info("求助请求 #%d 已解决", requestID)
	return nil
}

// RunSweeper 周期巡检超时会话，直到 ctx 取消
func (w *Workflow) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()
	logger.Info("超时巡检已启动，周期 %v，会话超时 %v", w.sweepInterval, w.sessionTimeout)
	for {
		select {
		case <-ctx.Done():
			logger.Info("超时巡检已停止")
			return
		case <-ticker.C:
			w.sweepTimeouts(ctx, time.Now())
		}
	}
}

// sweepTimeouts 清理截至 now 已超时的会话
// 数据库按问题文本定位 pending 行，同问题的多行会被一并标记
func (w *Workflow) sweepTimeouts(ctx context.Context, now time.Time) {
	for _, entry := range w.pending.Expired(now) {
		w.pending.Remove(entry.SessionID)

		affected, err := w.store.MarkUnresolvedByQuestion(entry.Question)
		if err != nil {
			logger.Error("标记超时请求失败: %v", err)
			continue
		}
		if w.runtime != nil {
			w.runtime.MarkSwept()
		}
		logger.Warn("会话 %s 超时，问题 %q，标记 unresolved 共 %d 行", entry.SessionID, entry.Question, affected)

		if err := w.notifier.Notify(ctx, notify.Payload{
			Kind:      notify.KindTimeout,
			SessionID: entry.SessionID,
			Question:  entry.Question,
			Time:      now,
		}); err != nil {
			logger.Error("超时提示发送失败: %v", err)
		}
	}
}

// 本文件用于进程内运行态统计
// 数据只存在于当前进程，重启即丢失，不承担持久化职责
package state

import (
	"os"
	"sync"
	"time"

	"salon-agent/internal/models"
)

// 内存中保留数量的上限，用来限制运行态数据列表的长度
const maxNotifications = 200

// RuntimeState 保存接口与面板所需的内存运行态数据
type RuntimeState struct {
	mu sync.RWMutex // 读多写少，读用 RLock，写用 Lock

	host      string
	startedAt time.Time

	sessionsTotal  uint64
	answeredTotal  uint64
	escalatedTotal uint64
	resolvedTotal  uint64
	sweptTotal     uint64

	notifications []models.NotificationEvent
}

// NewRuntimeState 创建运行态容器
func NewRuntimeState() *RuntimeState {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &RuntimeState{
		host:      host,
		startedAt: time.Now(),
	}
}

// MarkSessionStarted 记录一次新会话
func (s *RuntimeState) MarkSessionStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionsTotal++
}

// MarkAnswered 记录一次知识库直接命中
func (s *RuntimeState) MarkAnswered() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answeredTotal++
}

// MarkEscalated 记录一次升级
func (s *RuntimeState) MarkEscalated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.escalatedTotal++
}

// MarkResolved 记录一次人工解决
func (s *RuntimeState) MarkResolved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolvedTotal++
}

// MarkSwept 记录一次超时清理
func (s *RuntimeState) MarkSwept() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweptTotal++
}

// RecordNotification 追加通知事件，超限后淘汰最旧记录
func (s *RuntimeState) RecordNotification(channel, kind, target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, models.NotificationEvent{
		Time:    time.Now(),
		Channel: channel,
		Kind:    kind,
		Target:  target,
	})
	if len(s.notifications) > maxNotifications {
		s.notifications = append(
			[]models.NotificationEvent(nil),
			s.notifications[len(s.notifications)-maxNotifications:]...,
		)
	}
}

// Dashboard 返回面板快照，切片均为拷贝
func (s *RuntimeState) Dashboard(pendingSessions int) models.DashboardSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	notifications := make([]models.NotificationEvent, len(s.notifications))
	copy(notifications, s.notifications)
	return models.DashboardSnapshot{
		Host:            s.host,
		StartedAt:       s.startedAt,
		SessionsTotal:   s.sessionsTotal,
		AnsweredTotal:   s.answeredTotal,
		EscalatedTotal:  s.escalatedTotal,
		ResolvedTotal:   s.resolvedTotal,
		SweptTotal:      s.sweptTotal,
		PendingSessions: pendingSessions,
		Notifications:   notifications,
	}
}

// 本文件用于进程内待跟进会话表
// 数据只存在于当前进程，重启即丢失，管理后台进程看不到这里的内容
package escalate

import (
	"sync"
	"time"
)

// PendingEntry 表示一个等待人工答案的会话
type PendingEntry struct {
	SessionID string
	Question  string
	CreatedAt time.Time
	Timeout   time.Duration
}

// PendingSessions 会话标识到待跟进条目的映射
// 显式构造后注入工作流，不做包级全局变量，方便多实例并行测试
type PendingSessions struct {
	mu      sync.Mutex
	entries map[string]PendingEntry
}

// NewPendingSessions 创建空会话表
func NewPendingSessions() *PendingSessions {
	return &PendingSessions{entries: make(map[string]PendingEntry)}
}

// Put 记录一个新的待跟进会话，同会话覆盖旧条目
func (p *PendingSessions) Put(sessionID, question string, timeout time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[sessionID] = PendingEntry{
		SessionID: sessionID,
		Question:  question,
		CreatedAt: time.Now(),
		Timeout:   timeout,
	}
}

// Remove 删除指定会话
func (p *PendingSessions) Remove(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, sessionID)
}

// RemoveByQuestion 按问题原文删除第一个匹配的会话并返回它
// 解决路径只有问题文本可用，同问题并发会话时命中哪个是不确定的
func (p *PendingSessions) RemoveByQuestion(question string) (PendingEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, entry := range p.entries {
		if entry.Question == question {
			delete(p.entries, id)
			return entry, true
		}
	}
	return PendingEntry{}, false
}

// Expired 返回截至 now 已超时的会话拷贝
func (p *PendingSessions) Expired(now time.Time) []PendingEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []PendingEntry
	for _, entry := range p.entries {
		if now.Sub(entry.CreatedAt) > entry.Timeout {
			out = append(out, entry)
		}
	}
	return out
}

// Len 返回当前待跟进会话数量
func (p *PendingSessions) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

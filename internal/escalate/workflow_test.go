// 本文件用于升级工作流测试
package escalate

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"salon-agent/internal/models"
	"salon-agent/internal/notify"
	"salon-agent/internal/state"
	"salon-agent/internal/store"
)

// recordingNotifier 记录所有通知，供断言
type recordingNotifier struct {
	mu       sync.Mutex
	payloads []notify.Payload
}

func (r *recordingNotifier) Notify(_ context.Context, payload notify.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *recordingNotifier) byKind(kind string) []notify.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Payload
	for _, p := range r.payloads {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

func newTestWorkflow(t *testing.T) (*Workflow, *store.Store, *recordingNotifier) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "db.sqlite"))
	if err != nil {
		t.Fatalf("open store failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	rec := &recordingNotifier{}
	w := NewWorkflow(st, rec, state.NewRuntimeState(), Options{
		SessionTimeout: time.Minute,
		SweepInterval:  time.Second,
	})
	return w, st, rec
}

func TestHandleInput_KnowledgeHit(t *testing.T) {
	w, st, rec := newTestWorkflow(t)
	if err := st.InsertKnowledge("What are the opening hours?", "9 AM to 6 PM"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	reply := w.HandleInput(context.Background(), "what are the opening hours?", "session-1")
	if reply != "9 AM to 6 PM" {
		t.Fatalf("expected knowledge answer, got %q", reply)
	}

	// 命中不产生求助请求，也不发通知
	all, err := st.ListRequests()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no help requests, got %d", len(all))
	}
	if len(rec.payloads) != 0 {
		t.Fatalf("expected no notifications, got %d", len(rec.payloads))
	}
	if w.Pending().Len() != 0 {
		t.Fatal("expected no pending sessions")
	}
}

func TestHandleInput_MissEscalates(t *testing.T) {
	w, st, rec := newTestWorkflow(t)

	reply := w.HandleInput(context.Background(), "Do you sell hair dye bottles?", "session-1")
	if reply != AckMessage {
		t.Fatalf("expected ack message, got %q", reply)
	}

	pending, err := st.ListPendingRequests()
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending request, got %d", len(pending))
	}
	if pending[0].Question != "Do you sell hair dye bottles?" || pending[0].CallerID != "session-1" {
		t.Fatalf("unexpected request row: %+v", pending[0])
	}

	sup := rec.byKind(notify.KindSupervisor)
	if len(sup) != 1 {
		t.Fatalf("expected 1 supervisor notification, got %d", len(sup))
	}
	if sup[0].RequestID != pending[0].ID || sup[0].Question != pending[0].Question {
		t.Fatalf("unexpected supervisor payload: %+v", sup[0])
	}

	if w.Pending().Len() != 1 {
		t.Fatal("expected session to be tracked for follow-up")
	}
}

func TestResolve_WritesBackAndNotifiesCaller(t *testing.T) {
	w, st, rec := newTestWorkflow(t)
	ctx := context.Background()

	w.HandleInput(ctx, "Do you do bridal makeup?", "session-1")
	pending, _ := st.ListPendingRequests()
	requestID := pending[0].ID

	if err := w.Resolve(ctx, requestID, "Yes, with advance booking.", "Do you do bridal makeup?"); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	req, _, err := st.GetRequest(requestID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if req.Status != models.StatusResolved || req.Answer != "Yes, with advance booking." {
		t.Fatalf("unexpected request state: %+v", req)
	}

	entry, found, err := st.GetKnowledge("Do you do bridal makeup?")
	if err != nil || !found {
		t.Fatalf("expected knowledge write-back, found=%v err=%v", found, err)
	}
	if entry.Answer != "Yes, with advance booking." {
		t.Fatalf("unexpected knowledge answer: %q", entry.Answer)
	}

	caller := rec.byKind(notify.KindCaller)
	if len(caller) != 1 {
		t.Fatalf("expected 1 caller notification, got %d", len(caller))
	}
	if caller[0].SessionID != "session-1" || caller[0].Answer != "Yes, with advance booking." {
		t.Fatalf("unexpected caller payload: %+v", caller[0])
	}

	if w.Pending().Len() != 0 {
		t.Fatal("expected session to be released after resolve")
	}

	// 后续同问题直接命中知识库
	reply := w.HandleInput(ctx, "Do you do bridal makeup?", "session-2")
	if reply != "Yes, with advance booking." {
		t.Fatalf("expected knowledge hit after resolve, got %q", reply)
	}
}

func TestResolve_UnknownOrTerminalRequest(t *testing.T) {
	w, st, _ := newTestWorkflow(t)
	ctx := context.Background()

	if err := w.Resolve(ctx, 999, "answer", "question"); err != ErrRequestNotFound {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}

	w.HandleInput(ctx, "q", "session-1")
	pending, _ := st.ListPendingRequests()
	if err := w.Resolve(ctx, pending[0].ID, "a", "q"); err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	// 终态请求二次解决返回同一个错误
	if err := w.Resolve(ctx, pending[0].ID, "b", "q"); err != ErrRequestNotFound {
		t.Fatalf("expected ErrRequestNotFound on terminal row, got %v", err)
	}
}

func TestResolve_KeepsExistingKnowledge(t *testing.T) {
	w, st, _ := newTestWorkflow(t)
	ctx := context.Background()

	if err := st.InsertKnowledge("known question", "old answer"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	id, err := st.CreateRequest("known question", "session-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := w.Resolve(ctx, id, "new answer", "known question"); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	// 知识库写入是幂等追加，不覆盖旧答案
	entry, _, err := st.GetKnowledge("known question")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if entry.Answer != "old answer" {
		t.Fatalf("existing knowledge overwritten: %q", entry.Answer)
	}
}

func TestSweepTimeouts(t *testing.T) {
	w, st, rec := newTestWorkflow(t)
	ctx := context.Background()

	w.HandleInput(ctx, "Do you repair wigs?", "session-1")
	pending, _ := st.ListPendingRequests()
	requestID := pending[0].ID

	// 未到超时点不做任何事
	w.sweepTimeouts(ctx, time.Now())
	if w.Pending().Len() != 1 {
		t.Fatal("expected session to survive before timeout")
	}

	w.sweepTimeouts(ctx, time.Now().Add(2*time.Minute))

	req, _, err := st.GetRequest(requestID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if req.Status != models.StatusUnresolved {
		t.Fatalf("expected unresolved status, got %q", req.Status)
	}
	if req.ResolvedAt.IsZero() {
		t.Fatal("expected timeout to stamp resolved_at")
	}
	if w.Pending().Len() != 0 {
		t.Fatal("expected session to be dropped after sweep")
	}
	if len(rec.byKind(notify.KindTimeout)) != 1 {
		t.Fatal("expected 1 timeout notification")
	}

	// 超时后补答为时已晚
	if err := w.Resolve(ctx, requestID, "late answer", "Do you repair wigs?"); err != ErrRequestNotFound {
		t.Fatalf("expected ErrRequestNotFound after sweep, got %v", err)
	}
	if len(rec.byKind(notify.KindCaller)) != 0 {
		t.Fatal("expected no caller notification after sweep")
	}
}

func TestSweepTimeouts_SameQuestionTwoSessions(t *testing.T) {
	w, st, _ := newTestWorkflow(t)
	ctx := context.Background()

	// 数据库按问题文本定位，两个会话的行会被任一会话的超时一并标记
	w.HandleInput(ctx, "same question", "session-a")
	w.HandleInput(ctx, "same question", "session-b")

	w.sweepTimeouts(ctx, time.Now().Add(2*time.Minute))

	pending, err := st.ListPendingRequests()
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected all rows marked, got %d pending", len(pending))
	}
	if w.Pending().Len() != 0 {
		t.Fatal("expected both sessions dropped")
	}
}

func TestPendingSessions(t *testing.T) {
	p := NewPendingSessions()
	p.Put("s1", "q1", time.Minute)
	p.Put("s2", "q2", time.Minute)
	if p.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", p.Len())
	}

	// 同会话覆盖旧条目
	p.Put("s1", "q1b", time.Minute)
	if p.Len() != 2 {
		t.Fatalf("expected overwrite, got %d entries", p.Len())
	}

	entry, ok := p.RemoveByQuestion("q2")
	if !ok || entry.SessionID != "s2" {
		t.Fatalf("unexpected removal result: %+v ok=%v", entry, ok)
	}
	if _, ok := p.RemoveByQuestion("q2"); ok {
		t.Fatal("expected second removal to miss")
	}

	p.Remove("s1")
	if p.Len() != 0 {
		t.Fatalf("expected empty table, got %d", p.Len())
	}
}

func TestPendingSessions_Expired(t *testing.T) {
	p := NewPendingSessions()
	p.Put("s1", "q1", time.Minute)
	p.Put("s2", "q2", time.Hour)

	expired := p.Expired(time.Now().Add(5 * time.Minute))
	if len(expired) != 1 || expired[0].SessionID != "s1" {
		t.Fatalf("unexpected expired set: %+v", expired)
	}
	// Expired 只读，不删除
	if p.Len() != 2 {
		t.Fatalf("expected Expired to leave entries, got %d", p.Len())
	}
}

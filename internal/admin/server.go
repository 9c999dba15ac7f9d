// 本文件用于管理后台 HTTP 服务
// 运营人员在这里查看求助请求 提交人工答案 并浏览知识库
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"salon-agent/internal/escalate"
	"salon-agent/internal/logger"
	"salon-agent/internal/models"
	"salon-agent/internal/state"
	"salon-agent/internal/store"
	"salon-agent/internal/sysinfo"
)

// 超过该时长仍 pending 的请求在页面上按 unresolved 展示，但不改库
const displayStaleAfter = 1 * time.Hour

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Server wraps the HTTP admin server.
type Server struct {
	httpServer *http.Server
}

type handler struct {
	cfg       *models.Config
	store     *store.Store
	workflow  *escalate.Workflow
	runtime   *state.RuntimeState
	collector *sysinfo.Collector
}

// NewServer builds the admin HTTP server.
func NewServer(cfg *models.Config, st *store.Store, workflow *escalate.Workflow, runtime *state.RuntimeState, collector *sysinfo.Collector) *Server {
	h := &handler{cfg: cfg, store: st, workflow: workflow, runtime: runtime, collector: collector}
	srv := &http.Server{
		Addr:         cfg.AdminBind,
		Handler:      h.routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return &Server{httpServer: srv}
}

func (h *handler) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.index)
	mux.HandleFunc("/resolve/", h.resolve)
	mux.HandleFunc("/api/dashboard", h.dashboard)
	return mux
}

// Start boots the admin server asynchronously.
func (s *Server) Start() {
	go func() {
		logger.Info("管理后台监听 %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("管理后台异常退出: %v", err)
		}
	}()
}

// Shutdown gracefully stops the admin server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// requestView 带展示状态的请求行
type requestView struct {
	models.HelpRequest
	DisplayStatus string
}

type indexData struct {
	Flash   *flashMessage
	Pending []models.HelpRequest
	History []requestView
	KB      []models.KnowledgeEntry
}

type resolveData struct {
	Flash *flashMessage
	Req   models.HelpRequest
}

// index 列表页：待处理请求 全量历史 知识库
func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	// 根路由兜底所有未注册路径，其余一律 404
	if r.URL.Path != "/" {
		h.renderNotFound(w)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pending, err := h.store.ListPendingRequests()
	if err != nil {
		h.renderError(w, err)
		return
	}
	history, err := h.store.ListRequests()
	if err != nil {
		h.renderError(w, err)
		return
	}
	entries, err := h.store.ListKnowledge()
	if err != nil {
		h.renderError(w, err)
		return
	}

	now := time.Now()
	views := make([]requestView, 0, len(history))
	for _, req := range history {
		views = append(views, requestView{
			HelpRequest:   req,
			DisplayStatus: displayStatus(req, now),
		})
	}

	data := indexData{
		Flash:   popFlash(w, r),
		Pending: pending,
		History: views,
		KB:      store.SortKnowledgeByQuestion(entries),
	}
	h.renderTemplate(w, http.StatusOK, "index.html", data)
}

// resolve 解决页：GET 渲染表单，POST 提交答案
func (h *handler) resolve(w http.ResponseWriter, r *http.Request) {
	idRaw := strings.TrimPrefix(r.URL.Path, "/resolve/")
	id, err := strconv.ParseInt(idRaw, 10, 64)
	if err != nil || id <= 0 {
		h.renderNotFound(w)
		return
	}

	req, found, err := h.store.GetRequest(id)
	if err != nil {
		h.renderError(w, err)
		return
	}
	if !found {
		setFlash(w, flashError, "Request not found")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.renderTemplate(w, http.StatusOK, "resolve.html", resolveData{
			Flash: popFlash(w, r),
			Req:   req,
		})
	case http.MethodPost:
		h.handleResolveSubmit(w, r, id, req)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *handler) handleResolveSubmit(w http.ResponseWriter, r *http.Request, id int64, req models.HelpRequest) {
	answer := strings.TrimSpace(r.FormValue("answer"))
	if answer == "" {
		// 空答案不落库，带错误提示重新渲染表单
		h.renderTemplate(w, http.StatusOK, "resolve.html", resolveData{
			Flash: &flashMessage{Category: flashError, Message: "Answer cannot be empty"},
			Req:   req,
		})
		return
	}

	if err := h.workflow.Resolve(r.Context(), id, answer, req.Question); err != nil {
		if err == escalate.ErrRequestNotFound {
			setFlash(w, flashError, "Request not found")
		} else {
			logger.Error("解决求助请求失败: %v", err)
			setFlash(w, flashError, "Failed to resolve request, please try again")
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	setFlash(w, flashSuccess, fmt.Sprintf("Request #%d resolved successfully", id))
	http.Redirect(w, r, "/", http.StatusFound)
}

// dashboard 运行态面板 JSON 接口
func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	snapshot := h.runtime.Dashboard(h.workflow.Pending().Len())
	if h.collector != nil {
		if sys, err := h.collector.Snapshot(); err == nil {
			snapshot.System = &sys
		}
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// displayStatus 计算展示状态，陈旧的 pending 行展示为 unresolved
func displayStatus(req models.HelpRequest, now time.Time) string {
	if req.Status == models.StatusPending && now.Sub(req.CreatedAt) > displayStaleAfter {
		return models.StatusUnresolved
	}
	return req.Status
}

func (h *handler) renderTemplate(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		logger.Error("渲染模板 %s 失败: %v", name, err)
	}
}

func (h *handler) renderNotFound(w http.ResponseWriter) {
	h.renderTemplate(w, http.StatusNotFound, "404.html", nil)
}

func (h *handler) renderError(w http.ResponseWriter, err error) {
	logger.Error("管理后台处理失败: %v", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

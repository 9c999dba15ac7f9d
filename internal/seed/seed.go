// 本文件用于知识库种子文件导入与热加载
package seed

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v2"

	"salon-agent/internal/logger"
	"salon-agent/internal/store"
)

// Entry 种子文件中的一条问答
type Entry struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// Import 把种子文件幂等导入知识库，返回本次新增条数
// 已存在的问题静默跳过，重复导入不会产生重复行
func Import(st *store.Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("读取种子文件失败: %w", err)
	}

	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("解析种子文件失败: %w", err)
	}

	imported := 0
	for _, entry := range entries {
		if entry.Question == "" || entry.Answer == "" {
			logger.Warn("跳过不完整的种子条目: %+v", entry)
			continue
		}
		inserted, err := st.InsertKnowledgeIfAbsent(entry.Question, entry.Answer)
		if err != nil {
			return imported, err
		}
		if inserted {
			imported++
		}
	}
	return imported, nil
}

// Watcher 监控种子文件变化并自动重新导入
type Watcher struct {
	watcher *fsnotify.Watcher
	store   *store.Store
	path    string
}

// NewWatcher 创建种子文件监控器
// 监听所在目录而不是文件本身，编辑器原子替换时事件才不会丢
func NewWatcher(st *store.Store, path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("添加种子目录监控失败: %w", err)
	}
	return &Watcher{watcher: fw, store: st, path: path}, nil
}

// Start 启动事件处理协程
func (w *Watcher) Start() {
	logger.Info("开始监控种子文件: %s", w.path)
	go w.handleEvents()
}

// Close 关闭监控器
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handleEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("种子文件监控错误: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	logger.Debug("收到种子文件事件: %s, 操作: %s", event.Name, event.Op.String())
	imported, err := Import(w.store, w.path)
	if err != nil {
		logger.Error("重新导入种子文件失败: %v", err)
		return
	}
	logger.Info("种子文件已重新导入，新增 %d 条", imported)
}

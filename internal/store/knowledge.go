// 本文件用于知识库表的增查操作
package store

import (
	"database/sql"
	"fmt"
	"sort"

	"salon-agent/internal/models"
)

// ListKnowledge 返回全部知识条目的拷贝，按主键排序
func (s *Store) ListKnowledge() ([]models.KnowledgeEntry, error) {
	rows, err := s.db.Query(`SELECT id, question, answer FROM knowledge ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("查询知识库失败: %w", err)
	}
	defer rows.Close()

	var entries []models.KnowledgeEntry
	for rows.Next() {
		var entry models.KnowledgeEntry
		if err := rows.Scan(&entry.ID, &entry.Question, &entry.Answer); err != nil {
			return nil, fmt.Errorf("读取知识条目失败: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历知识条目失败: %w", err)
	}
	return entries, nil
}

// GetKnowledge 按问题原文精确查找
func (s *Store) GetKnowledge(question string) (models.KnowledgeEntry, bool, error) {
	var entry models.KnowledgeEntry
	err := s.db.QueryRow(
		`SELECT id, question, answer FROM knowledge WHERE question = ?`, question,
	).Scan(&entry.ID, &entry.Question, &entry.Answer)
	if err == sql.ErrNoRows {
		return models.KnowledgeEntry{}, false, nil
	}
	if err != nil {
		return models.KnowledgeEntry{}, false, fmt.Errorf("查询知识条目失败: %w", err)
	}
	return entry, true, nil
}

// InsertKnowledge 插入新条目，问题重复时返回错误
func (s *Store) InsertKnowledge(question, answer string) error {
	if _, err := s.db.Exec(
		`INSERT INTO knowledge(question, answer) VALUES(?, ?)`, question, answer,
	); err != nil {
		return fmt.Errorf("写入知识条目失败: %w", err)
	}
	return nil
}

// InsertKnowledgeIfAbsent 幂等写入
// 唯一约束由数据库保证，重复问题静默忽略而不是报错
// 返回值表示本次是否真正插入了新行
func (s *Store) InsertKnowledgeIfAbsent(question, answer string) (bool, error) {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO knowledge(question, answer) VALUES(?, ?)`, question, answer,
	)
	if err != nil {
		return false, fmt.Errorf("写入知识条目失败: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("读取写入结果失败: %w", err)
	}
	return affected > 0, nil
}

// SortKnowledgeByQuestion 返回按问题字典序排序的拷贝，供页面稳定展示
func SortKnowledgeByQuestion(entries []models.KnowledgeEntry) []models.KnowledgeEntry {
	out := make([]models.KnowledgeEntry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Question < out[j].Question
	})
	return out
}

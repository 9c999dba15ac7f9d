// 本文件用于求助请求表的生命周期操作
package store

import (
	"database/sql"
	"fmt"

	"salon-agent/internal/models"
)

// CreateRequest 创建 pending 状态的求助请求，返回自增主键
func (s *Store) CreateRequest(question, callerID string) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO help_requests(question, caller_id, status, created_at) VALUES(?, ?, ?, ?)`,
		question, callerID, models.StatusPending, nowRFC3339(),
	)
	if err != nil {
		return 0, fmt.Errorf("创建求助请求失败: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("读取请求主键失败: %w", err)
	}
	return id, nil
}

// GetRequest 按主键查询
func (s *Store) GetRequest(id int64) (models.HelpRequest, bool, error) {
	row := s.db.QueryRow(
		`SELECT id, question, caller_id, status, answer, created_at, resolved_at
		 FROM help_requests WHERE id = ?`, id,
	)
	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return models.HelpRequest{}, false, nil
	}
	if err != nil {
		return models.HelpRequest{}, false, fmt.Errorf("查询求助请求失败: %w", err)
	}
	return req, true, nil
}

// ListRequests 返回全部请求，新请求在前
func (s *Store) ListRequests() ([]models.HelpRequest, error) {
	return s.queryRequests(
		`SELECT id, question, caller_id, status, answer, created_at, resolved_at
		 FROM help_requests ORDER BY id DESC`,
	)
}

// ListPendingRequests 返回所有待处理请求，先到先处理
func (s *Store) ListPendingRequests() ([]models.HelpRequest, error) {
	return s.queryRequests(
		`SELECT id, question, caller_id, status, answer, created_at, resolved_at
		 FROM help_requests WHERE status = ? ORDER BY id`,
		models.StatusPending,
	)
}

// ResolveRequest 将 pending 请求转为 resolved 并落盘答案
// WHERE 条件同时约束状态，终态行不会被二次改写
// 返回 false 表示没有可解决的行（不存在或已进入终态）
func (s *Store) ResolveRequest(id int64, answer string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE help_requests SET status = ?, answer = ?, resolved_at = ?
		 WHERE id = ? AND status = ?`,
		models.StatusResolved, answer, nowRFC3339(), id, models.StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("更新求助请求失败: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("读取更新结果失败: %w", err)
	}
	return affected > 0, nil
}

// MarkUnresolvedByQuestion 按问题原文把 pending 请求标记为 unresolved
// 超时巡检按问题文本而不是请求主键定位行，同问题并发会话会被一并命中
func (s *Store) MarkUnresolvedByQuestion(question string) (int64, error) {
	result, err := s.db.Exec(
		`UPDATE help_requests SET status = ?, resolved_at = ?
		 WHERE question = ? AND status = ?`,
		models.StatusUnresolved, nowRFC3339(), question, models.StatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("标记超时请求失败: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("读取更新结果失败: %w", err)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (models.HelpRequest, error) {
	var req models.HelpRequest
	var answer sql.NullString
	var createdAt string
	var resolvedAt sql.NullString
	if err := row.Scan(
		&req.ID, &req.Question, &req.CallerID, &req.Status,
		&answer, &createdAt, &resolvedAt,
	); err != nil {
		return models.HelpRequest{}, err
	}
	if answer.Valid {
		req.Answer = answer.String
	}
	req.CreatedAt = parseTimestamp(createdAt)
	if resolvedAt.Valid {
		req.ResolvedAt = parseTimestamp(resolvedAt.String)
	}
	return req, nil
}

func (s *Store) queryRequests(query string, args ...any) ([]models.HelpRequest, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询求助请求失败: %w", err)
	}
	defer rows.Close()

	var out []models.HelpRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("读取求助请求失败: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历求助请求失败: %w", err)
	}
	return out, nil
}

// 本文件用于一次性提示消息
// 用短寿命 Cookie 模拟 Flask 的 flash 行为，读取后立刻清除
package admin

import (
	"encoding/base64"
	"net/http"
	"strings"
)

const flashCookieName = "salon_flash"

// 提示类别
const (
	flashSuccess = "success"
	flashError   = "error"
)

type flashMessage struct {
	Category string
	Message  string
}

// setFlash 写入一条提示，随下一次页面渲染展示
func setFlash(w http.ResponseWriter, category, message string) {
	value := base64.URLEncoding.EncodeToString([]byte(category + "|" + message))
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60,
	})
}

// popFlash 读取并清除提示，没有提示时返回 nil
func popFlash(w http.ResponseWriter, r *http.Request) *flashMessage {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	decoded, err := base64.URLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil
	}
	return &flashMessage{Category: parts[0], Message: parts[1]}
}

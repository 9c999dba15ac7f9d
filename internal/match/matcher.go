// 本文件用于知识库匹配
package match

import (
	"strings"

	"salon-agent/internal/models"
)

// 近似匹配阈值，比例必须严格大于该值才算命中
const similarityThreshold = 0.8

// bucket 主题桶，关键词均为小写子串
type bucket struct {
	tag      string
	keywords []string
}

// topicBuckets 按优先级排列的主题桶表
// 匹配按表顺序进行，先命中的桶先生效
var topicBuckets = []bucket{
	{tag: "hours", keywords: []string{"hour", "timing", "open", "close", "when"}},
	{tag: "services", keywords: []string{"service", "offer", "provide", "treatment"}},
	{tag: "haircut", keywords: []string{"haircut", "price", "cost", "charge", "cut"}},
	{tag: "appointment", keywords: []string{"walk-in", "walkin", "appointment", "book", "schedule"}},
}

// Match 在知识库中为输入文本查找答案
// 三个阶段依次尝试，先命中先返回：
// 1. 大小写不敏感的全文相等
// 2. 归一化相似度比例超过阈值
// 3. 主题桶关键词命中（输入与候选问题落在同一个桶）
// 三个阶段都未命中时返回 false，由上层走升级流程
func Match(input string, entries []models.KnowledgeEntry) (string, bool) {
	if len(entries) == 0 {
		return "", false
	}
	normalized := strings.ToLower(strings.TrimSpace(input))

	// 阶段一：精确匹配
	for _, entry := range entries {
		if normalized == strings.ToLower(strings.TrimSpace(entry.Question)) {
			return entry.Answer, true
		}
	}

	// 阶段二：近似匹配，阈值为开区间边界
	for _, entry := range entries {
		ratio := SimilarityRatio(normalized, strings.ToLower(entry.Question))
		if ratio > similarityThreshold {
			return entry.Answer, true
		}
	}

	// 阶段三：主题桶匹配
	// 关键词按子串判断而不是分词，"open" 也会命中 "reopening"
	for _, b := range topicBuckets {
		if !containsAny(normalized, b.keywords) {
			continue
		}
		for _, entry := range entries {
			if containsAny(strings.ToLower(entry.Question), b.keywords) {
				return entry.Answer, true
			}
		}
	}

	return "", false
}

// SimilarityRatio 计算两段文本的归一化相似度，取值 [0,1]
// 比例定义为 2*LCS/(len(a)+len(b))，对两个入参对称
func SimilarityRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	lcs := lcsLength(ra, rb)
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}

// lcsLength 计算最长公共子序列长度，滚动数组降内存
func lcsLength(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

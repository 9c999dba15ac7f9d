// 本文件用于知识库匹配测试
package match

import (
	"testing"

	"salon-agent/internal/models"
)

func openingHoursKB() []models.KnowledgeEntry {
	return []models.KnowledgeEntry{
		{ID: 1, Question: "What are the opening hours?", Answer: "We are open from 9 AM to 6 PM, Monday to Saturday."},
	}
}

func TestMatch_ExactCaseInsensitive(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		hit   bool
	}{
		{
			name:  "lowercase input",
			input: "what are the opening hours?",
			want:  "We are open from 9 AM to 6 PM, Monday to Saturday.",
			hit:   true,
		},
		{
			name:  "uppercase input",
			input: "WHAT ARE THE OPENING HOURS?",
			want:  "We are open from 9 AM to 6 PM, Monday to Saturday.",
			hit:   true,
		},
		{
			name:  "surrounding spaces",
			input: "  What are the opening hours?  ",
			want:  "We are open from 9 AM to 6 PM, Monday to Saturday.",
			hit:   true,
		},
		{
			name:  "unrelated input",
			input: "Do you sell hair dye bottles?",
			hit:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, hit := Match(tc.input, openingHoursKB())
			if hit != tc.hit {
				t.Fatalf("expected hit=%v, got %v", tc.hit, hit)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestMatch_NearExact(t *testing.T) {
	// 与库内问题只差一个问号，相似度远超阈值但不满足全等
	got, hit := Match("What are the opening hours", openingHoursKB())
	if !hit {
		t.Fatal("expected near-exact match")
	}
	if got != "We are open from 9 AM to 6 PM, Monday to Saturday." {
		t.Fatalf("unexpected answer: %q", got)
	}
}

func TestMatch_SimilarityBoundaryIsExclusive(t *testing.T) {
	// ratio = 2*4/(4+6) = 0.8，处在边界上，不允许命中
	entries := []models.KnowledgeEntry{{ID: 1, Question: "abcd", Answer: "boundary"}}
	if ratio := SimilarityRatio("abcdxx", "abcd"); ratio != 0.8 {
		t.Fatalf("test setup broken, expected ratio 0.8, got %v", ratio)
	}
	if _, hit := Match("abcdxx", entries); hit {
		t.Fatal("ratio exactly 0.8 must not match")
	}
}

func TestSimilarityRatio(t *testing.T) {
	cases := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "identical", a: "hello", b: "hello", want: 1},
		{name: "both empty", a: "", b: "", want: 1},
		{name: "one empty", a: "hello", b: "", want: 0},
		{name: "disjoint", a: "abc", b: "xyz", want: 0},
		{name: "partial", a: "abcd", b: "abcdxx", want: 0.8},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SimilarityRatio(tc.a, tc.b)
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			// 两个入参对称
			if rev := SimilarityRatio(tc.b, tc.a); rev != got {
				t.Fatalf("ratio not symmetric: %v vs %v", got, rev)
			}
		})
	}
}

func TestMatch_KeywordBucket(t *testing.T) {
	entries := []models.KnowledgeEntry{
		{ID: 1, Question: "What are your timings?", Answer: "We are open from 9 AM to 6 PM."},
		{ID: 2, Question: "How much does a haircut cost?", Answer: "A haircut costs $25."},
	}

	cases := []struct {
		name  string
		input string
		want  string
		hit   bool
	}{
		{
			name:  "hours keyword maps to timings question",
			input: "Hey what r ur hours",
			want:  "We are open from 9 AM to 6 PM.",
			hit:   true,
		},
		{
			name:  "price keyword maps to haircut question",
			input: "How much do you charge?",
			want:  "A haircut costs $25.",
			hit:   true,
		},
		{
			name:  "no shared bucket",
			input: "Do you sell hair dye bottles?",
			hit:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, hit := Match(tc.input, entries)
			if hit != tc.hit {
				t.Fatalf("expected hit=%v, got %v", tc.hit, hit)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestMatch_KeywordIsSubstringBased(t *testing.T) {
	// 关键词按子串匹配，"open" 同样命中 "reopening"
	entries := []models.KnowledgeEntry{
		{ID: 1, Question: "Are you open on Sundays?", Answer: "We are closed on Sundays."},
	}
	got, hit := Match("When are you reopening the shop", entries)
	if !hit {
		t.Fatal("expected substring keyword match")
	}
	if got != "We are closed on Sundays." {
		t.Fatalf("unexpected answer: %q", got)
	}
}

func TestMatch_EmptyKnowledgeBase(t *testing.T) {
	if _, hit := Match("What are the opening hours?", nil); hit {
		t.Fatal("empty knowledge base must never match")
	}
}

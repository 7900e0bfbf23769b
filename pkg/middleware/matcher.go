package middleware

import (
	"fmt"
	"regexp"
)

// RouteMatcher は認証不要の公開ルートを判定する。
// 生成後は変更されず、複数のリクエストから同時に参照してよい。
type RouteMatcher struct {
	// patterns は設定された順序のままの正規表現文字列。
	patterns []string
	// compiled はパス全体に一致するようアンカーを付けたpatterns。
	compiled []*regexp.Regexp
}

// NewRouteMatcher は公開ルートの正規表現リストからRouteMatcherを生成する。
// 各パターンはパス全体に一致した場合のみマッチする（部分一致はしない）。
func NewRouteMatcher(patterns []string) (*RouteMatcher, error) {
	m := &RouteMatcher{
		patterns: make([]string, 0, len(patterns)),
		compiled: make([]*regexp.Regexp, 0, len(patterns)),
	}
	for _, p := range patterns {
		re, err := regexp.Compile(`^(?:` + p + `)$`)
		if err != nil {
			return nil, fmt.Errorf("公開ルートのパターンが不正: %q: %w", p, err)
		}
		m.patterns = append(m.patterns, p)
		m.compiled = append(m.compiled, re)
	}
	return m, nil
}

// IsPublic はpathがいずれかの公開ルートに完全一致する場合にtrueを返す。
// 最初に一致したパターンで評価を打ち切る。
func (m *RouteMatcher) IsPublic(path string) bool {
	for _, re := range m.compiled {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// Patterns は設定された公開ルートのコピーを返す。
func (m *RouteMatcher) Patterns() []string {
	out := make([]string, len(m.patterns))
	copy(out, m.patterns)
	return out
}

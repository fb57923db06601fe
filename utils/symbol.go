package utils

import (
	"fmt"
	"strings"
)

// NormalizeSymbols 去空格、转大写、去重, 保持首次出现的顺序
// 股票代码只允许字母和数字, 如 VNM、E1VFVN30
func NormalizeSymbols(symbols []string) ([]string, error) {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))

	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		for _, r := range s {
			if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
				return nil, fmt.Errorf("invalid symbol: %q", s)
			}
		}
		seen[s] = true
		out = append(out, s)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no valid symbols")
	}
	return out, nil
}

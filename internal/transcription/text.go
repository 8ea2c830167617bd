package transcription

import "strings"

// DeduplicateLines 按行去重：丢弃空白行，保留首次出现顺序，重新拼接。
// 确认订单前调用，避免同一道菜被念两遍后重复入库。
func DeduplicateLines(text string) string {
	lines := strings.Split(text, "\n")
	seen := make(map[string]struct{}, len(lines))
	unique := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		unique = append(unique, line)
	}
	return strings.Join(unique, "\n")
}

// ValidateAPIKey 纯语法校验：去空白后非空且以 sk- 开头。
// 不会向远端验证凭证是否真实有效。
func ValidateAPIKey(apiKey string) bool {
	trimmed := strings.TrimSpace(apiKey)
	return trimmed != "" && strings.HasPrefix(trimmed, "sk-")
}

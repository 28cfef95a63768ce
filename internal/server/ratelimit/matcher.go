package ratelimit

import "strings"

// MatchRule returns the first rule covering method and path, or nil.
func MatchRule(method, path string, rules []Rule) *Rule {
	for i := range rules {
		rule := &rules[i]
		if rule.Method != "" && rule.Method != method {
			continue
		}
		if path == rule.Prefix || strings.HasPrefix(path, strings.TrimSuffix(rule.Prefix, "/")+"/") {
			return rule
		}
	}
	return nil
}

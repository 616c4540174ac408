package services

import (
	"regexp"
	"strings"
)

// 英文违禁词按整词匹配，避免 "assassin"、"class" 这类误伤
var asciiBlocklist = []string{
	"fuck", "shit", "bitch", "bastard", "asshole", "ass", "cunt", "dick", "whore",
}

// 中文没有词边界，违禁词按子串匹配
var cjkBlocklist = []string{
	"傻逼", "妈的", "操你", "滚蛋", "贱人",
}

var profanityRe = compileBlocklist(asciiBlocklist)

func compileBlocklist(words []string) *regexp.Regexp {
	escaped := make([]string, 0, len(words))
	for _, w := range words {
		escaped = append(escaped, regexp.QuoteMeta(w))
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
}

// ContainsProfanity 判断内容是否命中违禁词
func ContainsProfanity(content string) bool {
	if profanityRe.MatchString(content) {
		return true
	}
	for _, w := range cjkBlocklist {
		if strings.Contains(content, w) {
			return true
		}
	}
	return false
}

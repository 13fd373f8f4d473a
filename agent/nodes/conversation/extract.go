package conversationnode

import (
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
)

var (
	englishNamePattern = regexp.MustCompile(`(?i)\b(?:my name is|i'm|i am)\s+(\p{L}+)`)
	chineseNamePattern = regexp.MustCompile(`我叫\s*([A-Za-z]+|\p{Han}{1,4})`)
	locationPattern    = regexp.MustCompile(`(?i)\b(?:live in|from)\s+([^,.!?;\n。，！？；]+)`)
	emailFindPattern   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	userIDPattern      = regexp.MustCompile(`(?i)\buser_id\s*[=:]\s*([A-Za-z0-9_\-]+)`)
	bareUserIDPattern  = regexp.MustCompile(`(?i)\b(u_\d+)\b`)
)

// notAName filters "i'm <word>" phrases that are not introductions.
var notAName = map[string]bool{
	"from": true, "in": true, "at": true, "a": true, "an": true, "the": true,
	"not": true, "looking": true, "trying": true, "here": true, "so": true,
	"very": true, "just": true, "still": true, "sorry": true, "interested": true,
}

// ExtractUserInfo scans human messages oldest first; later mentions win.
func ExtractUserInfo(messages []string) contractx.UserInfo {
	info := contractx.UserInfo{}
	for _, msg := range messages {
		if m := englishNamePattern.FindStringSubmatch(msg); m != nil && !notAName[strings.ToLower(m[1])] {
			info[contractx.UserInfoName] = m[1]
		}
		if m := chineseNamePattern.FindStringSubmatch(msg); m != nil {
			info[contractx.UserInfoName] = m[1]
		}
		if m := locationPattern.FindStringSubmatch(msg); m != nil {
			if loc := strings.TrimSpace(m[1]); loc != "" {
				info[contractx.UserInfoLocation] = loc
			}
		}
		if m := emailFindPattern.FindString(msg); m != "" {
			info[contractx.UserInfoEmail] = m
		}
		if m := userIDPattern.FindStringSubmatch(msg); m != nil {
			info[contractx.UserInfoUserID] = strings.ToLower(m[1])
		} else if m := bareUserIDPattern.FindStringSubmatch(msg); m != nil {
			info[contractx.UserInfoUserID] = strings.ToLower(m[1])
		}
	}
	return info
}

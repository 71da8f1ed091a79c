package dispatch

import (
	"regexp"
	"strings"
)

// Action is the classified intent of one inbound command.
type Action string

const (
	ActionGenerate Action = "generate"
	ActionPush     Action = "push"
	ActionDeploy   Action = "deploy"
	ActionUnknown  Action = "unknown"
)

// Command is the result of classifying a raw command string.
type Command struct {
	Action  Action
	AppName string
}

var (
	generateRe = regexp.MustCompile(`(?i)(?:create|generate|build)\s+(?:me\s+an?\s+)?([\w\s-]+)\s+app\b`)
	pushRe     = regexp.MustCompile(`(?i)\b(?:push|github)\b`)
	deployRe   = regexp.MustCompile(`(?i)\bdeploy\b`)
)

// Classify maps a natural-language-ish command onto exactly one action.
// First match wins; the generate pattern is checked before the push and
// deploy tokens.
func Classify(raw string) Command {
	if m := generateRe.FindStringSubmatch(raw); m != nil {
		return Command{Action: ActionGenerate, AppName: strings.TrimSpace(m[1])}
	}
	if pushRe.MatchString(raw) {
		return Command{Action: ActionPush}
	}
	if deployRe.MatchString(raw) {
		return Command{Action: ActionDeploy}
	}
	return Command{Action: ActionUnknown}
}

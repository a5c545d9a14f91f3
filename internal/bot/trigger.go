package bot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/stellarlinkco/chatpal/internal/bus"
	"github.com/stellarlinkco/chatpal/internal/config"
)

// historyDivider separates quoted earlier turns from the current one; only
// the segment after the last divider is the user's intended content.
const historyDivider = "- - - - - - - - - - - - - - -"

// Placeholder texts the platform substitutes for content that can only be
// viewed in the official client.
var placeholderMarkers = []string{
	"收到一条视频/语音聊天消息，请在手机上查看",
	"收到红包，请在手机上查看",
	"收到转账，请在手机上查看",
	"/cgi-bin/mmwebwx-bin/webwxgetpubliclinkimg",
}

var systemSenders = []string{"微信团队"}

// Triggers holds the compiled, read-only trigger rules.
type Triggers struct {
	groupMention    *regexp.Regexp
	rule            *regexp.Regexp // optional custom trigger rule
	privateRule     *regexp.Regexp // custom rule, else keyword; nil means always-on
	blockWords      []string
	modelBlockWords []string
}

func NewTriggers(cfg config.BotConfig) (*Triggers, error) {
	t := &Triggers{
		groupMention:    regexp.MustCompile(`^@` + regexp.QuoteMeta(cfg.Name) + `\s`),
		blockWords:      cfg.BlockWords,
		modelBlockWords: cfg.ModelBlockWords,
	}

	if cfg.TriggerRule != "" {
		rule, err := regexp.Compile(cfg.TriggerRule)
		if err != nil {
			return nil, fmt.Errorf("compile trigger rule: %w", err)
		}
		t.rule = rule
	}

	t.privateRule = t.rule
	if t.privateRule == nil && cfg.TriggerKeyword != "" {
		t.privateRule = regexp.MustCompile(regexp.QuoteMeta(cfg.TriggerKeyword))
	}
	return t, nil
}

// IsNonsense reports whether the message should be dropped before any
// further processing.
func (t *Triggers) IsNonsense(msg bus.InboundMessage) bool {
	if msg.IsSelf {
		return true
	}
	if t.ContainsBlockWord(msg.Content) {
		return true
	}
	if msg.Kind != bus.KindText && msg.Kind != bus.KindAudio {
		return true
	}
	for _, name := range systemSenders {
		if msg.SenderName == name {
			return true
		}
	}
	for _, marker := range placeholderMarkers {
		if strings.Contains(msg.Content, marker) {
			return true
		}
	}
	return false
}

// Trigger reports whether the text should be forwarded to the model backend.
func (t *Triggers) Trigger(text string, private bool) bool {
	if private {
		if t.privateRule == nil {
			return true
		}
		return t.privateRule.MatchString(text)
	}
	if !t.groupMention.MatchString(text) {
		return false
	}
	if t.rule != nil {
		return t.rule.MatchString(t.groupMention.ReplaceAllString(text, ""))
	}
	return true
}

// CleanMessage strips quoted history and the matched trigger prefix so only
// the user's intended content remains.
func (t *Triggers) CleanMessage(text string, private bool) string {
	if i := strings.LastIndex(text, historyDivider); i >= 0 {
		text = text[i+len(historyDivider):]
	}
	if private {
		if t.privateRule != nil {
			text = stripFirst(t.privateRule, text)
		}
		return text
	}
	text = stripFirst(t.groupMention, text)
	if t.rule != nil {
		text = stripFirst(t.rule, text)
	}
	return text
}

// StripMention removes a leading group mention, if present.
func (t *Triggers) StripMention(text string) string {
	return stripFirst(t.groupMention, text)
}

func (t *Triggers) ContainsBlockWord(text string) bool {
	return containsAny(text, t.blockWords)
}

// BlocksOutput reports whether a model reply must be suppressed.
func (t *Triggers) BlocksOutput(text string) bool {
	return containsAny(text, t.modelBlockWords)
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// stripFirst removes the first match of re, mirroring a non-global regex
// replace.
func stripFirst(re *regexp.Regexp, s string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + s[loc[1]:]
}

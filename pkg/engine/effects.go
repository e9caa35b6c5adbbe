package engine

import (
	"strings"

	"github.com/jwebster45206/macro-engine/pkg/macro"
)

// Channel names a command output buffer
type Channel string

const (
	ChannelJudge  Channel = "judge"
	ChannelDamage Channel = "damage"
)

// Channels lists every channel in output order
var Channels = []Channel{ChannelJudge, ChannelDamage}

// ChannelEffect accumulates text for one command channel.
// Additions keep execution order; Replacement is last-write-wins.
type ChannelEffect struct {
	Additions   []string `json:"additions"`
	Replacement string   `json:"replacement"`
}

// Apply builds the final command text for the channel. The replacement,
// when set, stands in for base; additions are appended in order.
func (c ChannelEffect) Apply(base string) string {
	cmd := strings.TrimSpace(base)
	if c.Replacement != "" {
		cmd = c.Replacement
	}
	return cmd + strings.Join(c.Additions, "")
}

// IsEmpty reports whether nothing was written to the channel
func (c ChannelEffect) IsEmpty() bool {
	return len(c.Additions) == 0 && c.Replacement == ""
}

// CommandEffects is the text produced by a macro run
type CommandEffects struct {
	Judge       ChannelEffect `json:"judge"`
	Damage      ChannelEffect `json:"damage"`
	EffectTexts []string      `json:"effectTexts"`
}

// NewCommandEffects returns an empty aggregate with non-nil slices
func NewCommandEffects() CommandEffects {
	return CommandEffects{
		Judge:       ChannelEffect{Additions: []string{}},
		Damage:      ChannelEffect{Additions: []string{}},
		EffectTexts: []string{},
	}
}

// Channel returns a pointer to the named channel, or nil for an unknown name
func (ce *CommandEffects) Channel(ch Channel) *ChannelEffect {
	switch ch {
	case ChannelJudge:
		return &ce.Judge
	case ChannelDamage:
		return &ce.Damage
	}
	return nil
}

// AddAddition appends text to each listed channel
func (ce *CommandEffects) AddAddition(text string, channels []Channel) {
	for _, ch := range channels {
		if c := ce.Channel(ch); c != nil {
			c.Additions = append(c.Additions, text)
		}
	}
}

// SetReplacement overwrites the replacement of each listed channel
func (ce *CommandEffects) SetReplacement(text string, channels []Channel) {
	for _, ch := range channels {
		if c := ce.Channel(ch); c != nil {
			c.Replacement = text
		}
	}
}

// AddEffectText appends a free-form effect line
func (ce *CommandEffects) AddEffectText(text string) {
	ce.EffectTexts = append(ce.EffectTexts, text)
}

// Merge appends other onto ce. A non-empty replacement in other wins.
func (ce *CommandEffects) Merge(other CommandEffects) {
	for _, ch := range Channels {
		dst, src := ce.Channel(ch), other.Channel(ch)
		dst.Additions = append(dst.Additions, src.Additions...)
		if src.Replacement != "" {
			dst.Replacement = src.Replacement
		}
	}
	ce.EffectTexts = append(ce.EffectTexts, other.EffectTexts...)
}

// IsEmpty reports whether no text was produced at all
func (ce CommandEffects) IsEmpty() bool {
	return ce.Judge.IsEmpty() && ce.Damage.IsEmpty() && len(ce.EffectTexts) == 0
}

// resolveChannels picks the channels a text action writes to. A target whose
// kind or id names a channel restricts output to it; anything else hits both.
func resolveChannels(t *macro.Target) []Channel {
	if t == nil {
		return Channels
	}
	for _, ch := range Channels {
		if string(t.Kind) == string(ch) || t.ID == string(ch) {
			return []Channel{ch}
		}
	}
	return Channels
}

// normalizeSign prefixes unsigned text with "+". Text already starting
// with + or - is left untouched.
func normalizeSign(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if strings.HasPrefix(text, "+") || strings.HasPrefix(text, "-") {
		return text
	}
	return "+" + text
}

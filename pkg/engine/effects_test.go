package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwebster45206/macro-engine/pkg/macro"
)

func TestChannelEffect_Apply(t *testing.T) {
	tests := []struct {
		name     string
		effect   ChannelEffect
		base     string
		expected string
	}{
		{"no changes", ChannelEffect{}, "2d6", "2d6"},
		{"additions appended", ChannelEffect{Additions: []string{"+2", "-1", "+1d4"}}, " 2d6+3 ", "2d6+3+2-1+1d4"},
		{"replacement wins over base", ChannelEffect{Replacement: "3d6"}, "2d6", "3d6"},
		{"replacement then additions", ChannelEffect{Replacement: "1d20", Additions: []string{"+5"}}, "2d6", "1d20+5"},
		{"empty base", ChannelEffect{Additions: []string{"+1"}}, "", "+1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.effect.Apply(tt.base))
		})
	}
}

func TestCommandEffects_Merge(t *testing.T) {
	a := NewCommandEffects()
	a.AddAddition("+1", Channels)
	a.SetReplacement("2d6", []Channel{ChannelJudge})
	a.AddEffectText("first")

	b := NewCommandEffects()
	b.AddAddition("+2", []Channel{ChannelDamage})
	b.SetReplacement("3d6", []Channel{ChannelDamage})
	b.AddEffectText("second")

	a.Merge(b)

	assert.Equal(t, []string{"+1"}, a.Judge.Additions)
	assert.Equal(t, "2d6", a.Judge.Replacement)
	assert.Equal(t, []string{"+1", "+2"}, a.Damage.Additions)
	assert.Equal(t, "3d6", a.Damage.Replacement)
	assert.Equal(t, []string{"first", "second"}, a.EffectTexts)
	assert.False(t, a.IsEmpty())
	assert.True(t, NewCommandEffects().IsEmpty())
}

func TestResolveChannels(t *testing.T) {
	assert.Equal(t, Channels, resolveChannels(nil))
	assert.Equal(t, Channels, resolveChannels(&macro.Target{Kind: macro.KindResource, ID: "mp"}))
	assert.Equal(t, []Channel{ChannelJudge}, resolveChannels(&macro.Target{Kind: "judge"}))
	assert.Equal(t, []Channel{ChannelDamage}, resolveChannels(&macro.Target{Kind: macro.KindBuff, ID: "damage"}))
}

func TestNormalizeSign(t *testing.T) {
	for input, expected := range map[string]string{
		"5":     "+5",
		" 5 ":   "+5",
		"+5":    "+5",
		"-3":    "-3",
		"1d6":   "+1d6",
		"":      "",
		"   ":   "",
		"2d6+1": "+2d6+1",
	} {
		assert.Equal(t, expected, normalizeSign(input), "input %q", input)
	}
}

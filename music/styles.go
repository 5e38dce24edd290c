package music

import (
	"fmt"
	"strings"
)

// Style is a techno style preset.
type Style string

const (
	StyleMinimal    Style = "minimal"
	StyleAcid       Style = "acid"
	StyleHard       Style = "hard"
	StyleMelodic    Style = "melodic"
	StyleDub        Style = "dub"
	StyleIndustrial Style = "industrial"
)

// Styles returns every preset in display order.
func Styles() []Style {
	return []Style{StyleMinimal, StyleAcid, StyleHard, StyleMelodic, StyleDub, StyleIndustrial}
}

// ParseStyle 解析风格名称，未知风格回落到 minimal.
func ParseStyle(s string) Style {
	st := Style(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Styles() {
		if st == known {
			return st
		}
	}
	return StyleMinimal
}

// Title returns the display form, e.g. "Acid".
func (s Style) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Formatter turns a style preset and the user's text into a provider prompt.
type Formatter func(style Style, text string) string

// NewFormatter builds a Formatter from a preset table and a template with two
// %s verbs: the style description and the user text.
func NewFormatter(presets map[Style]string, template string) Formatter {
	return func(style Style, text string) string {
		desc, ok := presets[style]
		if !ok {
			desc = presets[StyleMinimal]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			text = "TECHNO"
		}
		return fmt.Sprintf(template, desc, text)
	}
}

// udio 预设带 BPM，描述更长.
var udioPresets = map[Style]string{
	StyleMinimal:    "Minimal techno, hypnotic loops, stripped-down beats, repetitive patterns, underground warehouse atmosphere, 130 BPM",
	StyleAcid:       "Acid techno, TB-303 basslines, squelchy acid sounds, driving 4/4 kick drums, rave energy, 135 BPM",
	StyleHard:       "Hard techno, aggressive kicks, distorted sounds, fast BPM, industrial atmosphere, dark energy, 150 BPM",
	StyleMelodic:    "Melodic techno, emotional progressions, uplifting synths, deep basslines, progressive structure, 125 BPM",
	StyleDub:        "Dub techno, deep reverb, spacious mix, echo effects, atmospheric pads, Berlin underground style, 120 BPM",
	StyleIndustrial: "Industrial techno, mechanical sounds, heavy distortion, metallic percussion, dystopian atmosphere, 140 BPM",
}

var sunoPresets = map[Style]string{
	StyleMinimal:    "Minimal techno, hypnotic 4/4 beats, deep bass, subtle percussion, warehouse atmosphere, electronic, instrumental",
	StyleAcid:       "Acid techno, TB-303 sounds, squelchy basslines, driving beats, electronic dance music, instrumental",
	StyleHard:       "Hard techno, aggressive kicks, distorted sounds, fast tempo, industrial vibes, electronic, instrumental",
	StyleMelodic:    "Melodic techno, uplifting synths, emotional progressions, deep bass, electronic dance music, instrumental",
	StyleDub:        "Dub techno, deep reverb, spacious sounds, echo effects, minimalist, electronic, instrumental",
	StyleIndustrial: "Industrial techno, mechanical sounds, harsh textures, metallic percussion, dark atmosphere, electronic, instrumental",
}

// shared by replicate and the generic HTTP backend
var genericPresets = map[Style]string{
	StyleMinimal:    "Minimal techno with hypnotic 4/4 beats, deep bass, repetitive patterns, 128 BPM",
	StyleAcid:       "Acid techno with TB-303 sounds, squelchy basslines, driving rhythm, 132 BPM",
	StyleHard:       "Hard techno with aggressive kicks, distorted sounds, fast tempo, 140 BPM",
	StyleMelodic:    "Melodic techno with uplifting synths, emotional progressions, 125 BPM",
	StyleDub:        "Dub techno with deep reverb, spacious sounds, minimalist approach, 120 BPM",
	StyleIndustrial: "Industrial techno with mechanical sounds, harsh textures, 135 BPM",
}

var (
	udioFormatter      = NewFormatter(udioPresets, "%s, %s, electronic dance music, instrumental, club ready, professional production")
	sunoFormatter      = NewFormatter(sunoPresets, "%s, %s, 128 BPM, club ready, professional production")
	replicateFormatter = NewFormatter(genericPresets, "%s %s electronic instrumental techno")
	genericFormatter   = NewFormatter(genericPresets, "%s, %s, techno, electronic, instrumental")
)

// StyleDescription returns the generic description of a preset.
func StyleDescription(s Style) string {
	return genericPresets[ParseStyle(string(s))]
}

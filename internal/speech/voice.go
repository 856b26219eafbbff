package speech

import (
	"slices"
	"strings"

	"doodlecast/internal/script"
)

// Voice maps a voice name to engine-specific identifiers.
type Voice struct {
	Name         string
	MeloSpeaker  string
	MeloLanguage string
	PiperModel   string
}

var voices = map[string]Voice{
	"female_us":    {MeloSpeaker: "EN-US", MeloLanguage: "EN", PiperModel: "en_US-lessac-medium"},
	"male_us":      {MeloSpeaker: "EN-US", MeloLanguage: "EN", PiperModel: "en_US-libritts-high"},
	"female_uk":    {MeloSpeaker: "EN-BR", MeloLanguage: "EN", PiperModel: "en_GB-alba-medium"},
	"male_uk":      {MeloSpeaker: "EN-BR", MeloLanguage: "EN", PiperModel: "en_GB-southern_english_male-medium"},
	"neutral":      {MeloSpeaker: "EN-US", MeloLanguage: "EN", PiperModel: "en_US-lessac-medium"},
	"female_latam": {MeloSpeaker: "ES", MeloLanguage: "ES", PiperModel: "es_MX-ald-medium"},
	"male_latam":   {MeloSpeaker: "ES", MeloLanguage: "ES", PiperModel: "es_ES-davefx-medium"},
	"female_es":    {MeloSpeaker: "ES", MeloLanguage: "ES", PiperModel: "es_ES-carlfm-x_low"},
	"male_es":      {MeloSpeaker: "ES", MeloLanguage: "ES", PiperModel: "es_ES-davefx-medium"},
}

// Voices lists the supported voice names in sorted order.
func Voices() []string {
	names := make([]string, 0, len(voices))
	for name := range voices {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ResolveVoice looks up name. Unknown names return the default voice and
// false.
func ResolveVoice(name string) (Voice, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if v, ok := voices[key]; ok {
		v.Name = key
		return v, true
	}
	v := voices[script.DefaultVoice]
	v.Name = script.DefaultVoice
	return v, false
}

package speech

import (
	"math"

	"doodlecast/internal/media/wav"
)

const (
	wordsPerSecond       = 2.5
	minPlaceholderSecond = 1.0
	placeholderToneHz    = 220.0
	placeholderAmplitude = 0.02 * math.MaxInt16
	placeholderFade      = 0.05
)

// PlaceholderSeconds estimates narration length at 150 words per minute.
func PlaceholderSeconds(words int, speed float64) float64 {
	if speed <= 0 {
		speed = 1.0
	}
	return math.Max(minPlaceholderSecond, float64(words)/wordsPerSecond) / speed
}

// Placeholder renders a quiet tone as long as the narration would take.
func Placeholder(words int, speed float64, sampleRate int) []byte {
	seconds := PlaceholderSeconds(words, speed)
	n := int(seconds * float64(sampleRate))
	fade := int(placeholderFade * float64(sampleRate))
	samples := make([]int16, n)
	for i := range samples {
		gain := 1.0
		if i < fade {
			gain = float64(i) / float64(fade)
		} else if n-i < fade {
			gain = float64(n-i) / float64(fade)
		}
		t := float64(i) / float64(sampleRate)
		samples[i] = int16(gain * placeholderAmplitude * math.Sin(2*math.Pi*placeholderToneHz*t))
	}
	return wav.Encode(wav.Clip{SampleRate: sampleRate, Samples: samples})
}

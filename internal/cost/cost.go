// Package cost estimates ElevenLabs credit usage before a request is sent.
// Estimates are advisory and never gate a request.
package cost

import (
	"math"
	"time"
	"unicode/utf8"
)

// Pricing holds the credit rates used for estimates
type Pricing struct {
	// CreditsPerCharacter applies to text-to-speech input
	CreditsPerCharacter float64 `json:"creditsPerCharacter" env:"CREDITS_PER_CHARACTER"`
	// CreditsPerMinute applies to speech-to-speech and voice isolation
	CreditsPerMinute float64 `json:"creditsPerMinute" env:"CREDITS_PER_MINUTE"`
	// SoundEffectAutoCredits is charged per variation when the duration is automatic
	SoundEffectAutoCredits float64 `json:"soundEffectAutoCredits" env:"SOUND_EFFECT_AUTO_CREDITS"`
	// SoundEffectCreditsPerSecond is charged per variation for an explicit duration
	SoundEffectCreditsPerSecond float64 `json:"soundEffectCreditsPerSecond" env:"SOUND_EFFECT_CREDITS_PER_SECOND"`
}

// DefaultPricing matches the published rates at the time of writing
var DefaultPricing = Pricing{
	CreditsPerCharacter:         1,
	CreditsPerMinute:            1000,
	SoundEffectAutoCredits:      100,
	SoundEffectCreditsPerSecond: 20,
}

// WithDefaults fills zero rates from DefaultPricing
func (p Pricing) WithDefaults() Pricing {
	if p.CreditsPerCharacter <= 0 {
		p.CreditsPerCharacter = DefaultPricing.CreditsPerCharacter
	}
	if p.CreditsPerMinute <= 0 {
		p.CreditsPerMinute = DefaultPricing.CreditsPerMinute
	}
	if p.SoundEffectAutoCredits <= 0 {
		p.SoundEffectAutoCredits = DefaultPricing.SoundEffectAutoCredits
	}
	if p.SoundEffectCreditsPerSecond <= 0 {
		p.SoundEffectCreditsPerSecond = DefaultPricing.SoundEffectCreditsPerSecond
	}
	return p
}

// TextToSpeech estimates credits for text, rounded up to two decimals.
// Length is counted in characters, not bytes.
func (p Pricing) TextToSpeech(text string) float64 {
	n := float64(utf8.RuneCountInString(text))
	return math.Ceil(n*p.CreditsPerCharacter*100) / 100
}

// SpeechToSpeech estimates credits for converting audio of length d
func (p Pricing) SpeechToSpeech(d time.Duration) float64 {
	return p.perMinute(d)
}

// VoiceIsolation estimates credits for isolating audio of length d
func (p Pricing) VoiceIsolation(d time.Duration) float64 {
	return p.perMinute(d)
}

// SoundEffect estimates credits for n variations of a sound effect.
// A zero duration means the service picks the length.
func (p Pricing) SoundEffect(d time.Duration, n int) float64 {
	if d < 0 {
		d = 0
	}
	if n < 0 {
		n = 0
	}
	per := p.SoundEffectAutoCredits
	if d > 0 {
		per = p.SoundEffectCreditsPerSecond * d.Seconds()
	}
	return math.Ceil(per * float64(n))
}

func (p Pricing) perMinute(d time.Duration) float64 {
	if d < 0 {
		d = 0
	}
	return math.Ceil(d.Minutes() * p.CreditsPerMinute)
}

// TextToSpeech uses DefaultPricing
func TextToSpeech(text string) float64 { return DefaultPricing.TextToSpeech(text) }

// SpeechToSpeech uses DefaultPricing
func SpeechToSpeech(d time.Duration) float64 { return DefaultPricing.SpeechToSpeech(d) }

// VoiceIsolation uses DefaultPricing
func VoiceIsolation(d time.Duration) float64 { return DefaultPricing.VoiceIsolation(d) }

// SoundEffect uses DefaultPricing
func SoundEffect(d time.Duration, n int) float64 { return DefaultPricing.SoundEffect(d, n) }

// Seconds converts fractional seconds to a Duration
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

package config

import "time"

// ChatPacing is the artificial delay before each bot message, per skin
type ChatPacing struct {
	// Chat is the standard chat skin's "typing" delay
	Chat time.Duration `json:"chat"`

	// WhatsApp is the WhatsApp-styled skin's delay
	WhatsApp time.Duration `json:"whatsapp"`
}

// ChatConfig holds the conversational front-end settings
type ChatConfig struct {
	Pacing        ChatPacing    `json:"pacing"`
	SeenDelay     time.Duration `json:"seenDelay"`     // WhatsApp read ticks
	SessionTTL    time.Duration `json:"sessionTtl"`    // Redis TTL of session snapshots
	SurveyTTL     time.Duration `json:"surveyTtl"`     // Redis TTL of cached surveys
	SubmitLockTTL time.Duration `json:"submitLockTtl"` // must outlive one API timeout
}

// DefaultChatConfig returns the default chat configuration
func DefaultChatConfig() *ChatConfig {
	return &ChatConfig{
		Pacing: ChatPacing{
			Chat:     getEnvDuration("CHAT_PACING_CHAT", 600*time.Millisecond),
			WhatsApp: getEnvDuration("CHAT_PACING_WHATSAPP", 700*time.Millisecond),
		},
		SeenDelay:     getEnvDuration("CHAT_SEEN_DELAY", 1500*time.Millisecond),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),
		SurveyTTL:     getEnvDuration("SURVEY_CACHE_TTL", 10*time.Minute),
		SubmitLockTTL: getEnvDuration("SUBMIT_LOCK_TTL", 90*time.Second),
	}
}

// PacingFor returns the delay for a skin name; unknown skins get the chat pacing
func (c *ChatConfig) PacingFor(skin string) time.Duration {
	if skin == "whatsapp" {
		return c.Pacing.WhatsApp
	}
	return c.Pacing.Chat
}

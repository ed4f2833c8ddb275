package conversation

import (
	"fmt"
	"insightai/internal/model"
	"time"
)

// Skin names
const (
	SkinChat     = "chat"
	SkinWhatsApp = "whatsapp"
)

const errorText = "Sorry, something went wrong. Please try again."

// Skin supplies the copy and pacing of one chat front-end. The state machine is identical
// for every skin.
type Skin interface {
	Name() string
	Channel() string
	Greeting(surveyTitle, firstQuestion string) string
	// QuestionLabel labels the question at zero-based index
	QuestionLabel(index, total int) string
	Status(snap *model.Snapshot) string
	Closing() string
	ErrorText() string
	Pacing() time.Duration
}

// NewSkin returns the skin registered under name
func NewSkin(name string) (Skin, error) {
	switch name {
	case SkinChat, "":
		return ChatSkin{Delay: 600 * time.Millisecond}, nil
	case SkinWhatsApp:
		return WhatsAppSkin{Delay: 700 * time.Millisecond}, nil
	}
	return nil, fmt.Errorf("unknown skin %q", name)
}

// ChatSkin is the standard research-bot chat
type ChatSkin struct {
	Delay time.Duration
}

func (ChatSkin) Name() string    { return SkinChat }
func (ChatSkin) Channel() string { return model.ChannelWeb }

func (ChatSkin) Greeting(title, first string) string {
	return fmt.Sprintf("Hi there! 👋 I'm your research assistant.\n\n\"%s\"\n\n"+
		"I have a few questions for you. Just answer naturally, like a conversation. Let's begin!\n\n%s", title, first)
}

func (ChatSkin) QuestionLabel(index, total int) string {
	return fmt.Sprintf("Question %d of %d", index+1, total)
}

func (ChatSkin) Status(snap *model.Snapshot) string {
	switch {
	case snap.Done:
		return "Survey complete"
	case snap.WaitingForFollowUp:
		return fmt.Sprintf("Follow-up • Q%d/%d", snap.QuestionIndex+1, snap.TotalQuestions)
	default:
		return fmt.Sprintf("Question %d of %d", min(snap.QuestionIndex+1, snap.TotalQuestions), snap.TotalQuestions)
	}
}

func (ChatSkin) Closing() string {
	return "Thank you so much for your time! 🎉 Your insights are incredibly valuable. You can close this window now."
}

func (ChatSkin) ErrorText() string       { return errorText }
func (s ChatSkin) Pacing() time.Duration { return s.Delay }

// WhatsAppSkin mimics a WhatsApp conversation. Text may carry *bold* markup.
type WhatsAppSkin struct {
	Delay time.Duration
}

func (WhatsAppSkin) Name() string    { return SkinWhatsApp }
func (WhatsAppSkin) Channel() string { return model.ChannelWhatsApp }

func (WhatsAppSkin) Greeting(title, first string) string {
	return fmt.Sprintf("👋 Hi! I'm your research assistant.\n\n*%s*\n\n"+
		"I have a few quick questions for you. Just reply naturally, this will only take a few minutes!\n\n%s", title, first)
}

func (WhatsAppSkin) QuestionLabel(index, total int) string {
	return fmt.Sprintf("Question %d/%d", index+1, total)
}

func (WhatsAppSkin) Status(snap *model.Snapshot) string {
	switch {
	case snap.Done:
		return "Survey complete ✓"
	case snap.Submitting:
		return "typing…"
	default:
		return "online"
	}
}

func (WhatsAppSkin) Closing() string {
	return "✅ Thank you so much for your time!\n\n" +
		"Your feedback is incredibly valuable and will help make real improvements. Have a great day! 😊"
}

func (WhatsAppSkin) ErrorText() string       { return errorText }
func (s WhatsAppSkin) Pacing() time.Duration { return s.Delay }

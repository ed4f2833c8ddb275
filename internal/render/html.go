package render

import (
	"embed"
	"html/template"
	"insightai/internal/conversation"
	"insightai/internal/model"
	"io"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData is what a chat page template receives
type PageData struct {
	Title         string
	Status        string
	Skin          string
	Action        string
	Messages      []MessageView
	Progress      int
	ShowProgress  bool
	Typing        bool
	InputDisabled bool
	Done          bool
	Error         string
}

// MessageView is one message prepared for HTML
type MessageView struct {
	Respondent bool
	HTML       template.HTML
	Label      string
	Time       string
	Ticks      string
	Seen       bool
	FollowUp   bool
	Error      bool
	Final      bool
}

// ErrorPageData is the blocking page shown when a session cannot start
type ErrorPageData struct {
	Skin    string
	Title   string
	Message string
}

// HTMLRenderer renders the respondent chat pages
type HTMLRenderer struct {
	tmpl      *template.Template
	seenDelay time.Duration
	now       func() time.Time
}

// NewHTMLRenderer parses the embedded templates
func NewHTMLRenderer(seenDelay time.Duration) (*HTMLRenderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &HTMLRenderer{tmpl: tmpl, seenDelay: seenDelay, now: time.Now}, nil
}

// Page builds the template data for a snapshot. action is the form POST target.
func (r *HTMLRenderer) Page(snap *model.Snapshot, action, errMsg string) PageData {
	whatsapp := snap.Skin == conversation.SkinWhatsApp
	now := r.now()
	data := PageData{
		Title:         snap.SurveyTitle,
		Status:        snap.Status,
		Skin:          snap.Skin,
		Action:        action,
		Progress:      snap.Progress,
		ShowProgress:  !whatsapp && !snap.Done,
		Typing:        snap.Submitting,
		InputDisabled: snap.Submitting || snap.Done,
		Done:          snap.Done,
		Error:         errMsg,
	}
	for _, msg := range snap.Transcript {
		ticks := ""
		if whatsapp {
			ticks = Ticks(msg, now, r.seenDelay)
		}
		data.Messages = append(data.Messages, MessageView{
			Respondent: msg.Role == model.RoleRespondent,
			HTML:       MessageHTML(msg.Text, whatsapp),
			Label:      msg.QuestionLabel,
			Time:       Clock(msg.SentAt),
			Ticks:      ticks,
			Seen:       ticks == "✓✓",
			FollowUp:   msg.FollowUp,
			Error:      msg.Error,
			Final:      msg.Final,
		})
	}
	return data
}

// RenderChat writes the chat page of a snapshot
func (r *HTMLRenderer) RenderChat(w io.Writer, snap *model.Snapshot, action, errMsg string) error {
	name := "chat.html"
	if snap.Skin == conversation.SkinWhatsApp {
		name = "whatsapp.html"
	}
	return r.tmpl.ExecuteTemplate(w, name, r.Page(snap, action, errMsg))
}

// RenderError writes the blocking error page
func (r *HTMLRenderer) RenderError(w io.Writer, data ErrorPageData) error {
	return r.tmpl.ExecuteTemplate(w, "error.html", data)
}

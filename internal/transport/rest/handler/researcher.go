package handler

import (
	"context"
	"encoding/json"
	"errors"
	"insightai/internal/model"
	"insightai/internal/view"
	"net/http"

	"github.com/gorilla/mux"
)

// TranscriptSource lists archived respondent transcripts
type TranscriptSource interface {
	Transcripts(ctx context.Context, surveyID string) ([]model.TranscriptRecord, error)
}

// ResearcherHandler serves the dashboard, designer and insights views over JSON
type ResearcherHandler struct {
	api         view.SurveyAPI
	transcripts TranscriptSource
	publicURL   string
}

// NewResearcherHandler creates a new researcher handler
func NewResearcherHandler(api view.SurveyAPI, transcripts TranscriptSource, publicURL string) *ResearcherHandler {
	return &ResearcherHandler{api: api, transcripts: transcripts, publicURL: publicURL}
}

// ShareResponse carries a survey's public link
type ShareResponse struct {
	Link     string `json:"link"`
	TakeURL  string `json:"takeUrl"`
	WhatsApp string `json:"whatsappUrl"`
	Notice   string `json:"notice"`
}

// linkClipboard keeps the copied link so it can be returned to the caller
type linkClipboard struct {
	text string
}

func (c *linkClipboard) Copy(text string) error {
	c.text = text
	return nil
}

// queryConfirmer approves when the request carries confirm=true
type queryConfirmer struct {
	r *http.Request
}

func (c queryConfirmer) Confirm(string) bool {
	return c.r.URL.Query().Get("confirm") == "true"
}

// Dashboard handles GET /v1/dashboard
//
//	@Summary	Survey list with totals
//	@Tags		researcher
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	view.DashboardState
//	@Failure	502	{object}	view.DashboardState
//	@Router		/dashboard [get]
func (h *ResearcherHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	state := view.NewDashboard(h.api, nil, nil, nil, h.publicURL).Load(r.Context())
	writeJSON(w, stateStatus(state.Error), state)
}

// DeleteSurvey handles DELETE /v1/surveys/{surveyId}?confirm=true
//
//	@Summary	Delete a survey and all its data
//	@Tags		researcher
//	@Produce	json
//	@Security	BearerAuth
//	@Param		surveyId	path		string	true	"survey id"
//	@Param		confirm		query		bool	true	"must be true"
//	@Success	200			{object}	view.DashboardState
//	@Failure	428			{object}	ErrorResponse
//	@Failure	502			{object}	ErrorResponse
//	@Router		/surveys/{surveyId} [delete]
func (h *ResearcherHandler) DeleteSurvey(w http.ResponseWriter, r *http.Request) {
	dash := view.NewDashboard(h.api, nil, queryConfirmer{r: r}, nil, h.publicURL)
	state, err := dash.Delete(r.Context(), mux.Vars(r)["surveyId"])
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if state == nil {
		writeError(w, http.StatusPreconditionRequired, "Delete this survey and all its data? Repeat with confirm=true.")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// GenerateSurvey handles POST /v1/surveys/generate
//
//	@Summary	Generate a survey from a research goal
//	@Tags		researcher
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		body	body		view.DesignerForm	true	"designer form"
//	@Success	201		{object}	model.Survey
//	@Failure	400		{object}	ErrorResponse
//	@Failure	502		{object}	ErrorResponse
//	@Router		/surveys/generate [post]
func (h *ResearcherHandler) GenerateSurvey(w http.ResponseWriter, r *http.Request) {
	form := view.NewDesignerForm()
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	preview, err := view.NewDesigner(h.api, nil).Generate(r.Context(), form)
	if errors.Is(err, view.ErrEmptyGoal) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, preview)
}

// Insights handles GET /v1/surveys/{surveyId}/insights
//
//	@Summary	Survey, stats and insight report
//	@Tags		researcher
//	@Produce	json
//	@Security	BearerAuth
//	@Param		surveyId	path		string	true	"survey id"
//	@Success	200			{object}	view.InsightsState
//	@Failure	502			{object}	view.InsightsState
//	@Router		/surveys/{surveyId}/insights [get]
func (h *ResearcherHandler) Insights(w http.ResponseWriter, r *http.Request) {
	state := view.NewInsights(h.api, nil, h.publicURL).Load(r.Context(), mux.Vars(r)["surveyId"])
	writeJSON(w, stateStatus(state.Error), state)
}

// GenerateInsights handles POST /v1/surveys/{surveyId}/insights/generate
//
//	@Summary	Run insight synthesis
//	@Tags		researcher
//	@Produce	json
//	@Security	BearerAuth
//	@Param		surveyId	path		string	true	"survey id"
//	@Success	200			{object}	view.InsightsState
//	@Failure	409			{object}	ErrorResponse
//	@Failure	502			{object}	ErrorResponse
//	@Router		/surveys/{surveyId}/insights/generate [post]
func (h *ResearcherHandler) GenerateInsights(w http.ResponseWriter, r *http.Request) {
	surveyID := mux.Vars(r)["surveyId"]
	insights := view.NewInsights(h.api, nil, h.publicURL)

	state := insights.Load(r.Context(), surveyID)
	if state.Error != "" {
		writeError(w, http.StatusBadGateway, state.Error)
		return
	}

	next, err := insights.Generate(r.Context(), surveyID, state)
	if errors.Is(err, view.ErrNoResponses) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// Share handles GET /v1/surveys/{surveyId}/share
//
//	@Summary	Public links of a survey
//	@Tags		researcher
//	@Produce	json
//	@Security	BearerAuth
//	@Param		surveyId	path		string	true	"survey id"
//	@Success	200			{object}	ShareResponse
//	@Router		/surveys/{surveyId}/share [get]
func (h *ResearcherHandler) Share(w http.ResponseWriter, r *http.Request) {
	surveyID := mux.Vars(r)["surveyId"]
	clip := &linkClipboard{}
	notice, err := view.NewDashboard(h.api, clip, nil, nil, h.publicURL).CopyLink(surveyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ShareResponse{
		Link:     clip.text,
		TakeURL:  clip.text,
		WhatsApp: h.publicURL + view.WhatsAppRoute(surveyID),
		Notice:   notice,
	})
}

// Transcripts handles GET /v1/surveys/{surveyId}/transcripts
//
//	@Summary	Archived conversational transcripts
//	@Tags		researcher
//	@Produce	json
//	@Security	BearerAuth
//	@Param		surveyId	path	string	true	"survey id"
//	@Success	200			{array}	model.TranscriptRecord
//	@Router		/surveys/{surveyId}/transcripts [get]
func (h *ResearcherHandler) Transcripts(w http.ResponseWriter, r *http.Request) {
	records, err := h.transcripts.Transcripts(r.Context(), mux.Vars(r)["surveyId"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load transcripts")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func stateStatus(errMsg string) int {
	if errMsg != "" {
		return http.StatusBadGateway
	}
	return http.StatusOK
}

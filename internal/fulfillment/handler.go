package fulfillment

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/metrics"
	"github.com/AxelBanderet/sigfox-gcp-dialogflow/internal/utils"

	dialogflow "google.golang.org/api/dialogflow/v2"
)

const maxBodyBytes = 1 << 20

// Options configure a fulfillment Handler.
type Options struct {
	// Debug logs raw request and response bodies at info level, so they are
	// emitted under the default LOG_LEVEL.
	Debug  bool
	Logger *slog.Logger
}

type handler struct {
	resolver Resolver
	debug    bool
	logger   *slog.Logger
}

// Handler returns a handler that processes Dialogflow fulfillment requests
// using the given resolver.
func Handler(resolver Resolver, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &handler{resolver: resolver, debug: opts.Debug, logger: logger}
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		utils.WriteError(w, http.StatusMethodNotAllowed, "fulfillment requests must use POST")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn("failed to read fulfillment request", "error", err)
		h.reject(w, "", http.StatusBadRequest, "failed to read request body")
		return
	}
	if h.debug {
		h.logger.Info("fulfillment request", "body", string(body))
	}

	agent, err := newAgent(body)
	if err != nil {
		h.logger.Warn("invalid fulfillment request", "error", err)
		h.reject(w, "", http.StatusBadRequest, err.Error())
		return
	}

	fn, ok := h.resolver.Resolve(agent.Intent)
	if !ok {
		h.logger.Warn("intent not supported", "intent", agent.Intent)
		h.reject(w, "", http.StatusBadRequest, "no handler for intent "+agent.Intent)
		return
	}

	h.logger.Debug("invoking intent handler", "intent", agent.Intent, "session", agent.Session)

	if err := fn(r.Context(), agent); err != nil {
		h.logger.Error("intent handler failed", "intent", agent.Intent, "error", err)
		h.reject(w, agent.Intent, http.StatusInternalServerError, "intent handler failed")
		return
	}

	resp := newWebhookResponse(agent.Messages())
	data, err := json.Marshal(resp)
	if err != nil {
		h.logger.Error("failed to encode fulfillment response", "error", err)
		h.reject(w, agent.Intent, http.StatusInternalServerError, "failed to encode response")
		return
	}
	if h.debug {
		h.logger.Info("fulfillment response", "body", string(data))
	}

	metrics.FulfillmentRequests.WithLabelValues(agent.Intent, "ok").Inc()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("failed to write fulfillment response", "error", err)
	}
}

// reject writes an error body. Unresolved intents are counted under an empty
// intent label so arbitrary names cannot grow the label set.
func (h *handler) reject(w http.ResponseWriter, intent string, status int, msg string) {
	metrics.FulfillmentRequests.WithLabelValues(intent, outcomeForStatus(status)).Inc()
	utils.WriteError(w, status, msg)
}

func outcomeForStatus(status int) string {
	if status >= http.StatusInternalServerError {
		return "error"
	}
	return "rejected"
}

var errMissingQueryResult = errors.New("request has no queryResult")

func newAgent(body []byte) (*Agent, error) {
	var req dialogflow.GoogleCloudDialogflowV2WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	if req.QueryResult == nil {
		return nil, errMissingQueryResult
	}

	agent := &Agent{
		Session:      req.Session,
		QueryText:    req.QueryResult.QueryText,
		LanguageCode: req.QueryResult.LanguageCode,
		Parameters:   map[string]any{},
	}
	if req.QueryResult.Intent != nil {
		agent.Intent = req.QueryResult.Intent.DisplayName
	}
	if len(req.QueryResult.Parameters) > 0 {
		if err := json.Unmarshal(req.QueryResult.Parameters, &agent.Parameters); err != nil {
			return nil, err
		}
		if agent.Parameters == nil {
			agent.Parameters = map[string]any{}
		}
	}
	return agent, nil
}

func newWebhookResponse(sentences []string) *dialogflow.GoogleCloudDialogflowV2WebhookResponse {
	resp := &dialogflow.GoogleCloudDialogflowV2WebhookResponse{}
	for _, s := range sentences {
		resp.FulfillmentText += s
		resp.FulfillmentMessages = append(resp.FulfillmentMessages, &dialogflow.GoogleCloudDialogflowV2IntentMessage{
			Text: &dialogflow.GoogleCloudDialogflowV2IntentMessageText{Text: []string{s}},
		})
	}
	return resp
}

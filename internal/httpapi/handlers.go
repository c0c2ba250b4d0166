package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/mylxsw/asteria/log"
	"github.com/supremeagent/droidexec/pkg/executor"
	"github.com/supremeagent/droidexec/pkg/executor/droid"
	"github.com/supremeagent/droidexec/pkg/sdk"
	"github.com/supremeagent/droidexec/pkg/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler handles HTTP API requests.
type Handler struct {
	client *sdk.Client
}

func NewHandler(client *sdk.Client) *Handler {
	return &Handler{client: client}
}

// HandleCreateRun starts a droid run. With ?wait=true the request blocks
// until droid finishes and the result is returned; otherwise the run id is
// returned with 202 Accepted.
func (h *Handler) HandleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		resp, err := h.client.Submit(req)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, resp)
		return
	}

	res, err := h.client.Execute(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sdk.NewOutput(res))
}

func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	runs := h.client.Runs()
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.client.Get(mux.Vars(r)["run_id"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]
	if _, err := h.client.Get(runID); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	afterSeq, err := strconv.ParseUint(r.URL.Query().Get("after_seq"), 10, 64)
	if err != nil {
		afterSeq = 0
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		limit = 0
	}

	events, err := h.client.ListEvents(r.Context(), runID, afterSeq, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list events: %v", err))
		return
	}
	latest, err := h.client.LatestSeq(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read latest sequence: %v", err))
		return
	}
	if events == nil {
		events = []RunEvent{}
	}
	writeJSON(w, http.StatusOK, EventsResponse{RunID: runID, Events: events, LatestSeq: latest})
}

// HandleStream replays the events of a run as server-sent events and follows
// it until the run finishes. Reconnecting clients resume via Last-Event-ID or
// ?after_seq.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			log.Errorf("HandleStream: panic recovered: %v", err)
		}
	}()

	runID := mux.Vars(r)["run_id"]

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, cancel, err := h.client.Subscribe(runID, sdk.SubscribeOptions{AfterSeq: resumeSeq(r)})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}

			data, err := json.Marshal(evt)
			if err != nil {
				log.Warningf("HandleStream: failed to encode event: run=%s seq=%d err=%v", runID, evt.Seq, err)
				continue
			}
			_, _ = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", evt.Seq, evt.Type, data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (h *Handler) HandleModels(w http.ResponseWriter, r *http.Request) {
	resp := ModelsResponse{Models: h.client.Models()}
	if resp.Models == nil {
		resp.Models = []string{}
	}
	if cfg := h.client.Config(); cfg != nil {
		resp.DefaultModel = cfg.Defaults.DefaultModel
		if resp.DefaultModel == "" && cfg.Models != nil {
			resp.DefaultModel = cfg.Models.DefaultRef()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func resumeSeq(r *http.Request) uint64 {
	for _, raw := range []string{r.Header.Get("Last-Event-ID"), r.URL.Query().Get("after_seq")} {
		if seq, err := strconv.ParseUint(raw, 10, 64); err == nil {
			return seq
		}
	}
	return 0
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sdk.ErrInvalidArgs),
		errors.Is(err, droid.ErrHighAutonomyDisabled),
		errors.Is(err, droid.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, executor.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, executor.ErrClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

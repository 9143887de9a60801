// Package httpapi provides the HTTP control surface for spybot.
// It delegates all business logic to the monitor manager and the craft
// controller.
package httpapi

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hocy1609/spybot/craft"
	"github.com/hocy1609/spybot/eventbus"
	"github.com/hocy1609/spybot/model"
	"github.com/hocy1609/spybot/monitor"
	"github.com/hocy1609/spybot/store/sqlite"
)

// Handler provides the HTTP API.
type Handler struct {
	monitor *monitor.Manager
	crafter *craft.Controller
	store   *sqlite.Store
	bus     *eventbus.Bus
	router  chi.Router
}

// New creates a new HTTP API handler.
func New(mon *monitor.Manager, crafter *craft.Controller, store *sqlite.Store, bus *eventbus.Bus) *Handler {
	h := &Handler{monitor: mon, crafter: crafter, store: store, bus: bus}
	h.router = h.buildRouter()
	return h
}

// Router returns the HTTP router.
func (h *Handler) Router() chi.Router {
	return h.router
}

func (h *Handler) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/status", h.handleStatus)

			r.Get("/monitor/config", h.handleGetMonitorConfig)
			r.Put("/monitor/config", h.handlePutMonitorConfig)
			r.Post("/monitor/start", h.handleMonitorStart)
			r.Post("/monitor/stop", h.handleMonitorStop)
			r.Post("/trigger/toggle", h.handleTriggerToggle)

			r.Post("/craft/start", h.handleCraftStart)
			r.Post("/craft/stop", h.handleCraftStop)
			r.Post("/craft/resume/{id}", h.handleCraftResume)
			r.Get("/craft/runs", h.handleListRuns)
			r.Get("/craft/runs/{id}", h.handleGetRun)
			r.Get("/craft/recipes", h.handleListRecipes)

			r.Get("/presets", h.handleListPresets)
			r.Put("/presets/{slot}", h.handleSavePreset)
			r.Get("/presets/{slot}", h.handleGetPreset)
			r.Delete("/presets/{slot}", h.handleDeletePreset)
			r.Post("/presets/{slot}/apply", h.handleApplyPreset)

			r.Get("/favorites", h.handleListFavorites)
			r.Put("/favorites/{name}", h.handleAddFavorite)
			r.Delete("/favorites/{name}", h.handleRemoveFavorite)
		})
		// SSE streams outlive the request timeout.
		r.Get("/craft/runs/{id}/events", h.handleRunEvents)
		r.Get("/monitor/events", h.handleMonitorEvents)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return r
}

// --- Request/Response types ---

type statusResponse struct {
	Monitor monitor.Status `json:"monitor"`
	Craft   *craftStatus   `json:"craft,omitempty"`
}

type craftStatus struct {
	model.CraftRun
	StatusText      string `json:"status_text"`
	ProgressPercent int    `json:"progress_percent"`
}

func newCraftStatus(run model.CraftRun) *craftStatus {
	st := &craftStatus{CraftRun: run}
	if run.Requested > 0 {
		st.ProgressPercent = run.Verified * 100 / run.Requested
	}
	switch run.State {
	case model.RunRunning:
		st.StatusText = fmt.Sprintf("crafting %d/%d", run.Verified, run.Requested)
	case model.RunAborted:
		st.StatusText = fmt.Sprintf("aborted at %d/%d: %s", run.Verified, run.Requested, run.Error)
	default:
		st.StatusText = fmt.Sprintf("%s %d/%d", run.State, run.Verified, run.Requested)
	}
	return st
}

type triggerToggleRequest struct {
	Enabled bool `json:"enabled"`
}

type craftStartRequest struct {
	Jobs   []model.CraftJob `json:"jobs"`
	Preset string           `json:"preset,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Handlers ---

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Monitor: h.monitor.Status()}
	if run, ok := h.crafter.Status(); ok {
		resp.Craft = newCraftStatus(run)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetMonitorConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Config())
}

func (h *Handler) handlePutMonitorConfig(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var cfg model.MonitorConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if cfg.Enabled && strings.TrimSpace(cfg.LogPath) == "" {
		writeError(w, http.StatusBadRequest, "log_path is required when enabled")
		return
	}
	if err := h.monitor.UpdateConfig(cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save config")
		log.Printf("Error saving monitor config: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, h.monitor.Config())
}

func (h *Handler) handleMonitorStart(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(h.monitor.Config().LogPath) == "" {
		writeError(w, http.StatusBadRequest, "log_path is not configured")
		return
	}
	if err := h.monitor.SetEnabled(true); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start monitor")
		log.Printf("Error starting monitor: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, h.monitor.Status())
}

func (h *Handler) handleMonitorStop(w http.ResponseWriter, r *http.Request) {
	if err := h.monitor.SetEnabled(false); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to stop monitor")
		log.Printf("Error stopping monitor: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, h.monitor.Status())
}

func (h *Handler) handleTriggerToggle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req triggerToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.monitor.ToggleTrigger(req.Enabled); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to toggle trigger")
		log.Printf("Error toggling trigger: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, h.monitor.Status())
}

func (h *Handler) handleCraftStart(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req craftStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	jobs := req.Jobs
	if req.Preset != "" {
		preset, err := h.store.GetPreset(req.Preset)
		if err != nil {
			writeError(w, http.StatusNotFound, "preset not found")
			return
		}
		for _, item := range preset.Items {
			jobs = append(jobs, model.CraftJob{Sequence: item.Sequence, Count: item.Count})
		}
	}
	if len(jobs) == 0 {
		writeError(w, http.StatusBadRequest, "jobs or preset is required")
		return
	}

	run, err := h.crafter.Start(jobs)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (h *Handler) handleCraftStop(w http.ResponseWriter, r *http.Request) {
	h.crafter.Stop()
	if run, ok := h.crafter.Status(); ok {
		writeJSON(w, http.StatusOK, run)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": string(model.RunIdle)})
}

func (h *Handler) handleCraftResume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := h.crafter.Resume(id)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.ListRuns()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		log.Printf("Error listing runs: %v", err)
		return
	}
	if runs == nil {
		runs = []*model.CraftRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := h.store.GetRun(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, craft.DefaultRecipes)
}

func (h *Handler) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.GetRun(id); err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	flusher, ok := h.startSSE(w)
	if !ok {
		return
	}

	events, err := h.store.GetEvents(id, 0)
	if err != nil {
		log.Printf("failed to load events for run %s: %v", id, err)
		events = nil
	}
	for _, e := range events {
		writeSSE(w, e)
	}
	flusher.Flush()

	h.streamBus(w, r, flusher, id)
}

func (h *Handler) handleMonitorEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := h.startSSE(w)
	if !ok {
		return
	}
	h.streamBus(w, r, flusher, monitor.Topic)
}

func (h *Handler) startSSE(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	return flusher, true
}

func (h *Handler) streamBus(w http.ResponseWriter, r *http.Request, flusher http.Flusher, topic string) {
	ch := h.bus.Subscribe(topic)
	defer h.bus.Unsubscribe(topic, ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, event)
			flusher.Flush()
		}
	}
}

// --- Presets ---

func (h *Handler) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := h.store.ListPresets()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list presets")
		log.Printf("Error listing presets: %v", err)
		return
	}
	if presets == nil {
		presets = []*model.Preset{}
	}
	writeJSON(w, http.StatusOK, presets)
}

func (h *Handler) handleSavePreset(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var items []model.PresetItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, item := range items {
		if strings.TrimSpace(item.Sequence) == "" || item.Count <= 0 {
			writeError(w, http.StatusBadRequest, "each item needs a sequence and a positive count")
			return
		}
	}
	p := &model.Preset{Slot: slot, Items: items}
	if err := h.store.SavePreset(p); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save preset")
		log.Printf("Error saving preset %s: %v", slot, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")
	p, err := h.store.GetPreset(slot)
	if err != nil {
		writeError(w, http.StatusNotFound, "preset not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleApplyPreset starts a craft run straight from a saved preset.
func (h *Handler) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")
	preset, err := h.store.GetPreset(slot)
	if err != nil {
		writeError(w, http.StatusNotFound, "preset not found")
		return
	}

	jobs := make([]model.CraftJob, 0, len(preset.Items))
	for _, item := range preset.Items {
		jobs = append(jobs, model.CraftJob{Sequence: item.Sequence, Count: item.Count})
	}
	run, err := h.crafter.Start(jobs)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// --- Favorites ---

func (h *Handler) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.ListFavorites()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list favorites")
		log.Printf("Error listing favorites: %v", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *Handler) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	recipe, ok := craft.FindRecipe(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown recipe")
		return
	}
	if err := h.store.AddFavorite(recipe.Name); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save favorite")
		log.Printf("Error saving favorite %s: %v", name, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

func (h *Handler) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if recipe, ok := craft.FindRecipe(name); ok {
		name = recipe.Name
	}
	if err := h.store.RemoveFavorite(name); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to remove favorite")
		log.Printf("Error removing favorite %s: %v", name, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	slot := chi.URLParam(r, "slot")
	if err := h.store.DeletePreset(slot); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete preset")
		log.Printf("Error deleting preset %s: %v", slot, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeSSE(w http.ResponseWriter, event *model.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("writeSSE marshal error: %v", err)
		return
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.ID, event.Type, string(data)); err != nil {
		log.Printf("writeSSE write error: %v", err)
	}
}

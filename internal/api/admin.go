package api

import (
	"context"
	"net/http"
)

// triggerPoll starts every poll job in the background and returns at once.
func (h *Handler) triggerPoll(w http.ResponseWriter, r *http.Request) {
	if h.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not running")
		return
	}
	started := []string{}
	running := []string{}
	for _, name := range h.opts.PollJobs {
		ok, err := h.trigger.Trigger(context.WithoutCancel(r.Context()), name)
		if err != nil {
			h.logger.Error("Failed to trigger job", "job", name, "error", err)
			continue
		}
		if ok {
			started = append(started, name)
		} else {
			running = append(running, name)
		}
	}
	h.logger.Info("Manual poll triggered", "user", identityFrom(r.Context()).UserID, "started", started, "running", running)
	writeJSON(w, http.StatusAccepted, map[string][]string{"started": started, "alreadyRunning": running})
}

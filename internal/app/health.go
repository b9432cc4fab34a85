package app

import (
	"net/http"
	"time"

	"github.com/R3E-Network/mvc_bridge/internal/mvc"
)

type scriptHealth struct {
	ID         string `json:"id"`
	Adapter    string `json:"adapter"`
	Path       string `json:"path"`
	Bound      bool   `json:"bound"`
	Generation uint64 `json:"generation"`
}

type eventView struct {
	Type      string    `json:"type"`
	Context   string    `json:"context"`
	Timestamp time.Time `json:"timestamp"`
}

type healthResponse struct {
	Status  string         `json:"status"`
	Active  bool           `json:"active"`
	Scripts []scriptHealth `json:"scripts"`
	Events  []eventView    `json:"events"`
}

const healthEvents = 10

// health reports 200 when the context is active and every script is bound,
// 503 otherwise.
func (a *Application) health(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Active: a.Context.IsActive(),
	}
	if !resp.Active {
		resp.Status = "unavailable"
	}

	for _, id := range a.scriptIDs {
		adapter := a.adapters[id]
		sh := scriptHealth{
			ID:         id,
			Adapter:    adapter.Name(),
			Path:       a.Container.ServiceContextPath(id),
			Bound:      adapter.Bound(),
			Generation: adapter.Generation(),
		}
		if !sh.Bound {
			resp.Status = "unavailable"
		}
		resp.Scripts = append(resp.Scripts, sh)
	}

	for _, ev := range a.Context.History().Recent(healthEvents) {
		view := eventView{Type: string(ev.Type), Timestamp: ev.Timestamp}
		if ev.Context != nil {
			view.Context = ev.Context.Name()
		}
		resp.Events = append(resp.Events, view)
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	mvc.WriteJSON(w, status, resp)
}

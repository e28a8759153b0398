package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shelfwatch/shelfwatch/pkg/market"
	"github.com/shelfwatch/shelfwatch/pkg/scheduler"
	"github.com/shelfwatch/shelfwatch/pkg/storage"
)

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.DB.ListItems(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(items)
}

// handleItemPrices returns the fresh observations of an item grouped by
// source. Within a group the cheapest total cost comes first.
func (s *Server) handleItemPrices(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	if _, err := s.DB.GetItem(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "item not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	obs, err := s.DB.LatestObservations(r.Context(), id, s.Freshness)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	grouped := map[string][]market.Observation{}
	for _, o := range obs {
		grouped[o.Source] = append(grouped[o.Source], o)
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"item_id": id,
		"count":   len(obs),
		"sources": grouped,
	})
}

func (s *Server) handleItemHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	days := queryInt(r, "days", 30)

	history, err := s.DB.ObservationHistory(r.Context(), id, days)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(history)
}

func (s *Server) handleItemStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	days := queryInt(r, "days", 30)

	stats, err := s.DB.ItemStats(r.Context(), id, days)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(stats)
}

// handleItemRefresh queues a forced price check for one item and
// returns immediately.
func (s *Server) handleItemRefresh(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	item, err := s.DB.GetItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "item not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	queued := s.Runner.Submit(scheduler.Task{
		Name:    "refresh item " + strconv.FormatInt(id, 10),
		Retries: 1,
		Fn: func(ctx context.Context) error {
			_, err := s.Orchestrator.CheckAndSavePrices(ctx, item)
			return err
		},
	})
	if !queued {
		http.Error(w, "refresh queue full", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]bool{"queued": true})
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "missing or invalid user parameter", http.StatusBadRequest)
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"

	alerts, err := s.DB.ListAlerts(r.Context(), userID, unreadOnly)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(alerts)
}

func (s *Server) handleMarkAlertRead(w http.ResponseWriter, r *http.Request) {
	s.alertOwnerAction(w, r, s.DB.MarkAlertRead)
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	s.alertOwnerAction(w, r, s.DB.DeleteAlert)
}

func (s *Server) alertOwnerAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id, userID int64) error) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid alert id", http.StatusBadRequest)
		return
	}
	userID, err := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "missing or invalid user parameter", http.StatusBadRequest)
		return
	}

	if err := action(r.Context(), id, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "alert not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

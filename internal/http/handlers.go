package http

import (
	"context"
	"log/slog"
	"net/http"

	"ledger/internal/core"
)

func (s *Server) handleListObligations(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Overview(r.Context(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toPortfolioJSON(p))
}

func (s *Server) handleGetObligation(w http.ResponseWriter, r *http.Request) {
	v, err := s.svc.View(r.Context(), r.PathValue("id"), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toObligationJSON(v, true))
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, err := s.svc.TogglePeriod(r.Context(), id, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.svc.View(r.Context(), id, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, transitionJSON{
		ObligationID: id,
		From:         string(t.From),
		To:           string(t.To),
		Added:        toEntriesJSON(t.Added),
		Removed:      toEntriesJSON(t.Removed),
		Obligation:   toObligationJSON(v, true),
	})
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	entry, err := parseEntryRequest(w, r, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	added, err := s.svc.AddEntry(r.Context(), id, entry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toEntryJSON(added))
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	overrides, err := parsePayoffs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	now := s.now()
	asOf := core.PeriodOf(now)
	s.serveCached(w, r, "schedule:"+asOf.String()+":"+overridesKey(overrides), func(ctx context.Context) (any, error) {
		sched, err := s.svc.Schedule(ctx, now, overrides)
		if err != nil {
			return nil, err
		}
		return toScheduleJSON(asOf, sched), nil
	})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	s.serveCached(w, r, "series:"+core.PeriodOf(now).String(), func(ctx context.Context) (any, error) {
		set, err := s.svc.Series(ctx, now)
		if err != nil {
			return nil, err
		}
		return toSeriesSetJSON(set), nil
	})
}

// serveCached renders build's result, reusing a cached body while the ledger
// snapshot is unchanged.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, key string, build func(context.Context) (any, error)) {
	ctx := r.Context()
	if s.cache != nil {
		if fp, err := s.svc.Fingerprint(ctx); err == nil {
			key = key + ":" + fp
			if body, ok := s.cache.Get(key); ok {
				slog.DebugContext(ctx, "Response cache hit", "key", key)
				w.Header().Set("X-Cache", "hit")
				writeRaw(w, http.StatusOK, body)
				return
			}
		} else {
			slog.WarnContext(ctx, "Fingerprint failed, bypassing cache", "error", err)
			key = ""
		}
	}

	v, err := build(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := jsonBody(v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.cache != nil && key != "" {
		s.cache.Set(key, body)
		w.Header().Set("X-Cache", "miss")
	}
	writeRaw(w, http.StatusOK, body)
}

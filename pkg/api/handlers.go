package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/linlog/pkg/core/graph"
	"github.com/matzehuels/linlog/pkg/engine"
	"github.com/matzehuels/linlog/pkg/errors"
	graphio "github.com/matzehuels/linlog/pkg/io"
	"github.com/matzehuels/linlog/pkg/pipeline"
	"github.com/matzehuels/linlog/pkg/session"
)

type layoutRequest struct {
	Graph   graphio.GraphDoc `json:"graph"`
	Options json.RawMessage  `json:"options,omitempty"`
}

type layoutResponse struct {
	graphio.Layout
	Cached bool `json:"cached"`
}

type sessionRequest struct {
	Options json.RawMessage `json:"options,omitempty"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type snapshotResponse struct {
	Seq     uint64         `json:"seq"`
	Trigger string         `json:"trigger,omitempty"`
	Layout  graphio.Layout `json:"layout"`
}

func newSnapshotResponse(snap engine.Snapshot) snapshotResponse {
	return snapshotResponse{Seq: snap.Seq, Trigger: snap.Trigger, Layout: snap.Layout()}
}

// options decodes raw over the server defaults. The logger is not part of
// the wire form and always comes from the server.
func (s *Server) options(raw json.RawMessage) (pipeline.Options, error) {
	opts := s.cfg.Defaults
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &opts); err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidOptions, err, "decode options")
		}
	}
	opts.Logger = s.logger
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := s.options(req.Options)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := req.Graph.Build()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, cached, err := s.cfg.Runner.ComputeLayout(r.Context(), g, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, layoutResponse{Layout: res.Layout(), Cached: cached})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := s.options(req.Options)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess := session.New(opts, s.cfg.SessionTTL)
	if err := s.cfg.Sessions.Set(r.Context(), sess); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Debug("session created", "id", sess.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID, ExpiresAt: sess.ExpiresAt()})
}

func (s *Server) session(r *http.Request) (*session.Session, error) {
	return s.cfg.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
}

// handleEdits applies a batch of nodes and edges. The batch is validated
// up front so a bad entry leaves the graph untouched; a valid batch
// relays out exactly once.
func (s *Server) handleEdits(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var doc graphio.GraphDoc
	if err := s.decodeJSON(w, r, &doc); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := doc.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	var snap engine.Snapshot
	err = sess.Do(func(e *engine.Engine) error {
		if err := e.Edit(func(g *graph.Graph) error { return doc.Apply(g) }); err != nil {
			return err
		}
		snap = e.Snapshot()
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotResponse(snap))
}

func (s *Server) handleSessionLayout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var snap engine.Snapshot
	err = sess.Do(func(e *engine.Engine) error {
		snap = e.Snapshot()
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotResponse(snap))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docnav/internal/catalog"
	"github.com/dgallion1/docnav/internal/loader"
	"github.com/dgallion1/docnav/internal/navtree"
	"github.com/dgallion1/docnav/internal/outline"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"projects": s.catalog.List()})
}

// entry resolves {name} to a loaded project or writes the error response.
func (s *Server) entry(w http.ResponseWriter, r *http.Request) (*catalog.Entry, bool) {
	name := chi.URLParam(r, "name")
	if e, ok := s.catalog.Get(name); ok {
		return e, true
	}
	if _, ok := s.catalog.Target(name); ok {
		jsonError(w, "project "+name+" is not loaded yet", http.StatusServiceUnavailable)
		return nil, false
	}
	jsonError(w, "unknown project "+name, http.StatusNotFound)
	return nil, false
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":      e.Project.Name(),
		"source":    e.Project.Source().String(),
		"loaded_at": e.LoadedAt,
		"took_ms":   e.Took.Milliseconds(),
		"tree":      e.Project.Tree(),
	})
}

func (s *Server) handleShard(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		jsonError(w, "id query parameter is required", http.StatusBadRequest)
		return
	}
	idx := e.Project.Tree().Index()
	if idx.IsEmpty() {
		s.metrics.IncLookup("shard", "error")
		jsonError(w, "project has no shard index", http.StatusNotFound)
		return
	}
	shard, found := idx.ShardFor(id)
	s.metrics.IncLookup("shard", outcome(found))
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       id,
		"shard":    shard,
		"file":     navtree.ShardFile(shard),
		"fallback": !found,
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	url := r.URL.Query().Get("url")
	if url == "" {
		jsonError(w, "url query parameter is required", http.StatusBadRequest)
		return
	}
	loc, err := e.Project.Resolve(r.Context(), url)
	if err != nil {
		s.metrics.IncLookup("resolve", "error")
		jsonError(w, "resolve: "+err.Error(), loadErrorStatus(err))
		return
	}
	s.metrics.IncLookup("resolve", outcome(!loc.Fallback))
	writeJSON(w, http.StatusOK, loc)
}

type childView struct {
	Position int    `json:"position"`
	Label    string `json:"label"`
	Target   string `json:"target"`
	Kind     string `json:"kind"`
	Lazy     string `json:"lazy,omitempty"`
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	path, err := parsePath(r.URL.Query().Get("path"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	p := e.Project
	var (
		node *navtree.Node
		kids []*navtree.Node
	)
	if len(path) == 0 {
		kids = p.Tree().Roots()
	} else {
		trail, err := p.NodeAt(r.Context(), path)
		if err != nil {
			s.metrics.IncLookup("children", "error")
			jsonError(w, err.Error(), pathErrorStatus(err))
			return
		}
		node = trail[len(trail)-1]
		if kids, err = p.Children(r.Context(), node); err != nil {
			s.metrics.IncLookup("children", "error")
			jsonError(w, err.Error(), loadErrorStatus(err))
			return
		}
	}
	s.metrics.IncLookup("children", "hit")

	views := make([]childView, len(kids))
	for i, k := range kids {
		views[i] = childView{Position: i, Label: k.Label(), Target: k.Target(), Kind: k.Kind().String(), Lazy: k.Ref()}
	}
	resp := map[string]any{"path": path, "children": views}
	if node != nil {
		resp["label"] = node.Label()
		resp["target"] = node.Target()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.Report)
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	opts := outline.Options{Depth: s.cfg.OutlineDepth, SkipLazy: r.URL.Query().Get("lazy") == "false"}
	if v := r.URL.Query().Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, "depth must be a non-negative integer", http.StatusBadRequest)
			return
		}
		opts.Depth = n
	}

	if r.URL.Query().Get("format") == "markdown" {
		md, err := outline.Markdown(r.Context(), e.Project, opts)
		if err != nil {
			jsonError(w, "outline: "+err.Error(), loadErrorStatus(err))
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(md))
		return
	}
	html, err := outline.HTML(r.Context(), e.Project, opts)
	if err != nil {
		jsonError(w, "outline: "+err.Error(), loadErrorStatus(err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := s.catalog.Target(name); !ok {
		jsonError(w, "unknown project "+name, http.StatusNotFound)
		return
	}
	job, err := s.orchestrator.Enqueue(name, "api")
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusAccepted, job.Snapshot())
		return
	}
	snap, err := job.Wait(r.Context())
	if err != nil {
		writeJSON(w, http.StatusAccepted, snap)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// parsePath reads a dotted position list such as "0.3.1".
func parsePath(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ".")
	path := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, errors.New("path must be dot-separated non-negative integers")
		}
		path[i] = n
	}
	return path, nil
}

func loadErrorStatus(err error) int {
	if errors.Is(err, loader.ErrNotFound) {
		return http.StatusBadGateway
	}
	if loader.IsRetryable(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func pathErrorStatus(err error) int {
	if errors.Is(err, loader.ErrNoSuchNode) {
		return http.StatusNotFound
	}
	return loadErrorStatus(err)
}

func outcome(found bool) string {
	if found {
		return "hit"
	}
	return "fallback"
}

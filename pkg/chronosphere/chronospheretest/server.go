// Package chronospheretest provides an in-memory fake of the Chronosphere configuration API.
package chronospheretest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/giantswarm/chronosphere-sync/pkg/chronosphere"
	"github.com/giantswarm/chronosphere-sync/pkg/domain/asset"
)

const apiPrefix = "/api/v1/config/"

// Request is a request received by the server.
type Request struct {
	Method string
	Path   string
	// Body is the decoded object of POST and PUT requests.
	Body map[string]any
}

// Failure is an injected error response.
type Failure struct {
	Method string
	// Path is matched as a prefix of the request path.
	Path   string
	Status int
	// Times is how many matching requests fail, 0 means every one.
	Times int
}

// Server is a fake configuration API. Objects get server-side created_at and updated_at fields
// like the real API.
type Server struct {
	*httptest.Server

	Token string
	// PageSize caps list pages regardless of page.max_size, 0 means no cap.
	PageSize int

	mu       sync.Mutex
	objects  map[string]map[string]map[string]any
	requests []Request
	failures []*Failure
	clock    func() time.Time
}

// NewServer starts a fake API accepting token.
func NewServer(token string) *Server {
	s := &Server{
		Token:   token,
		objects: make(map[string]map[string]map[string]any),
		clock:   time.Now,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Seed stores an object as if it had been created earlier.
func (s *Server) Seed(kind asset.Kind, obj map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slug, _ := obj["slug"].(string)
	s.store(kind.Resource())[slug] = s.stamp(clone(obj), nil)
}

// Object returns a stored object.
func (s *Server) Object(kind asset.Kind, slug string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[kind.Resource()][slug]
	return clone(obj), ok
}

// Objects returns every stored object of a kind keyed by slug.
func (s *Server) Objects(kind asset.Kind) map[string]map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]map[string]any)
	for slug, obj := range s.objects[kind.Resource()] {
		out[slug] = clone(obj)
	}
	return out
}

// Fail injects an error response.
func (s *Server) Fail(f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = append(s.failures, &f)
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.requests)
}

// Writes returns the POST and PUT requests received so far.
func (s *Server) Writes() []Request {
	var writes []Request
	for _, r := range s.Requests() {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			writes = append(writes, r)
		}
	}
	return writes
}

// Reset forgets recorded requests and pending failures but keeps objects.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = nil
	s.failures = nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := Request{Method: r.Method, Path: r.URL.Path}
	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut) {
		var envelope map[string]map[string]any
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			s.requests = append(s.requests, req)
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		for _, obj := range envelope {
			req.Body = obj
		}
	}
	s.requests = append(s.requests, req)

	if r.Header.Get(chronosphere.TokenHeader) != s.Token {
		writeError(w, http.StatusUnauthorized, "invalid API token")
		return
	}

	if status, ok := s.injectedFailure(r); ok {
		writeError(w, status, http.StatusText(status))
		return
	}

	kind, slug, ok := parsePath(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown path")
		return
	}
	store := s.store(kind.Resource())

	switch {
	case r.Method == http.MethodGet && slug == "":
		s.list(w, r, kind, store)
	case r.Method == http.MethodGet:
		obj, ok := store[slug]
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("%s %q not found", kind.Singular(), slug))
			return
		}
		writeObject(w, http.StatusOK, kind, obj)
	case r.Method == http.MethodPost && slug == "":
		newSlug, _ := req.Body["slug"].(string)
		if newSlug == "" {
			writeError(w, http.StatusBadRequest, "slug is required")
			return
		}
		if _, exists := store[newSlug]; exists {
			writeError(w, http.StatusConflict, fmt.Sprintf("%s %q already exists", kind.Singular(), newSlug))
			return
		}
		store[newSlug] = s.stamp(req.Body, nil)
		writeObject(w, http.StatusOK, kind, store[newSlug])
	case r.Method == http.MethodPut && slug != "":
		existing, ok := store[slug]
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("%s %q not found", kind.Singular(), slug))
			return
		}
		store[slug] = s.stamp(req.Body, existing)
		writeObject(w, http.StatusOK, kind, store[slug])
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, kind asset.Kind, store map[string]map[string]any) {
	slugs := make([]string, 0, len(store))
	for slug := range store {
		slugs = append(slugs, slug)
	}
	slices.Sort(slugs)

	size, _ := strconv.Atoi(r.URL.Query().Get("page.max_size"))
	if s.PageSize > 0 && (size <= 0 || size > s.PageSize) {
		size = s.PageSize
	}
	if size <= 0 {
		size = len(slugs)
	}

	start, _ := strconv.Atoi(r.URL.Query().Get("page.token"))
	start = min(start, len(slugs))
	end := min(start+size, len(slugs))

	objects := make([]map[string]any, 0, end-start)
	for _, slug := range slugs[start:end] {
		objects = append(objects, store[slug])
	}

	next := ""
	if end < len(slugs) {
		next = strconv.Itoa(end)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		kind.Plural(): objects,
		"page":        map[string]any{"next_token": next},
	})
}

func (s *Server) injectedFailure(r *http.Request) (int, bool) {
	for i, f := range s.failures {
		if f.Method != "" && f.Method != r.Method {
			continue
		}
		if !strings.HasPrefix(r.URL.Path, f.Path) {
			continue
		}
		if f.Times > 0 {
			f.Times--
			if f.Times == 0 {
				s.failures = slices.Delete(s.failures, i, i+1)
			}
		}
		return f.Status, true
	}
	return 0, false
}

func (s *Server) store(resource string) map[string]map[string]any {
	store, ok := s.objects[resource]
	if !ok {
		store = make(map[string]map[string]any)
		s.objects[resource] = store
	}
	return store
}

func (s *Server) stamp(obj, existing map[string]any) map[string]any {
	now := s.clock().UTC().Format(time.RFC3339)
	obj = clone(obj)
	obj["created_at"] = now
	if existing != nil {
		obj["created_at"] = existing["created_at"]
	}
	obj["updated_at"] = now
	return obj
}

func parsePath(path string) (asset.Kind, string, bool) {
	rest, ok := strings.CutPrefix(path, apiPrefix)
	if !ok {
		return 0, "", false
	}
	resource, slug, _ := strings.Cut(rest, "/")
	for _, kind := range asset.Kinds {
		if kind.Resource() == resource {
			return kind, slug, true
		}
	}
	return 0, "", false
}

func writeObject(w http.ResponseWriter, status int, kind asset.Kind, obj map[string]any) {
	writeJSON(w, status, map[string]any{kind.Singular(): obj})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"code": status, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func clone(obj map[string]any) map[string]any {
	if obj == nil {
		return nil
	}
	data, _ := json.Marshal(obj)
	var out map[string]any
	_ = json.Unmarshal(data, &out)
	return out
}

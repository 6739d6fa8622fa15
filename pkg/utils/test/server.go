// Package testutils provides shared test doubles for the stacks system.
package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync/atomic"
)

// KnowledgeServer is an in-memory stand-in for a knowledge base server. Tests
// configure documents up front, start it, and point a knowledge client at its
// URL.
type KnowledgeServer struct {
	// SearchResults is returned for every search request.
	SearchResults []map[string]any

	// Documents maps collection -> document ID -> document payload.
	Documents map[string]map[string]map[string]any

	// FailSearches makes the search route return 503 this many times before
	// serving results.
	FailSearches int32

	server *httptest.Server

	searchHits      atomic.Int32
	documentHits    atomic.Int32
	collectionsHits atomic.Int32
	searchFailures  atomic.Int32
}

// NewKnowledgeServer creates an unstarted knowledge server.
func NewKnowledgeServer() *KnowledgeServer {
	return &KnowledgeServer{
		Documents: make(map[string]map[string]map[string]any),
	}
}

// AddDocument registers a document payload under a collection.
func (s *KnowledgeServer) AddDocument(collection, id string, doc map[string]any) {
	if s.Documents[collection] == nil {
		s.Documents[collection] = make(map[string]map[string]any)
	}
	s.Documents[collection][id] = doc
}

// Start launches the server and returns its base URL.
func (s *KnowledgeServer) Start() string {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/document/", s.handleDocument)
	mux.HandleFunc("/api/collections", s.handleCollections)

	s.server = httptest.NewServer(mux)
	return s.server.URL
}

// Close shuts the server down.
func (s *KnowledgeServer) Close() {
	if s.server != nil {
		s.server.Close()
	}
}

// SearchHits reports how many search requests the server has received.
func (s *KnowledgeServer) SearchHits() int32 { return s.searchHits.Load() }

// DocumentHits reports how many document requests the server has received.
func (s *KnowledgeServer) DocumentHits() int32 { return s.documentHits.Load() }

// CollectionsHits reports how many collections requests the server has received.
func (s *KnowledgeServer) CollectionsHits() int32 { return s.collectionsHits.Load() }

func (s *KnowledgeServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.searchHits.Add(1)

	if s.searchFailures.Add(1) <= s.FailSearches {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	results := s.SearchResults
	if results == nil {
		results = []map[string]any{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": results})
}

func (s *KnowledgeServer) handleDocument(w http.ResponseWriter, r *http.Request) {
	s.documentHits.Add(1)

	id := strings.TrimPrefix(r.URL.Path, "/api/document/")
	collection := r.URL.Query().Get("collection")
	if collection == "" {
		collection = "default"
	}

	doc, ok := s.Documents[collection][id]
	if !ok {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"document": doc})
}

func (s *KnowledgeServer) handleCollections(w http.ResponseWriter, r *http.Request) {
	s.collectionsHits.Add(1)

	collections := make([]string, 0, len(s.Documents))
	for name := range s.Documents {
		collections = append(collections, name)
	}
	sort.Strings(collections)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"collections": collections})
}

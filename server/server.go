package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"pdfchat/internal/models"
	"pdfchat/internal/types"
	"pdfchat/pkg/chunker"
	"pdfchat/pkg/embedder"
	"pdfchat/pkg/llm"
	"pdfchat/pkg/search"
	"pdfchat/pkg/session"
)

type Config struct {
	Port            string
	SearchThreshold float64
	SearchTopK      int
}

// Server exposes the retrieval pipeline over JSON endpoints. Requests
// from different sessions run concurrently; the store is the only shared
// resource.
type Server struct {
	config   Config
	chunker  *chunker.Chunker
	batcher  *embedder.Batcher
	provider types.Provider
	store    types.Store
	searcher *search.Searcher
	sessions *session.Manager
	chat     *llm.ChatEngine // optional; without it /search returns matches only
	logger   zerolog.Logger
}

func New(config Config, ckr *chunker.Chunker, batcher *embedder.Batcher, provider types.Provider,
	store types.Store, searcher *search.Searcher, sessions *session.Manager,
	chat *llm.ChatEngine, logger zerolog.Logger) *Server {

	if config.Port == "" {
		config.Port = "8080"
	}
	if config.SearchThreshold == 0 {
		config.SearchThreshold = 0.5
	}
	if config.SearchTopK == 0 {
		config.SearchTopK = 5
	}

	return &Server{
		config:   config,
		chunker:  ckr,
		batcher:  batcher,
		provider: provider,
		store:    store,
		searcher: searcher,
		sessions: sessions,
		chat:     chat,
		logger:   logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /documents/chunks", s.handleChunks)
	mux.HandleFunc("POST /embeddings", s.handleEmbeddings)
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("POST /sessions", s.handleNewSession)
	mux.HandleFunc("POST /sessions/clear", s.handleClear)
	mux.HandleFunc("POST /sessions/sweep", s.handleSweep)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("port", s.config.Port).Msg("starting server")
	return http.ListenAndServe(":"+s.config.Port, s.Handler())
}

type chunksRequest struct {
	Text string `json:"text"`
}

type chunksResponse struct {
	Chunks      []string `json:"chunks"`
	TotalChunks int      `json:"total_chunks"`
}

func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	var req chunksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	chunks := s.chunker.Chunk(chunker.Clean(req.Text))
	writeJSON(w, http.StatusOK, chunksResponse{
		Chunks:      chunks,
		TotalChunks: len(chunks),
	})
}

type embeddingsRequest struct {
	SessionID string   `json:"session_id"`
	Filename  string   `json:"filename"`
	Chunks    []string `json:"chunks"`
}

type embeddingsResponse struct {
	Success         bool `json:"success"`
	Count           int  `json:"count"`
	ProcessedChunks int  `json:"processed_chunks"`
	TotalChunks     int  `json:"total_chunks"`
	Partial         bool `json:"partial"`
}

func (s *Server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req embeddingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	texts := make([]string, 0, len(req.Chunks))
	for _, chunk := range req.Chunks {
		if strings.TrimSpace(chunk) != "" {
			texts = append(texts, chunk)
		}
	}
	if len(texts) == 0 {
		writeError(w, http.StatusBadRequest, "no valid text chunks found")
		return
	}

	result, err := s.batcher.Embed(r.Context(), texts)
	if err != nil {
		if errors.Is(err, embedder.ErrCapacityExceeded) {
			// nothing was embedded; report distinctly so the caller can
			// resubmit later instead of treating the document as lost
			writeError(w, http.StatusTooManyRequests, "embedding capacity exceeded, try again later")
			return
		}
		s.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("embedding failed")
		writeError(w, http.StatusBadGateway, "embedding provider failed")
		return
	}

	docs := make([]models.StoredDocument, result.Processed)
	for i := 0; i < result.Processed; i++ {
		docs[i] = models.StoredDocument{
			Chunk: models.Chunk{
				SessionID: req.SessionID,
				Ordinal:   i,
				Content:   texts[i],
			},
			Embedding:   result.Vectors[i],
			Filename:    req.Filename,
			TotalChunks: result.Total,
		}
	}

	if err := s.store.Insert(r.Context(), req.SessionID, docs); err != nil {
		s.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("storing embeddings failed")
		writeError(w, http.StatusInternalServerError, "failed to store embeddings")
		return
	}

	s.logger.Info().
		Str("session_id", req.SessionID).
		Int("processed", result.Processed).
		Int("total", result.Total).
		Bool("partial", result.Partial).
		Msg("document embedded")

	writeJSON(w, http.StatusOK, embeddingsResponse{
		Success:         true,
		Count:           result.Processed,
		ProcessedChunks: result.Processed,
		TotalChunks:     result.Total,
		Partial:         result.Partial,
	})
}

type searchRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type searchMatch struct {
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	ChunkIndex int     `json:"chunk_index"`
	Filename   string  `json:"filename,omitempty"`
}

type searchResponse struct {
	Response string        `json:"response"`
	Matches  []searchMatch `json:"matches"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	vectors, err := s.provider.CreateEmbeddings(r.Context(), []string{req.Message})
	if err != nil {
		if errors.Is(err, embedder.ErrCapacityExceeded) {
			writeError(w, http.StatusTooManyRequests, "embedding capacity exceeded, try again later")
			return
		}
		s.logger.Error().Err(err).Msg("query embedding failed")
		writeError(w, http.StatusBadGateway, "embedding provider failed")
		return
	}
	if len(vectors) != 1 {
		writeError(w, http.StatusBadGateway, "embedding provider returned no vector")
		return
	}

	results, err := s.searcher.Search(r.Context(), req.SessionID, vectors[0],
		s.config.SearchThreshold, s.config.SearchTopK)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("search failed")
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	resp := searchResponse{Matches: make([]searchMatch, 0, len(results))}
	for _, result := range results {
		resp.Matches = append(resp.Matches, searchMatch{
			Content:    result.Document.Content,
			Similarity: result.Similarity,
			ChunkIndex: result.Document.Ordinal,
			Filename:   result.Document.Filename,
		})
	}

	if s.chat != nil && len(results) > 0 {
		answer, err := s.chat.Answer(r.Context(), req.Message, results)
		if err != nil {
			s.logger.Error().Err(err).Msg("answer synthesis failed")
			writeError(w, http.StatusBadGateway, "answer synthesis failed")
			return
		}
		resp.Response = answer
	}

	writeJSON(w, http.StatusOK, resp)
}

type newSessionResponse struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.sessions.NewSession()
	if err != nil {
		s.logger.Error().Err(err).Msg("session id generation failed")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse{SessionID: id})
}

type clearRequest struct {
	SessionID string `json:"session_id"`
}

type clearResponse struct {
	Success      bool  `json:"success"`
	DeletedCount int64 `json:"deleted_count"`
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	deleted := s.sessions.Clear(r.Context(), req.SessionID)
	writeJSON(w, http.StatusOK, clearResponse{
		Success:      true,
		DeletedCount: deleted,
	})
}

type sweepResponse struct {
	DeletedCount       int64    `json:"deleted_count"`
	AffectedSessionIDs []string `json:"affected_session_ids"`
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	result, err := s.sessions.Sweep(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("sweep failed")
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}

	writeJSON(w, http.StatusOK, sweepResponse{
		DeletedCount:       result.Deleted,
		AffectedSessionIDs: result.Sessions,
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

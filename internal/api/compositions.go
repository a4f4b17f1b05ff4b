package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/tunesmith/internal/composer"
	"github.com/samcharles93/tunesmith/internal/generate"
	"github.com/samcharles93/tunesmith/internal/logger"
	"github.com/samcharles93/tunesmith/internal/render"
	"github.com/samcharles93/tunesmith/internal/version"
	"github.com/samcharles93/tunesmith/internal/vocab"
)

// Composer is the part of *composer.Composer the server needs.
type Composer interface {
	Compose(ctx context.Context, req composer.Request, opts ...generate.Option) (*composer.Composition, error)
	Codec() *vocab.Codec
}

type ServerConfig struct {
	Store    *CompositionStore
	Composer Composer
	Renderer render.Renderer
	Logger   logger.Logger
}

type Server struct {
	store    *CompositionStore
	composer Composer
	renderer render.Renderer
	log      logger.Logger
}

func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		store:    cfg.Store,
		composer: cfg.Composer,
		renderer: cfg.Renderer,
		log:      cfg.Logger,
	}
	if s.store == nil {
		s.store = NewCompositionStore()
	}
	if s.renderer == nil {
		s.renderer = render.NewSynth()
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	return s
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/compositions", s.handleCreateComposition)
	e.GET("/v1/compositions", s.handleListCompositions)
	e.GET("/v1/compositions/:id", s.handleGetComposition)
	e.GET("/v1/compositions/:id/audio", s.handleCompositionAudio)
	e.DELETE("/v1/compositions/:id", s.handleDeleteComposition)
	e.GET("/v1/vocabulary", s.handleVocabulary)
	e.GET("/healthz", s.handleHealth)
}

func (s *Server) handleCreateComposition(c *echo.Context) error {
	if s.composer == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "composer not configured", "")
	}
	req, err := decodeJSON[CreateCompositionRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	var (
		writer *SSEStreamWriter
		opts   []generate.Option
	)
	if streamParam(c) {
		writer, err = NewSSEStreamWriter(c)
		if err != nil {
			return writeBadRequest(c, err.Error())
		}
		opts = append(opts, generate.WithSymbolFunc(writer.EmitSymbol))
	}

	comp, err := s.composer.Compose(c.Request().Context(), composer.Request{
		Seed:        req.Seed,
		Temperature: req.Temperature,
		Length:      req.Length,
		RandSeed:    req.RandSeed,
	}, opts...)
	if err != nil {
		if writer != nil && writer.Started() {
			return writer.Failed(err)
		}
		if isClientError(err) {
			return writeBadRequest(c, err.Error())
		}
		s.log.Error("composition failed", "error", err)
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "")
	}

	s.store.Save(comp)
	s.log.Info("composition created",
		"id", comp.ID,
		"length", comp.Length,
		"temperature", comp.Temperature,
		"duration", comp.Stats.Duration,
	)

	resp := NewCompositionResponse(comp)
	if writer != nil {
		return writer.Complete(resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListCompositions(c *echo.Context) error {
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return writeBadRequest(c, "limit must be an integer between 1 and 100")
		}
		limit = n
	}
	all := s.store.List()
	if len(all) > limit {
		all = all[:limit]
	}
	data := make([]CompositionResponse, 0, len(all))
	for _, comp := range all {
		data = append(data, NewCompositionResponse(comp))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"object": "list",
		"data":   data,
	})
}

func (s *Server) handleGetComposition(c *echo.Context) error {
	comp, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "composition not found")
	}
	return c.JSON(http.StatusOK, NewCompositionResponse(comp))
}

func (s *Server) handleCompositionAudio(c *echo.Context) error {
	id := c.Param("id")
	comp, ok := s.store.Get(id)
	if !ok {
		return writeNotFound(c, "composition not found")
	}
	wav, ok := s.store.Audio(id)
	if !ok {
		var err error
		wav, err = s.renderer.Render(comp.Text)
		if err != nil {
			s.log.Error("render failed", "id", id, "error", err)
			return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "")
		}
		s.store.PutAudio(id, wav)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "audio/wav")
	res.Header().Set("Content-Length", strconv.Itoa(len(wav)))
	res.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", id+".wav"))
	res.WriteHeader(http.StatusOK)
	_, err := res.Write(wav)
	return err
}

func (s *Server) handleDeleteComposition(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeNotFound(c, "composition not found")
	}
	return c.JSON(http.StatusOK, DeleteCompositionResp{
		ID:      id,
		Object:  "composition",
		Deleted: true,
	})
}

func (s *Server) handleVocabulary(c *echo.Context) error {
	if s.composer == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "composer not configured", "")
	}
	codec := s.composer.Codec()
	return c.JSON(http.StatusOK, VocabularyResponse{
		Object:   "vocabulary",
		Size:     codec.Size(),
		Alphabet: codec.Alphabet(),
	})
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.String(),
	})
}

package api

import (
	"github.com/samcharles93/tunesmith/internal/composer"
)

type CreateCompositionRequest struct {
	Seed        *string  `json:"seed,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Length      *int     `json:"length,omitempty"`
	RandSeed    *int64   `json:"rand_seed,omitempty"`
}

type CompositionStats struct {
	Symbols          int     `json:"symbols"`
	DurationMS       float64 `json:"duration_ms"`
	SymbolsPerSecond float64 `json:"symbols_per_second"`
	Greedy           int     `json:"greedy"`
}

type CompositionResponse struct {
	ID          string           `json:"id"`
	Object      string           `json:"object"`
	CreatedAt   int64            `json:"created_at"`
	Seed        string           `json:"seed"`
	Temperature float64          `json:"temperature"`
	Length      int              `json:"length"`
	RandSeed    int64            `json:"rand_seed"`
	Text        string           `json:"text"`
	Tune        string           `json:"tune"`
	Stats       CompositionStats `json:"stats"`
}

type DeleteCompositionResp struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

type VocabularyResponse struct {
	Object   string `json:"object"`
	Size     int    `json:"size"`
	Alphabet string `json:"alphabet"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

type streamEvent struct {
	Type           string               `json:"type"`
	SequenceNumber int                  `json:"sequence_number"`
	Delta          string               `json:"delta,omitempty"`
	Composition    *CompositionResponse `json:"composition,omitempty"`
	Error          *ResponseError       `json:"error,omitempty"`
}

// NewCompositionResponse is the wire form of a composition.
func NewCompositionResponse(c *composer.Composition) CompositionResponse {
	return CompositionResponse{
		ID:          c.ID,
		Object:      "composition",
		CreatedAt:   c.CreatedAt.Unix(),
		Seed:        c.Seed,
		Temperature: c.Temperature,
		Length:      c.Length,
		RandSeed:    c.RandSeed,
		Text:        c.Text,
		Tune:        c.Tune(),
		Stats: CompositionStats{
			Symbols:          c.Stats.Symbols,
			DurationMS:       float64(c.Stats.Duration.Microseconds()) / 1000,
			SymbolsPerSecond: c.Stats.SPS,
			Greedy:           c.Stats.Greedy,
		},
	}
}

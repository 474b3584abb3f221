package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/edgeflare/pgrag/pkg/metrics"
	"go.uber.org/zap"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerateRequest is the body for /api/generate requests. Model and Prompt fields are required.
type GenerateRequest struct {
	Options map[string]any `json:"options,omitempty"`
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
}

// StreamResult summarizes an accumulated generate response.
type StreamResult struct {
	Text      string
	Errors    []string
	Fragments int
	Skipped   int
}

// maxResponseSize bounds the whole generate response body.
const maxResponseSize = 8 << 20

// Accumulate concatenates the "response" values of the JSON fragments in r in arrival
// order. Fragments may be newline-delimited, concatenated or span several lines.
// Fragments that are not JSON objects, lack "response" or carry a non-string
// "response" are skipped and counted, never fatal; other fields never discard the text.
// After invalid JSON decoding resumes on the next line. Only a read failure of r or a
// body larger than maxResponseSize returns an error.
func Accumulate(r io.Reader) (StreamResult, error) {
	var result StreamResult

	data, err := io.ReadAll(io.LimitReader(r, maxResponseSize+1))
	if err != nil {
		return result, fmt.Errorf("%w: read generate response: %w", ErrMalformedResponse, err)
	}
	if len(data) > maxResponseSize {
		return result, fmt.Errorf("%w: generate response exceeds %d bytes", ErrMalformedResponse, maxResponseSize)
	}

	var text strings.Builder
	base := 0
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		start := base + int(dec.InputOffset())

		var raw json.RawMessage
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			break
		}
		result.Fragments++

		if err != nil {
			result.Skipped++
			pos := start + len(data[start:]) - len(bytes.TrimLeft(data[start:], " \t\r\n"))
			nl := bytes.IndexByte(data[pos:], '\n')
			if nl < 0 {
				break
			}
			base = pos + nl + 1
			dec = json.NewDecoder(bytes.NewReader(data[base:]))
			continue
		}

		response, errMsg, ok := readFragment(raw)
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
		}
		if !ok {
			result.Skipped++
			continue
		}
		text.WriteString(response)
	}

	result.Text = text.String()
	return result, nil
}

// readFragment extracts the string "response" and any "error" of one fragment.
// ok is false when raw is not an object or has no string "response".
func readFragment(raw json.RawMessage) (response, errMsg string, ok bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", "", false
	}

	if value, found := fields["error"]; found && !isNull(value) {
		if err := json.Unmarshal(value, &errMsg); err != nil {
			errMsg = string(value)
		}
	}

	value, found := fields["response"]
	if !found || isNull(value) {
		return "", errMsg, false
	}
	if err := json.Unmarshal(value, &response); err != nil {
		return "", errMsg, false
	}
	return response, errMsg, true
}

func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}

// OllamaGenerator calls an Ollama-compatible /api/generate endpoint.
type OllamaGenerator struct {
	logger *zap.Logger
	config ServiceConfig
}

// NewOllamaGenerator creates a generator for the configured endpoint and model.
func NewOllamaGenerator(config ServiceConfig, loggers ...*zap.Logger) *OllamaGenerator {
	return &OllamaGenerator{
		config: config,
		logger: pickLogger(loggers),
	}
}

// Generate requests a non-streaming completion and returns the accumulated response text.
// Malformed fragments are skipped, so the text may be partial; see Accumulate.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt", ErrEmptyInput)
	}

	body, err := post(ctx, serviceGeneration, g.config, GenerateRequest{
		Model:  g.config.Model,
		Prompt: prompt,
		Stream: false,
	}, g.logger)
	if err != nil {
		return "", err
	}

	result, err := Accumulate(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	if result.Skipped > 0 {
		metrics.SkippedFragments.Add(float64(result.Skipped))
		g.logger.Debug("skipped generate fragments without response text",
			zap.Int("skipped", result.Skipped), zap.Int("fragments", result.Fragments))
	}
	for _, msg := range result.Errors {
		g.logger.Warn("generate fragment reported an error", zap.String("model", g.config.Model), zap.String("error", msg))
	}

	return result.Text, nil
}

// Package imagegen renders images from text prompts with the Pollinations
// image API and stores them under the public directory so they can be
// attached to posts by reference.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/social-publisher/social"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "https://gen.pollinations.ai/image"
	DefaultSize    = 1024

	// GeneratedPath is the URL prefix and directory name for stored images.
	GeneratedPath = "/generated/"

	maxPromptLength = 300
	maxImageBytes   = 10 << 20
	serviceName     = "pollinations"
)

var (
	ErrEmptyPrompt   = errors.New("prompt is required")
	ErrImageTooLarge = errors.New("generated image exceeds size limit")
)

// Request describes an image to generate. Zero sizes default to DefaultSize.
type Request struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Image is a stored generated image.
type Image struct {
	URL    string `json:"imageUrl"`
	Prompt string `json:"prompt"`
}

// Generator calls the renderer and writes results to disk.
type Generator struct {
	baseURL    string
	apiKey     string
	publicDir  string
	httpClient *http.Client
	nowTime    func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithHTTPClient sets the client used to call the renderer.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Generator) {
		g.httpClient = client
	}
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(g *Generator) {
		g.nowTime = nowFunc
	}
}

// New returns a Generator storing images in publicDir/generated.
func New(baseURL, apiKey, publicDir string, opts ...Option) *Generator {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	g := &Generator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		publicDir:  publicDir,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		nowTime:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dir is the directory generated images are written to.
func (g *Generator) Dir() string {
	return filepath.Join(g.publicDir, strings.Trim(GeneratedPath, "/"))
}

// CleanPrompt trims the prompt and truncates it to the renderer's limit.
func CleanPrompt(prompt string) string {
	cleaned := strings.TrimSpace(prompt)
	if runes := []rune(cleaned); len(runes) > maxPromptLength {
		cleaned = string(runes[:maxPromptLength])
	}
	return cleaned
}

// Generate renders req and stores the image. A non-2xx renderer response is
// returned as a *social.UpstreamError.
func (g *Generator) Generate(ctx context.Context, req Request) (Image, error) {
	prompt := CleanPrompt(req.Prompt)
	if prompt == "" {
		return Image{}, ErrEmptyPrompt
	}
	if req.Width <= 0 {
		req.Width = DefaultSize
	}
	if req.Height <= 0 {
		req.Height = DefaultSize
	}

	image, err := g.render(ctx, prompt, req.Width, req.Height)
	if err != nil {
		return Image{}, err
	}

	if err := os.MkdirAll(g.Dir(), 0o755); err != nil {
		return Image{}, fmt.Errorf("create image directory: %w", err)
	}
	filename := g.filename()
	if err := os.WriteFile(filepath.Join(g.Dir(), filename), image, 0o644); err != nil {
		return Image{}, fmt.Errorf("write generated image: %w", err)
	}

	log.Info().Str("file", filename).Int("bytes", len(image)).Msg("Generated image")
	return Image{URL: GeneratedPath + filename, Prompt: prompt}, nil
}

func (g *Generator) render(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	params := url.Values{
		"model":  {"flux"},
		"width":  {strconv.Itoa(width)},
		"height": {strconv.Itoa(height)},
		"nologo": {"true"},
	}
	endpoint := g.baseURL + "/" + url.PathEscape(prompt) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image generation request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read generated image: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &social.UpstreamError{
			Provider:   serviceName,
			Operation:  "image generation",
			StatusCode: resp.StatusCode,
			Body:       string(body[:min(len(body), maxImageBytes)]),
		}
	}
	if len(body) > maxImageBytes {
		return nil, ErrImageTooLarge
	}
	return body, nil
}

func (g *Generator) filename() string {
	return fmt.Sprintf("%d-%s.jpg", g.nowTime().UnixMilli(), uuid.NewString()[:8])
}

package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/social-publisher/social"
)

const maxImageBytes = 5 << 20

type mediaUploadResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// ValidatePost requires non-blank text.
func (p *Provider) ValidatePost(post social.Post) error {
	if strings.TrimSpace(post.Text) == "" {
		return fmt.Errorf("%w: tweet text is required", social.ErrInvalidPost)
	}
	return nil
}

// Publish uploads the optional image and creates the post in one call. The
// post call is atomic so there is nothing to poll.
func (p *Provider) Publish(ctx context.Context, _ social.Session, accessToken string, post social.Post) (social.PublishResult, error) {
	if err := p.ValidatePost(post); err != nil {
		return social.PublishResult{}, err
	}

	body := tweetRequest{Text: post.Text}
	if post.ImageRef != "" {
		mediaID, err := p.uploadMedia(ctx, accessToken, post.ImageRef)
		if err != nil {
			return social.PublishResult{}, err
		}
		body.Media = &tweetMedia{MediaIDs: []string{mediaID}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return social.PublishResult{}, fmt.Errorf("marshal tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL+"/tweets", bytes.NewReader(payload))
	if err != nil {
		return social.PublishResult{}, fmt.Errorf("build tweet request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	var resp tweetResponse
	if err := social.DoJSON(p.httpClient, social.Twitter, "tweet post", req, &resp); err != nil {
		return social.PublishResult{}, err
	}
	if resp.Data.ID == "" {
		return social.PublishResult{}, fmt.Errorf("twitter tweet post: no tweet id in response")
	}

	return social.PublishResult{
		PostID:  resp.Data.ID,
		PostURL: StatusURLPrefix + resp.Data.ID,
	}, nil
}

func (p *Provider) uploadMedia(ctx context.Context, accessToken, imageRef string) (string, error) {
	image, err := p.loadImage(ctx, imageRef)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="media"; filename="image.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := form.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("create media part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("write media part: %w", err)
	}
	if err := form.WriteField("media_category", "tweet_image"); err != nil {
		return "", fmt.Errorf("write media category: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("close media form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL+"/media/upload", &buf)
	if err != nil {
		return "", fmt.Errorf("build media upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", form.FormDataContentType())

	var resp mediaUploadResponse
	if err := social.DoJSON(p.httpClient, social.Twitter, "media upload", req, &resp); err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("twitter media upload: no media id in response")
	}
	return resp.Data.ID, nil
}

// loadImage reads a local reference from PublicDir, otherwise fetches it.
func (p *Provider) loadImage(ctx context.Context, imageRef string) ([]byte, error) {
	if strings.HasPrefix(imageRef, "/") {
		// path.Clean on a rooted path cannot climb above PublicDir.
		local := filepath.Join(p.cfg.PublicDir, filepath.FromSlash(path.Clean(imageRef)))
		image, err := os.ReadFile(local)
		if err != nil {
			return nil, fmt.Errorf("read local image %s: %w", imageRef, err)
		}
		return image, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageRef, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image for upload: %w", err)
	}
	defer resp.Body.Close()

	image, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image for upload: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &social.UpstreamError{
			Provider:   social.Twitter,
			Operation:  "fetch image for upload",
			StatusCode: resp.StatusCode,
			Body:       string(image[:min(len(image), maxImageBytes)]),
		}
	}
	if len(image) > maxImageBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", social.ErrInvalidPost, maxImageBytes)
	}
	return image, nil
}

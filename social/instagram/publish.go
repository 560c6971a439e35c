package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/social-publisher/internal/metrics"
	"github.com/jrsteele09/social-publisher/social"
	"github.com/rs/zerolog/log"
)

// ContainerStatus is the processing state of a media container.
type ContainerStatus int

const (
	ContainerProcessing ContainerStatus = iota
	ContainerFinished
	ContainerErrored
)

func (s ContainerStatus) String() string {
	switch s {
	case ContainerFinished:
		return "finished"
	case ContainerErrored:
		return "errored"
	default:
		return "processing"
	}
}

func parseContainerStatus(code string) ContainerStatus {
	switch code {
	case "FINISHED":
		return ContainerFinished
	case "ERROR", "EXPIRED":
		return ContainerErrored
	default:
		return ContainerProcessing
	}
}

type idResponse struct {
	ID string `json:"id"`
}

// ValidatePost requires an image; Instagram has no text-only posts.
func (p *Provider) ValidatePost(post social.Post) error {
	if post.ImageRef == "" {
		return fmt.Errorf("%w: image is required for Instagram posts", social.ErrInvalidPost)
	}
	return nil
}

// Publish creates a media container, waits for it to finish processing,
// publishes it and resolves the permalink. A failed permalink lookup only
// degrades the returned URL to the Instagram home page.
func (p *Provider) Publish(ctx context.Context, session social.Session, accessToken string, post social.Post) (social.PublishResult, error) {
	if err := p.ValidatePost(post); err != nil {
		return social.PublishResult{}, err
	}

	igUserID := session.User.BusinessAccountID
	if igUserID == "" {
		igUserID = session.User.ID
	}

	creationID, err := p.createContainer(ctx, igUserID, accessToken, p.absoluteImageURL(post.ImageRef), post.Text)
	if err != nil {
		return social.PublishResult{}, err
	}

	if err := p.waitForContainer(ctx, creationID, accessToken); err != nil {
		return social.PublishResult{}, err
	}

	mediaID, err := p.publishContainer(ctx, igUserID, creationID, accessToken)
	if err != nil {
		return social.PublishResult{}, err
	}

	return social.PublishResult{
		PostID:  mediaID,
		PostURL: p.permalink(ctx, mediaID, accessToken),
	}, nil
}

func (p *Provider) createContainer(ctx context.Context, igUserID, accessToken, imageURL, caption string) (string, error) {
	params := url.Values{
		"image_url":    {imageURL},
		"access_token": {accessToken},
	}
	if caption != "" {
		params.Set("caption", caption)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.GraphURL+"/"+url.PathEscape(igUserID)+"/media?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build container request: %w", err)
	}

	var resp idResponse
	if err := social.DoJSON(p.httpClient, social.Instagram, "media container creation", req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("instagram media container creation: no id in response")
	}
	return resp.ID, nil
}

// waitForContainer polls the container status every pollInterval, at most
// maxPolls times. A finished status on poll k returns after k polls.
func (p *Provider) waitForContainer(ctx context.Context, creationID, accessToken string) error {
	for attempt := 1; attempt <= p.maxPolls; attempt++ {
		status, err := p.containerStatus(ctx, creationID, accessToken)
		if err != nil {
			return err
		}

		switch status {
		case ContainerFinished:
			metrics.ContainerPolls.Observe(float64(attempt))
			return nil
		case ContainerErrored:
			metrics.ContainerPolls.Observe(float64(attempt))
			return social.ErrProcessingError
		}

		if attempt == p.maxPolls {
			break
		}
		if err := p.sleep(ctx, p.pollInterval); err != nil {
			return fmt.Errorf("waiting for media container: %w", err)
		}
	}

	metrics.ContainerPolls.Observe(float64(p.maxPolls))
	log.Warn().Str("creation_id", creationID).Int("polls", p.maxPolls).Msg("Instagram media container not ready")
	return social.ErrProcessingTimeout
}

func (p *Provider) containerStatus(ctx context.Context, creationID, accessToken string) (ContainerStatus, error) {
	params := url.Values{
		"fields":       {"status_code"},
		"access_token": {accessToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.GraphURL+"/"+url.PathEscape(creationID)+"?"+params.Encode(), nil)
	if err != nil {
		return ContainerProcessing, fmt.Errorf("build container status request: %w", err)
	}

	var resp struct {
		StatusCode string `json:"status_code"`
	}
	if err := social.DoJSON(p.httpClient, social.Instagram, "media container status", req, &resp); err != nil {
		return ContainerProcessing, err
	}
	return parseContainerStatus(resp.StatusCode), nil
}

func (p *Provider) publishContainer(ctx context.Context, igUserID, creationID, accessToken string) (string, error) {
	params := url.Values{
		"creation_id":  {creationID},
		"access_token": {accessToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.GraphURL+"/"+url.PathEscape(igUserID)+"/media_publish?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build publish request: %w", err)
	}

	var resp idResponse
	if err := social.DoJSON(p.httpClient, social.Instagram, "publish", req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("instagram media publish: no id in response")
	}
	return resp.ID, nil
}

func (p *Provider) permalink(ctx context.Context, mediaID, accessToken string) string {
	params := url.Values{
		"fields":       {"permalink"},
		"access_token": {accessToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.GraphURL+"/"+url.PathEscape(mediaID)+"?"+params.Encode(), nil)
	if err != nil {
		return HomeURL
	}

	var resp struct {
		Permalink string `json:"permalink"`
	}
	if err := social.DoJSON(p.httpClient, social.Instagram, "permalink", req, &resp); err != nil {
		log.Warn().Err(err).Str("media_id", mediaID).Msg("Permalink lookup failed, using fallback URL")
		return HomeURL
	}
	if resp.Permalink == "" {
		return HomeURL
	}
	return resp.Permalink
}

func (p *Provider) absoluteImageURL(ref string) string {
	if strings.HasPrefix(ref, "/") && p.cfg.PublicBaseURL != "" {
		return strings.TrimRight(p.cfg.PublicBaseURL, "/") + ref
	}
	return ref
}

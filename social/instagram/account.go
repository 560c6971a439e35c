package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/social-publisher/social"
	"github.com/rs/zerolog/log"
)

// Account is the public profile of a resolved Instagram business account.
type Account struct {
	ID          string
	Handle      string
	DisplayName string
	AvatarURL   string
}

type pagesResponse struct {
	Data []page `json:"data"`
}

type page struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	AccessToken              string `json:"access_token"`
	InstagramBusinessAccount *struct {
		ID string `json:"id"`
	} `json:"instagram_business_account"`
}

type profileResponse struct {
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profile_picture_url"`
	Name              string `json:"name"`
}

// ResolveBusinessAccount finds the Instagram account linked to the user's
// Facebook Pages and loads its profile.
//
// The first page exposing an instagram_business_account wins. When several
// pages qualify the choice follows the Graph API's list order; there is no
// better tie-break available.
func (p *Provider) ResolveBusinessAccount(ctx context.Context, accessToken string) (Account, error) {
	pages, err := p.listPages(ctx, accessToken)
	if err != nil {
		return Account{}, err
	}

	var igUserID string
	for _, pg := range pages {
		if pg.InstagramBusinessAccount != nil && pg.InstagramBusinessAccount.ID != "" {
			igUserID = pg.InstagramBusinessAccount.ID
			log.Debug().Str("page_id", pg.ID).Str("ig_user_id", igUserID).Msg("Resolved Instagram business account")
			break
		}
	}
	if igUserID == "" {
		return Account{}, &social.NoLinkedBusinessAccountError{PagesScanned: len(pages)}
	}

	profile, err := p.fetchProfile(ctx, igUserID, accessToken)
	if err != nil {
		return Account{}, err
	}

	handle := profile.Username
	if handle == "" {
		handle = "user"
	}
	name := profile.Name
	if name == "" {
		name = profile.Username
	}
	if name == "" {
		name = "User"
	}

	return Account{
		ID:          igUserID,
		Handle:      handle,
		DisplayName: name,
		AvatarURL:   profile.ProfilePictureURL,
	}, nil
}

func (p *Provider) listPages(ctx context.Context, accessToken string) ([]page, error) {
	params := url.Values{
		"fields":       {"id,name,access_token,instagram_business_account"},
		"access_token": {accessToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.GraphURL+"/me/accounts?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build pages request: %w", err)
	}

	var resp pagesResponse
	if err := social.DoJSON(p.httpClient, social.Instagram, "fetch pages", req, &resp); err != nil {
		return nil, err
	}
	log.Debug().Int("pages", len(resp.Data)).Msg("Fetched Facebook pages")
	return resp.Data, nil
}

func (p *Provider) fetchProfile(ctx context.Context, igUserID, accessToken string) (profileResponse, error) {
	params := url.Values{
		"fields":       {"username,profile_picture_url,name"},
		"access_token": {accessToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.GraphURL+"/"+url.PathEscape(igUserID)+"?"+params.Encode(), nil)
	if err != nil {
		return profileResponse{}, fmt.Errorf("build profile request: %w", err)
	}

	var resp profileResponse
	if err := social.DoJSON(p.httpClient, social.Instagram, "fetch profile", req, &resp); err != nil {
		return profileResponse{}, err
	}
	return resp, nil
}

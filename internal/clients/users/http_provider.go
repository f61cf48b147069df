package users

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPProvider resolves users against an external account service over
// plain JSON HTTP. It is the production Provider; tests use InMemoryProvider
// instead.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider builds a provider against baseURL, e.g.
// "http://accounts.internal:8000".
func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type userResponse struct {
	ID          int    `json:"id"`
	StreamKey   string `json:"stream_key"`
	DisplayName string `json:"dj_name"`
	Timezone    string `json:"timezone"`
}

func (p *HTTPProvider) Lookup(streamKey string) (User, bool) {
	return p.fetch(fmt.Sprintf("%s/users/by-stream-key/%s", p.baseURL, url.PathEscape(streamKey)))
}

func (p *HTTPProvider) ByID(id int) (User, bool) {
	return p.fetch(fmt.Sprintf("%s/users/%d", p.baseURL, id))
}

func (p *HTTPProvider) fetch(target string) (User, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return User{}, false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return User{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return User{}, false
	}

	var body userResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return User{}, false
	}

	return User{
		ID:          body.ID,
		StreamKey:   body.StreamKey,
		DisplayName: body.DisplayName,
		Timezone:    body.Timezone,
	}, true
}

// InMemoryProvider is a fixed-table Provider used by tests and local
// development, where no account service is running.
type InMemoryProvider struct {
	byKey map[string]User
	byID  map[int]User
}

// NewInMemoryProvider builds a Provider backed by the given users.
func NewInMemoryProvider(users ...User) *InMemoryProvider {
	p := &InMemoryProvider{
		byKey: make(map[string]User, len(users)),
		byID:  make(map[int]User, len(users)),
	}
	for _, u := range users {
		p.byKey[u.StreamKey] = u
		p.byID[u.ID] = u
	}
	return p
}

func (p *InMemoryProvider) Lookup(streamKey string) (User, bool) {
	u, ok := p.byKey[streamKey]
	return u, ok
}

func (p *InMemoryProvider) ByID(id int) (User, bool) {
	u, ok := p.byID[id]
	return u, ok
}

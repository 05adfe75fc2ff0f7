package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/example/ec-storefront/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

// CookiesKey holds the API's cookies, so the refresh cookie outlives the
// process that received it.
const CookiesKey = "cookies"

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PersistentJar is a cookie jar for a single API origin that writes the
// origin's cookies through to Storage after every change.
type PersistentJar struct {
	jar     *cookiejar.Jar
	origin  *url.URL
	storage Storage
	logger  *zap.Logger

	mu sync.Mutex
}

// NewPersistentJar restores the cookies saved for baseURL.
func NewPersistentJar(ctx context.Context, storage Storage, baseURL string, logger *zap.Logger) (*PersistentJar, error) {
	origin, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	j := &PersistentJar{
		jar:     jar,
		origin:  &url.URL{Scheme: origin.Scheme, Host: origin.Host, Path: "/"},
		storage: storage,
		logger:  logging.Component(logger, "cookie-jar"),
	}

	raw, ok, err := storage.Get(ctx, CookiesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", CookiesKey, err)
	}
	if ok && raw != "" {
		var stored []storedCookie
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			j.logger.Warn("discarding unreadable cookies", zap.Error(err))
		} else {
			cookies := make([]*http.Cookie, 0, len(stored))
			for _, c := range stored {
				cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
			}
			jar.SetCookies(j.origin, cookies)
		}
	}
	return j, nil
}

func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)
	if u.Host != j.origin.Host {
		return
	}

	current := j.jar.Cookies(j.origin)
	stored := make([]storedCookie, 0, len(current))
	for _, c := range current {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}

	// http.CookieJar has no context; writes are local and short
	ctx := context.Background()
	if len(stored) == 0 {
		if err := j.storage.Delete(ctx, CookiesKey); err != nil {
			j.logger.Warn("failed to clear cookies", zap.Error(err))
		}
		return
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return
	}
	if err := j.storage.Set(ctx, CookiesKey, string(data)); err != nil {
		j.logger.Warn("failed to persist cookies", zap.Error(err))
	}
}

func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

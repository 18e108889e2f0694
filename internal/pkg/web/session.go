package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/anicoll/senec-integration/internal/pkg/model"
)

const (
	webLoginPath  = "/auth/login"
	appLoginPath  = "/v1/senec/login"
	appPlantsPath = "/v1/senec/anlagen"
)

// Authenticate opens the cookie based portal session.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{
		"username": {c.cfg.Username},
		"password": {c.cfg.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webBase.String()+webLoginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode != http.StatusOK {
		c.invalidateWeb()
		c.logger.Warn("portal login failed", zap.Int("status", res.StatusCode))
		return fmt.Errorf("%w: login status %d", ErrUnauthorized, res.StatusCode)
	}
	c.mu.Lock()
	c.webAuthenticated = true
	c.mu.Unlock()
	c.logger.Info("portal session authenticated")
	return nil
}

func (c *Client) isWebAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.webAuthenticated
}

// invalidateWeb drops the portal session and its cookies.
func (c *Client) invalidateWeb() {
	c.jar.Clear(c.webBase.Hostname())
	c.mu.Lock()
	c.webAuthenticated = false
	c.mu.Unlock()
}

type appLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type appLoginResponse struct {
	Token string `json:"token"`
}

type appPlant struct {
	ID         string   `json:"id"`
	WallboxIDs []string `json:"wallboxIds"`
}

// AppAuthenticate exchanges the credentials for a bearer token and resolves
// the app plant id and wallbox count.
func (c *Client) AppAuthenticate(ctx context.Context) error {
	body, err := json.Marshal(appLoginRequest{Username: c.cfg.Username, Password: c.cfg.Password})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.appBase+appLoginPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusOK {
		c.invalidateApp()
		c.logger.Warn("app login failed", zap.Int("status", res.StatusCode))
		return fmt.Errorf("%w: app login status %d", ErrUnauthorized, res.StatusCode)
	}
	login := appLoginResponse{}
	if err := json.NewDecoder(res.Body).Decode(&login); err != nil {
		return err
	}
	if login.Token == "" {
		return fmt.Errorf("%w: empty app token", ErrUnauthorized)
	}

	c.mu.Lock()
	c.appToken = login.Token
	c.appTokenExpiry = tokenExpiry(login.Token)
	c.mu.Unlock()

	plants := []appPlant{}
	if err := c.doApp(ctx, http.MethodGet, appPlantsPath, nil, &plants); err != nil {
		return err
	}
	if len(plants) == 0 {
		c.invalidateApp()
		return fmt.Errorf("%w: no app plants", ErrNoData)
	}
	count := min(len(plants[0].WallboxIDs), model.MaxWallboxes)
	c.mu.Lock()
	c.appPlantID = plants[0].ID
	c.wallboxMax = min(c.wallboxMax, count)
	c.mu.Unlock()
	c.logger.Info("app session authenticated", zap.String("plant_id", plants[0].ID), zap.Int("wallboxes", count))
	return nil
}

// tokenExpiry reads the exp claim when the token is a JWT. The signature is
// not checked, the gateway does that.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func (c *Client) isAppAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.appToken == "" || c.appPlantID == "" {
		return false
	}
	return c.appTokenExpiry.IsZero() || c.now().Before(c.appTokenExpiry)
}

func (c *Client) invalidateApp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appToken = ""
	c.appTokenExpiry = time.Time{}
	c.appPlantID = ""
}

// withWebSession runs fn on an authenticated portal session. When fn fails
// as unauthenticated, the session is rebuilt and fn runs exactly once more;
// a second failure is returned.
func (c *Client) withWebSession(ctx context.Context, fn func(ctx context.Context) error) error {
	if !c.isWebAuthenticated() {
		if err := c.Authenticate(ctx); err != nil {
			return err
		}
	}
	err := fn(ctx)
	if !isUnauthorized(err) {
		return err
	}
	c.logger.Info("portal session expired, re-authenticating", zap.Error(err))
	if err := c.Authenticate(ctx); err != nil {
		return err
	}
	return fn(ctx)
}

func (c *Client) withAppSession(ctx context.Context, fn func(ctx context.Context) error) error {
	if !c.isAppAuthenticated() {
		if err := c.AppAuthenticate(ctx); err != nil {
			return err
		}
	}
	err := fn(ctx)
	if !isUnauthorized(err) {
		return err
	}
	c.logger.Info("app session expired, re-authenticating", zap.Error(err))
	if err := c.AppAuthenticate(ctx); err != nil {
		return err
	}
	return fn(ctx)
}

// doWeb performs one portal request. 401 and unexpected statuses drop the
// session; 404 and 204 mean the resource does not exist.
func (c *Client) doWeb(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u := c.webBase.JoinPath(path)
	u.RawQuery = query.Encode()
	return c.do(ctx, method, u.String(), "", body, out, c.invalidateWeb)
}

func (c *Client) doApp(ctx context.Context, method, path string, body any, out any) error {
	c.mu.Lock()
	token := c.appToken
	c.mu.Unlock()
	return c.do(ctx, method, c.appBase+path, token, body, out, c.invalidateApp)
}

func (c *Client) do(ctx context.Context, method, u, token string, body any, out any, invalidate func()) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return fmt.Errorf("%w: %s %s", ErrNoData, method, u)
	default:
		invalidate()
		c.logger.Warn("unexpected cloud status", zap.String("method", method), zap.String("url", u), zap.Int("status", res.StatusCode))
		return fmt.Errorf("%w: %s %s status %d", ErrUnauthorized, method, u, res.StatusCode)
	}
	if out == nil {
		return nil
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("%w: %s %s", ErrNoData, method, u)
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", u, err)
	}
	return nil
}

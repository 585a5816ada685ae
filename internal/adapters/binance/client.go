package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.binance.com"

	// Rate limits al 60% de los límites reales documentados.
	// REQUEST_WEIGHT: 6000/min → 3600/min → 60/s
	weightRatePerSec = 60
	// ORDERS: 100/10s → 60/10s → 6/s
	orderRatePerSec = 6

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
	recvWindow    = 5000
)

// Client es el HTTP client de Binance spot con rate limiting, retries y
// firma HMAC-SHA256 para endpoints privados.
type Client struct {
	http         *http.Client
	baseURL      string
	apiKey       string
	secret       string
	dataLimiter  *rate.Limiter
	orderLimiter *rate.Limiter
	now          func() time.Time
}

// NewClient crea un Client. Si baseURL está vacío usa producción.
// Sin apiKey/secret solo funcionan los endpoints públicos.
func NewClient(baseURL, apiKey, secret string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:         &http.Client{Timeout: 10 * time.Second},
		baseURL:      baseURL,
		apiKey:       apiKey,
		secret:       secret,
		dataLimiter:  rate.NewLimiter(weightRatePerSec, 20),
		orderLimiter: rate.NewLimiter(orderRatePerSec, 2),
		now:          time.Now,
	}
}

// HasCredentials indica si el client puede firmar requests.
func (c *Client) HasCredentials() bool {
	return c.apiKey != "" && c.secret != ""
}

// get hace un GET público con rate limiting y retries.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return c.doWithRetry(ctx, c.dataLimiter, maxRetries, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	})
}

// signedGet hace un GET firmado con rate limiting y retries.
func (c *Client) signedGet(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if !c.HasCredentials() {
		return nil, errMissingCredentials
	}
	return c.doWithRetry(ctx, c.dataLimiter, maxRetries, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+c.sign(params), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
		return c.http.Do(req)
	})
}

// signedPost hace un POST firmado. Sin retries: reintentar una orden cuyo
// estado se desconoce puede duplicarla.
func (c *Client) signedPost(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if !c.HasCredentials() {
		return nil, errMissingCredentials
	}
	return c.doWithRetry(ctx, c.orderLimiter, 0, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path+"?"+c.sign(params), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
		return c.http.Do(req)
	})
}

// sign añade timestamp y recvWindow y devuelve el query string firmado.
// Se recalcula en cada intento para que el timestamp no caduque.
func (c *Client) sign(params url.Values) string {
	p := url.Values{}
	for k, v := range params {
		p[k] = v
	}
	p.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	p.Set("recvWindow", strconv.Itoa(recvWindow))

	query := p.Encode()
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(query))
	return query + "&signature=" + hex.EncodeToString(mac.Sum(nil))
}

// doWithRetry ejecuta la función con backoff exponencial y devuelve el body.
// Los errores 4xx se traducen con parseAPIError y no se reintentan.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, retries int, fn func() (*http.Response, error)) ([]byte, error) {
	for attempt := 0; attempt <= retries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == retries {
				return nil, fmt.Errorf("request failed after %d retries: %w", retries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusTeapot {
			slog.Warn("binance: rate limited by API", "status", resp.StatusCode, "attempt", attempt+1)
			if attempt == retries {
				return nil, parseAPIError(resp.StatusCode, body)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			if attempt == retries {
				return nil, fmt.Errorf("server error %d after %d retries", resp.StatusCode, retries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			return nil, parseAPIError(resp.StatusCode, body)
		}

		if readErr != nil {
			return nil, fmt.Errorf("read response: %w", readErr)
		}
		return body, nil
	}
	return nil, fmt.Errorf("exhausted %d retries", retries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

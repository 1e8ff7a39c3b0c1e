// Package translatesvc calls the free-tier translate endpoints used by the content fanout.
package translatesvc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/i18n"
	"github.com/trezcool/khidmat/core/translation"
)

// Providers
const (
	ProviderGoogle   = "google"
	ProviderMyMemory = "mymemory"
)

var (
	defaultBaseURLs = map[string]string{
		ProviderGoogle:   "https://translate.googleapis.com",
		ProviderMyMemory: "https://api.mymemory.translated.net",
	}

	// provider language codes that differ from ours
	googleCodes   = map[i18n.Lang]string{i18n.Chinese: "zh-CN"}
	myMemoryCodes = map[i18n.Lang]string{i18n.Chinese: "zh-CN"}

	ErrEmptyResponse = errors.New("empty translation")
)

// Client is a rate limited translation.Translator.
type Client struct {
	provider string
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
}

var _ translation.Translator = (*Client)(nil)

func NewClient(conf *core.Config) (*Client, error) {
	tc := conf.Translate
	provider := strings.ToLower(tc.Provider)
	baseURL, ok := defaultBaseURLs[provider]
	if !ok {
		return nil, errors.Errorf("unknown translate provider %q", tc.Provider)
	}
	if tc.BaseURL != "" {
		baseURL = strings.TrimRight(tc.BaseURL, "/")
	}

	limit := rate.Inf
	if tc.RateLimit > 0 {
		limit = rate.Limit(tc.RateLimit)
	}
	burst := tc.RateBurst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		provider: provider,
		baseURL:  baseURL,
		http:     &http.Client{Timeout: tc.Timeout},
		limiter:  rate.NewLimiter(limit, burst),
	}, nil
}

// Translate waits for the rate limiter, then translates `text` from `source` to `target`.
func (c *Client) Translate(ctx context.Context, text string, source, target i18n.Lang) (string, error) {
	if strings.TrimSpace(text) == "" || source == target {
		return text, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", errors.Wrap(err, "waiting for translate rate limiter")
	}

	var (
		translated string
		err        error
	)
	switch c.provider {
	case ProviderMyMemory:
		translated, err = c.myMemory(ctx, text, source, target)
	default:
		translated, err = c.google(ctx, text, source, target)
	}
	if err != nil {
		return "", errors.Wrapf(err, "translating to %s", target)
	}
	return translated, nil
}

func (c *Client) google(ctx context.Context, text string, source, target i18n.Lang) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("dt", "t")
	q.Set("sl", code(googleCodes, source))
	q.Set("tl", code(googleCodes, target))
	q.Set("q", text)

	body, err := c.get(ctx, c.baseURL+"/translate_a/single?"+q.Encode())
	if err != nil {
		return "", err
	}

	// [[["Bonjour","Hello",null,null,10],["...","...",...]],null,"en",...]
	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		return "", errors.Errorf("unexpected response: %.120s", body)
	}
	var sb strings.Builder
	for _, seg := range res.Get("0.#.0").Array() {
		sb.WriteString(seg.String())
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

func (c *Client) myMemory(ctx context.Context, text string, source, target i18n.Lang) (string, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", code(myMemoryCodes, source)+"|"+code(myMemoryCodes, target))

	body, err := c.get(ctx, c.baseURL+"/get?"+q.Encode())
	if err != nil {
		return "", err
	}

	// {"responseData":{"translatedText":"Bonjour"},"responseStatus":200,"responseDetails":""}
	res := gjson.ParseBytes(body)
	if status := res.Get("responseStatus").Int(); status != http.StatusOK {
		return "", errors.Errorf("status %d: %s", status, res.Get("responseDetails").String())
	}
	translated := res.Get("responseData.translatedText").String()
	if translated == "" {
		return "", ErrEmptyResponse
	}
	return translated, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	//goland:noinspection GoUnhandledErrorResult
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %.120s", res.StatusCode, body)
	}
	return body, nil
}

func code(codes map[i18n.Lang]string, lang i18n.Lang) string {
	if c, ok := codes[lang]; ok {
		return c
	}
	return string(lang)
}

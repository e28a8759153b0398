package whttp

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/weppos/publicsuffix-go/publicsuffix"
	"golang.org/x/net/html"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Headers []WHTTPHeader
}

type WHTTPRes struct {
	StatusCode     int
	ResponseLength int
	HTTPTitle      string
	BodyString     string
}

// Client issues outbound requests on behalf of source adapters. Every
// request gets a bounded timeout, a small retry count with backoff, and
// is paced by a per-host token bucket so that one retailer's rate limit
// never slows fan-out to the others. An optional response cache reduces
// repeat load on identical queries; it never changes correctness.
type Client struct {
	http     *retryablehttp.Client
	limiters *HostLimiters
	cache    *ResponseCache
}

// Options tunes a Client. Zero values fall back to defaults.
type Options struct {
	Timeout      time.Duration // per-request, default 30s
	RetryMax     int           // default 3
	RetryWait    time.Duration // default 1s
	HostInterval time.Duration // min spacing between requests to one host, default 1s
	CacheTTL     time.Duration // 0 disables the response cache
	Proxy        string
}

// NewClient builds a Client from options.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = 3
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 1 * time.Second
	}
	if opts.HostInterval <= 0 {
		opts.HostInterval = 1 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = opts.RetryWait
	rc.RetryWaitMax = 4 * opts.RetryWait
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = nil

	if opts.Proxy != "" {
		if proxyURL, err := url.Parse(opts.Proxy); err == nil {
			rc.HTTPClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	c := &Client{
		http:     rc,
		limiters: NewHostLimiters(opts.HostInterval),
	}
	if opts.CacheTTL > 0 {
		c.cache = NewResponseCache(opts.CacheTTL)
	}
	return c
}

// Send issues the request, respecting the host's token bucket and the
// response cache. Retries and backoff happen inside retryablehttp.
func (c *Client) Send(ctx context.Context, wReq *WHTTPReq) (*WHTTPRes, error) {
	if c.cache != nil {
		if res, ok := c.cache.Get(wReq.URL); ok {
			return res, nil
		}
	}

	if err := c.limiters.Wait(ctx, rateLimitKey(wReq.URL)); err != nil {
		return nil, err
	}

	method := wReq.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, wReq.URL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for _, h := range wReq.Headers {
		req.Header.Add(h.Name, h.Value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	wRes := &WHTTPRes{
		StatusCode: resp.StatusCode,
		BodyString: string(bodyBytes),
	}
	if title, ok := getHTMLTitle(wRes.BodyString); ok {
		wRes.HTTPTitle = strings.ToValidUTF8(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", ""), "\r", "")), "")
	}
	wRes.ResponseLength = utf8.RuneCountInString(wRes.BodyString)

	if c.cache != nil && resp.StatusCode == http.StatusOK {
		c.cache.Put(wReq.URL, wRes)
	}
	return wRes, nil
}

// rateLimitKey maps a URL to its registrable domain so that subdomains
// of one retailer share a single bucket.
func rateLimitKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	host := u.Hostname()
	if dom, err := publicsuffix.Domain(host); err == nil && dom != "" {
		return dom
	}
	return host
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result, ok := traverse(c)
		if ok {
			return result, ok
		}
	}

	return "", false
}

func getHTMLTitle(requestBody string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(requestBody))
	if err != nil {
		return "", false
	}

	return traverse(doc)
}

package harvest

import (
	"log"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

// Client is a browser-like HTTP session for the archive site: cookie jar,
// rotating desktop User-Agents, a warm-up visit to collect session cookies,
// and human-jitter delays between requests.
type Client struct {
	http *http.Client
	rng  *rand.Rand
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// NewClient creates a client with optional proxy support and performs the
// warm-up visit.
func NewClient(proxyURL string) *Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	jar, _ := cookiejar.New(nil)
	c := &Client{
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
			Jar:       jar,
		},
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	c.warmUp()
	return c
}

// warmUp visits the homepage first to establish session cookies.
func (c *Client) warmUp() {
	req, err := http.NewRequest("GET", siteURL, nil)
	if err != nil {
		return
	}
	c.setHeaders(req)
	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("[WARN] warmup failed: %v", err)
		return
	}
	resp.Body.Close()
	c.HumanDelay(2, 4)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgents[c.rng.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("DNT", "1")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Cache-Control", "max-age=0")
}

// HumanDelay sleeps a random duration between min and max seconds.
func (c *Client) HumanDelay(minSec, maxSec float64) {
	d := minSec + c.rng.Float64()*(maxSec-minSec)
	time.Sleep(time.Duration(d * float64(time.Second)))
}

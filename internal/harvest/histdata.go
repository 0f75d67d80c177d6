package harvest

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

const (
	siteURL     = "https://www.histdata.com"
	downloadURL = siteURL + "/download-free-forex-historical-data/?/ascii/1-minute-bar-quotes"
)

// DownloadYear fetches the 1-minute ASCII archive for one pair and year into
// rawDir, returning the ZIP path. The download form embeds a one-time token;
// a page without the form, or with an empty token, is the site's bot trap.
func (c *Client) DownloadYear(rawDir, pair string, year int) (string, error) {
	req, err := http.NewRequest("GET", downloadURL, nil)
	if err != nil {
		return "", err
	}
	c.setHeaders(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch download page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download page: status %d", resp.StatusCode)
	}

	token, err := extractToken(resp.Body)
	if err != nil {
		return "", err
	}
	short := token
	if len(short) > 8 {
		short = short[:8]
	}
	log.Printf("[INFO] [%s %d] token extracted: %s...", pair, year, short)

	c.HumanDelay(4, 7)

	form := url.Values{
		"tk":        {token},
		"date":      {strconv.Itoa(year)},
		"dateTo":    {strconv.Itoa(year)},
		"platform":  {"ASCII"},
		"timeframe": {"M1"},
		"fxpair":    {strings.ToUpper(pair)},
	}
	dlReq, err := http.NewRequest("POST", downloadURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	c.setHeaders(dlReq)
	dlReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	dlReq.Header.Set("Referer", downloadURL)

	dlResp, err := c.http.Do(dlReq)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer dlResp.Body.Close()
	if dlResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: status %d", dlResp.StatusCode)
	}
	ct := dlResp.Header.Get("Content-Type")
	if !strings.Contains(ct, "zip") && !strings.Contains(ct, "octet-stream") {
		return "", fmt.Errorf("not a ZIP response: %s", ct)
	}

	if err := os.MkdirAll(rawDir, 0755); err != nil {
		return "", err
	}
	zipPath := filepath.Join(rawDir, fmt.Sprintf("%s_%d.zip", pair, year))
	f, err := os.Create(zipPath)
	if err != nil {
		return "", err
	}
	n, err := io.Copy(f, dlResp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(zipPath)
		return "", fmt.Errorf("save archive: %w", err)
	}
	log.Printf("[INFO] [%s %d] downloaded %.1f KB", pair, year, float64(n)/1024)
	return zipPath, nil
}

// extractToken finds the tk hidden input inside the file_down form. The
// error messages distinguish the site's known trap responses.
func extractToken(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse download page: %w", err)
	}
	form := findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "form" && attr(n, "id") == "file_down"
	})
	if form == nil {
		return "", fmt.Errorf("trap page: download form missing")
	}
	input := findNode(form, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "input" && attr(n, "name") == "tk"
	})
	if input == nil {
		return "", fmt.Errorf("bot detected: token field missing")
	}
	token := attr(input, "value")
	if token == "" {
		return "", fmt.Errorf("bot detected: token has no value")
	}
	return token, nil
}

func findNode(root *html.Node, match func(*html.Node) bool) *html.Node {
	if match(root) {
		return root
	}
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if n := findNode(child, match); n != nil {
			return n
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

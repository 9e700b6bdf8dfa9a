// Package urltitle announces the page title of links posted in channels.
package urltitle

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"obot/pkg/api"
)

const (
	maxURLs      = 3
	fetchTimeout = 5 * time.Second
	maxBody      = 512 << 10
	maxTitle     = 300
)

var urlPattern = regexp.MustCompile(`https?://[^\s\x01]+`)

type Plugin struct {
	client *http.Client
	wg     sync.WaitGroup
}

func New() *Plugin {
	return &Plugin{client: &http.Client{Timeout: fetchTimeout}}
}

// OnEvent never claims the event; titles are fetched in the background
// and sent to the channel when they arrive.
func (p *Plugin) OnEvent(s api.Sender, from, to, command, text string) api.Eat {
	if command != api.CMD_PRIVMSG || !api.IsChannelName(to) {
		return api.EatNone
	}
	urls := urlPattern.FindAllString(text, maxURLs)
	if len(urls) == 0 {
		return api.EatNone
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for _, u := range urls {
			title, err := p.Title(context.Background(), u)
			if err != nil {
				api.LogDebug(">> urltitle: %v", err)
				continue
			}
			if title == "" {
				continue
			}
			if err := s.Privmsg(to, "[ "+title+" ]"); err != nil {
				return
			}
		}
	}()
	return api.EatNone
}

// OnUnload waits for fetches still in flight.
func (p *Plugin) OnUnload() error {
	p.wg.Wait()
	return nil
}

// Title fetches url and returns its cleaned-up HTML title.
func (p *Plugin) Title(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; obot)")
	req.Header.Set("Accept", "text/html")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/html" {
		return "", fmt.Errorf("fetch %s: not html (%s)", url, mt)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", url, err)
	}

	title := doc.Find("head title").First().Text()
	if strings.TrimSpace(title) == "" {
		title, _ = doc.Find(`meta[property="og:title"]`).Attr("content")
	}
	return clean(title), nil
}

func clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxTitle {
		s = strings.ToValidUTF8(s[:maxTitle], "") + "..."
	}
	return s
}

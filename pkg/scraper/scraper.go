package scraper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

type ScraperConfig struct {
	BaseURL           string
	MaxDepth          int
	RateLimit         float64 // requests per second
	IgnorePatterns    []string
	AllowedExtensions []string
	Timeout           time.Duration
	OnProgress        func(url string)
}

// Page is the readable text of one crawled page.
type Page struct {
	URL     string
	Title   string
	Content string
}

type Scraper struct {
	config   ScraperConfig
	client   *http.Client
	visited  map[string]bool
	limiter  *rate.Limiter
	baseHost string
}

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxDepth == 0 {
		config.MaxDepth = 2
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = []string{".html", ".htm", "/", ""}
	}

	parsedURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, err
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute: %s", config.BaseURL)
	}

	return &Scraper{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		visited:  make(map[string]bool),
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		baseHost: parsedURL.Host,
	}, nil
}

func (s *Scraper) shouldProcessURL(urlStr string) bool {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	// Check if URL is from the same host
	if parsedURL.Host != s.baseHost {
		return false
	}

	// Check extensions
	ext := strings.ToLower(filepath.Ext(parsedURL.Path))
	if strings.HasSuffix(parsedURL.Path, "/") {
		ext = "/"
	}
	validExt := false
	for _, allowedExt := range s.config.AllowedExtensions {
		if ext == allowedExt {
			validExt = true
			break
		}
	}
	if !validExt {
		return false
	}

	// Check ignore patterns
	for _, pattern := range s.config.IgnorePatterns {
		if strings.Contains(urlStr, pattern) {
			return false
		}
	}

	return true
}

func (s *Scraper) cleanContent(content string) string {
	// Remove extra whitespace
	content = strings.Join(strings.Fields(content), " ")

	// Remove common noise
	noisePatterns := []string{
		"Cookie Policy",
		"Accept Cookies",
		"Privacy Policy",
		"Terms of Service",
	}

	for _, pattern := range noisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}

	return strings.TrimSpace(content)
}

func (s *Scraper) extractMainContent(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer").Remove()

	// Try to find main content area
	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}

	// Fallback to body if no main content found
	if content == "" {
		content = doc.Find("body").Text()
	}

	return s.cleanContent(content)
}

// Scrape crawls same-host links from startURL up to the configured depth.
func (s *Scraper) Scrape(ctx context.Context, startURL string) ([]Page, error) {
	var pages []Page
	err := s.scrapeRecursive(ctx, startURL, 0, &pages)
	return pages, err
}

func (s *Scraper) scrapeRecursive(ctx context.Context, urlStr string, depth int, pages *[]Page) error {
	if depth > s.config.MaxDepth || s.visited[urlStr] {
		return nil
	}

	if !s.shouldProcessURL(urlStr) {
		return nil
	}

	s.visited[urlStr] = true
	if s.config.OnProgress != nil {
		s.config.OnProgress(urlStr)
	}

	// Apply rate limiting
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return err
	}

	title := strings.TrimSpace(doc.Find("title").Text())

	// Collect links before the content selectors prune the tree
	var links []string
	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, _ := selection.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			log.Printf("Error parsing URL: %v", err)
			return
		}
		base, err := url.Parse(urlStr)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		links = append(links, abs.String())
	})

	content := s.extractMainContent(doc)
	if content != "" {
		*pages = append(*pages, Page{URL: urlStr, Title: title, Content: content})
	}

	for _, link := range links {
		if err := s.scrapeRecursive(ctx, link, depth+1, pages); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("Error scraping URL: %v", err)
		}
	}

	return nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Filename derives a stable .txt name from a page URL.
func Filename(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "page.txt"
	}
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(u.Host+u.Path), "-"), "-")
	if slug == "" {
		slug = "page"
	}
	return slug + ".txt"
}

// Save writes each page into dir as a UTF-8 text file, creating dir if needed,
// and returns the written file names.
func Save(dir string, pages []Page) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create knowledge directory: %w", err)
	}

	var written []string
	for _, page := range pages {
		name := Filename(page.URL)
		body := strings.ToValidUTF8(fmt.Sprintf("%s\n%s\n\n%s\n", page.Title, page.URL, page.Content), "")
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", name, err)
		}
		written = append(written, name)
	}
	return written, nil
}

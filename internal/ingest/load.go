package ingest

import (
	"context"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"

	"github.com/ppiankov/icfextract/internal/util"
)

// DefaultMaxBytes caps how much protocol text is read
const DefaultMaxBytes = 50 << 20

// Loader reads protocols from local files or http(s) URLs
type Loader struct {
	httpClient *http.Client
	maxBytes   int64
}

// NewLoader creates a loader. Timeout and proxies apply to URL sources only.
func NewLoader(timeoutSeconds int, maxBytes int64, httpProxy, httpsProxy string) (*Loader, error) {
	client, err := util.NewHTTPClient(timeoutSeconds, 60, httpProxy, httpsProxy)
	if err != nil {
		return nil, err
	}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return errors.New("stopped after 3 redirects")
		}
		return nil
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Loader{httpClient: client, maxBytes: maxBytes}, nil
}

// Load reads location and splits it into pages. HTML is reduced to its
// visible text first.
func (l *Loader) Load(ctx context.Context, location string) (*Source, error) {
	var (
		body   []byte
		isHTML bool
		err    error
	)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		body, isHTML, err = l.fetch(ctx, location)
	} else {
		body, isHTML, err = l.readFile(location)
	}
	if err != nil {
		return nil, err
	}

	text := string(body)
	if isHTML {
		doc, err := html.Parse(strings.NewReader(text))
		if err != nil {
			return nil, errors.Wrapf(err, "parse HTML %s", location)
		}
		text = visibleText(doc)
	}
	return Parse(text, location)
}

func (l *Loader) readFile(path string) ([]byte, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, errors.WithHint(errors.Newf("protocol not found: %s", path), "pass the protocol text file with --protocol")
		}
		return nil, false, errors.Wrap(err, "open protocol")
	}
	defer func() { _ = f.Close() }()

	body, err := io.ReadAll(io.LimitReader(f, l.maxBytes))
	if err != nil {
		return nil, false, errors.Wrap(err, "read protocol")
	}
	ext := strings.ToLower(filepath.Ext(path))
	return body, ext == ".html" || ext == ".htm", nil
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "text/plain, text/html;q=0.9, */*;q=0.1")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, false, errors.Wrap(err, "fetch protocol")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, errors.Newf("unexpected status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes))
	if err != nil {
		return nil, false, errors.Wrap(err, "read body")
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return body, mediaType == "text/html" || mediaType == "application/xhtml+xml", nil
}

// visibleText extracts text nodes, skipping scripts and styles. Block
// elements end a line so paragraphs survive for page grouping.
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6", "section", "table", "br":
				buf.WriteString("\n\n")
			}
		}
	}

	walk(n)
	return buf.String()
}

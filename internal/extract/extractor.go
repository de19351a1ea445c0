// File: internal/extract/extractor.go

// Package extract turns a rendered article page into a structured result:
// title, body text with inline image markers in document order, and the list
// of content image URLs. It operates on raw markup, so it needs no browser
// and degrades to an empty result on malformed input, never a fault.
package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// titleSuffix is appended by Medium to the document title of article pages.
const titleSuffix = " | Medium"

// containerSelectors is the ordered fallback chain for locating the article
// container. First candidate with non-empty inner markup wins; the page body
// is the mandatory last resort.
var containerSelectors = []string{
	"article",
	`div[role="article"]`,
	"section.pw-post-body",
	`section[role="main"]`,
	"div.story",
	"div.meteredContent",
	"div.postArticle-content",
	"div.section-inner",
}

// contentURLFragments mark Medium's CDN transformation paths for article
// imagery. Any match classifies an image as content.
var contentURLFragments = []string{
	"miro.medium.com",
	"/resize:",
	"/max/",
	"/fit:",
	"/progressive:",
}

// articleImageClasses are container classes Medium wraps article images in.
// Checked on ancestors up to three levels above the image.
var articleImageClasses = []string{
	"graf-image",
	"section-image",
	"post-image",
	"progressiveMedia",
}

// minContentDimension is the declared pixel size above which an image is
// assumed to be editorial content rather than a decorative icon.
const minContentDimension = 100

// ancestorDepth bounds the upward class search.
const ancestorDepth = 3

// Result is the structured representation of one extracted article.
type Result struct {
	Title        string      `json:"title"`
	CanonicalURL string      `json:"canonical_url"`
	BodyText     string      `json:"body_text"`
	Images       []string    `json:"images"`
	Diagnostic   *Diagnostic `json:"diagnostic,omitempty"`
}

// SelectorAttempt records one container candidate's outcome.
type SelectorAttempt struct {
	Selector      string `json:"selector"`
	Found         bool   `json:"found"`
	ContentLength int    `json:"content_length,omitempty"`
}

// Diagnostic carries optional extraction internals for debugging.
type Diagnostic struct {
	SelectorsTried   []SelectorAttempt `json:"selectors_tried"`
	UsedBodyFallback bool              `json:"using_body_fallback,omitempty"`
	ImageCount       int               `json:"article_image_count"`
	TextLength       int               `json:"processed_text_length"`
}

// Extractor linearizes article markup. Diagnostics are collected only when
// requested at construction.
type Extractor struct {
	log         *zap.Logger
	diagnostics bool
}

// New creates an extractor.
func New(logger *zap.Logger, diagnostics bool) *Extractor {
	return &Extractor{
		log:         logger.Named("extractor"),
		diagnostics: diagnostics,
	}
}

// Extract parses the rendered page markup and produces the structured result.
// pageTitle is the browser tab title; canonicalURL is echoed into the result.
func (e *Extractor) Extract(markup, pageTitle, canonicalURL string) Result {
	res := Result{
		Title:        stripTitleSuffix(pageTitle),
		CanonicalURL: canonicalURL,
		Images:       []string{},
	}
	var diag *Diagnostic
	if e.diagnostics {
		diag = &Diagnostic{}
		res.Diagnostic = diag
	}

	if strings.TrimSpace(markup) == "" {
		return res
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		// Malformed input degrades to an empty result.
		e.log.Warn("Could not parse article markup", zap.Error(err))
		return res
	}

	container := e.locateContainer(doc, diag)
	if container == nil {
		return res
	}

	res.BodyText, res.Images = e.linearize(container)

	if diag != nil {
		diag.ImageCount = len(res.Images)
		diag.TextLength = len(res.BodyText)
	}
	return res
}

// locateContainer walks the selector chain and falls back to the page body.
func (e *Extractor) locateContainer(doc *goquery.Document, diag *Diagnostic) *goquery.Selection {
	for _, sel := range containerSelectors {
		found := doc.Find(sel).First()
		if found.Length() == 0 {
			if diag != nil {
				diag.SelectorsTried = append(diag.SelectorsTried, SelectorAttempt{Selector: sel})
			}
			continue
		}
		inner, _ := found.Html()
		if diag != nil {
			diag.SelectorsTried = append(diag.SelectorsTried,
				SelectorAttempt{Selector: sel, Found: true, ContentLength: len(inner)})
		}
		if strings.TrimSpace(inner) != "" {
			e.log.Debug("Article container located", zap.String("selector", sel))
			return found
		}
	}

	if diag != nil {
		diag.UsedBodyFallback = true
	}
	e.log.Debug("No article container matched; falling back to page body")
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return nil
	}
	return body
}

// linearize substitutes image markers and flattens the container to plain
// text. Content images become "[IMG: <src>]" text nodes in place, so their
// position relative to surrounding text is preserved; decorative images are
// removed without a marker.
func (e *Extractor) linearize(container *goquery.Selection) (string, []string) {
	images := []string{}

	container.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			return
		}
		if isContentImage(img, src) {
			images = append(images, src)
			img.ReplaceWithNodes(&html.Node{
				Type: html.TextNode,
				Data: fmt.Sprintf("[IMG: %s]", src),
			})
		} else {
			img.Remove()
		}
	})

	var parts []string
	for _, node := range container.Nodes {
		collectText(node, &parts)
	}
	return strings.Join(parts, " "), images
}

// isContentImage applies three short-circuiting signals in order: CDN URL
// pattern, declared dimensions, and known ancestor container classes.
func isContentImage(img *goquery.Selection, src string) bool {
	for _, fragment := range contentURLFragments {
		if strings.Contains(src, fragment) {
			return true
		}
	}

	if w, okW := dimensionAttr(img, "width"); okW {
		if h, okH := dimensionAttr(img, "height"); okH {
			if w > minContentDimension && h > minContentDimension {
				return true
			}
		}
	}

	ancestor := img.Parent()
	for depth := 0; depth < ancestorDepth && ancestor.Length() > 0; depth++ {
		for _, class := range strings.Fields(ancestor.AttrOr("class", "")) {
			for _, known := range articleImageClasses {
				if class == known {
					return true
				}
			}
		}
		ancestor = ancestor.Parent()
	}

	return false
}

// dimensionAttr parses a declared integer dimension attribute.
func dimensionAttr(s *goquery.Selection, name string) (int, bool) {
	raw, ok := s.Attr(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return v, true
}

// skippedElements contribute no visible text and are excluded from
// linearization.
var skippedElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"template": {},
	"head":     {},
}

// collectText appends each non-empty trimmed text segment in document order.
func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	if n.Type == html.ElementNode {
		if _, skip := skippedElements[n.Data]; skip {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// stripTitleSuffix drops the site suffix Medium appends to page titles.
func stripTitleSuffix(title string) string {
	if i := strings.Index(title, titleSuffix); i >= 0 {
		return title[:i]
	}
	return title
}

// Package security provides HTML sanitization and identity verification
package security

import (
	"errors"
	"html"
	"io"
	"strings"

	"go.uber.org/zap"
	xhtml "golang.org/x/net/html"
)

// Sanitizer strips executable markup from externally-sourced rich text while
// preserving benign formatting. It is safe for concurrent use once built.
type Sanitizer struct {
	logger             *zap.Logger
	allowedTags        map[string]bool
	allowedAttributes  map[string]bool
	urlAttributes      map[string]bool
	urlSchemeWhitelist map[string]bool
	// Elements removed together with everything inside them.
	droppedContentTags map[string]bool
}

// NewSanitizer creates a sanitizer with the default allow lists
func NewSanitizer(logger *zap.Logger) *Sanitizer {
	s := &Sanitizer{
		logger:             logger.Named("sanitizer"),
		allowedTags:        make(map[string]bool),
		allowedAttributes:  make(map[string]bool),
		urlAttributes:      map[string]bool{"href": true, "src": true},
		urlSchemeWhitelist: make(map[string]bool),
		droppedContentTags: make(map[string]bool),
	}

	s.initializeDefaults()

	return s
}

func (s *Sanitizer) initializeDefaults() {
	// Formatting found in recipe summaries and instructions
	for _, tag := range []string{
		"p", "br", "b", "strong", "i", "em", "u", "s", "sub", "sup", "span", "div",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "dl", "dt", "dd",
		"blockquote", "cite", "q",
		"table", "thead", "tbody", "tr", "td", "th",
		"a", "img",
	} {
		s.allowedTags[tag] = true
	}

	for _, attr := range []string{
		"href", "src", "alt", "title", "class",
		"width", "height", "colspan", "rowspan",
	} {
		s.allowedAttributes[attr] = true
	}

	for _, scheme := range []string{"http", "https", "mailto"} {
		s.urlSchemeWhitelist[scheme] = true
	}

	for _, tag := range []string{
		"script", "style", "iframe", "frame", "frameset", "object", "embed", "applet",
		"noscript", "template", "textarea", "select", "svg", "math",
	} {
		s.droppedContentTags[tag] = true
	}
}

// SanitizeHTML returns input with disallowed elements and attributes removed.
// Text is re-escaped, so the result is safe to insert as HTML.
func (s *Sanitizer) SanitizeHTML(input string) string {
	if input == "" {
		return ""
	}

	var (
		out         strings.Builder
		skipTag     string
		skipDepth   int
		droppedTags int
		droppedAttr int
	)

	z := xhtml.NewTokenizer(strings.NewReader(input))
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				s.logger.Debug("Tokenizer stopped early", zap.Error(err))
			}
			break
		}

		tok := z.Token()

		if skipDepth > 0 {
			switch {
			case tt == xhtml.StartTagToken && tok.Data == skipTag:
				skipDepth++
			case tt == xhtml.EndTagToken && tok.Data == skipTag:
				skipDepth--
			}
			continue
		}

		switch tt {
		case xhtml.TextToken:
			out.WriteString(html.EscapeString(tok.Data))

		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			if s.droppedContentTags[tok.Data] {
				droppedTags++
				if tt == xhtml.StartTagToken {
					skipTag = tok.Data
					skipDepth = 1
				}
				continue
			}
			if !s.allowedTags[tok.Data] {
				droppedTags++
				continue
			}
			out.WriteByte('<')
			out.WriteString(tok.Data)
			for _, attr := range tok.Attr {
				value, ok := s.sanitizeAttribute(attr)
				if !ok {
					droppedAttr++
					continue
				}
				out.WriteByte(' ')
				out.WriteString(attr.Key)
				out.WriteString(`="`)
				out.WriteString(html.EscapeString(value))
				out.WriteByte('"')
			}
			out.WriteByte('>')

		case xhtml.EndTagToken:
			if !s.allowedTags[tok.Data] {
				continue
			}
			out.WriteString("</")
			out.WriteString(tok.Data)
			out.WriteByte('>')

		default:
			// comments, doctypes
			droppedTags++
		}
	}

	if droppedTags > 0 || droppedAttr > 0 {
		s.logger.Debug("Removed unsafe markup",
			zap.Int("tags", droppedTags),
			zap.Int("attributes", droppedAttr),
			zap.String("input_sample", truncateForLogging(input, 100)),
		)
	}

	return out.String()
}

// StripHTML removes every tag and returns the plain, unescaped text.
// Content of script-like elements is dropped entirely.
func (s *Sanitizer) StripHTML(input string) string {
	if input == "" {
		return ""
	}

	var (
		out       strings.Builder
		skipTag   string
		skipDepth int
	)

	z := xhtml.NewTokenizer(strings.NewReader(input))
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			break
		}
		tok := z.Token()

		if skipDepth > 0 {
			switch {
			case tt == xhtml.StartTagToken && tok.Data == skipTag:
				skipDepth++
			case tt == xhtml.EndTagToken && tok.Data == skipTag:
				skipDepth--
			}
			continue
		}

		switch tt {
		case xhtml.TextToken:
			out.WriteString(tok.Data)
		case xhtml.StartTagToken:
			if s.droppedContentTags[tok.Data] {
				skipTag = tok.Data
				skipDepth = 1
			}
		}
	}

	return strings.TrimSpace(out.String())
}

// sanitizeAttribute reports whether attr may be kept and the value to keep.
func (s *Sanitizer) sanitizeAttribute(attr xhtml.Attribute) (string, bool) {
	if attr.Namespace != "" || !s.allowedAttributes[attr.Key] {
		return "", false
	}
	if s.urlAttributes[attr.Key] {
		return s.sanitizeURL(attr.Val)
	}
	return attr.Val, true
}

// sanitizeURL rejects URLs whose scheme is not whitelisted. Relative URLs
// are kept.
func (s *Sanitizer) sanitizeURL(raw string) (string, bool) {
	url := strings.TrimSpace(raw)

	// Browsers ignore control characters and whitespace inside a scheme
	// ("java\tscript:"), so compare with them removed.
	compact := strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return -1
		}
		return r
	}, url)

	colon := strings.IndexByte(compact, ':')
	if colon < 0 {
		return url, true
	}
	if cut := strings.IndexAny(compact, "/?#"); cut >= 0 && cut < colon {
		return url, true
	}

	scheme := strings.ToLower(compact[:colon])
	if !s.urlSchemeWhitelist[scheme] {
		s.logger.Warn("Non-whitelisted URL scheme", zap.String("scheme", scheme))
		return "", false
	}
	return url, true
}

// truncateForLogging truncates strings for safe logging
func truncateForLogging(input string, maxLen int) string {
	if len(input) <= maxLen {
		return input
	}
	return input[:maxLen] + "..."
}

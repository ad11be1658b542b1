package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alchemorsel/ingrediate/internal/infrastructure/config"
)

var compressibleTypes = []string{
	"application/json",
	"application/problem+json",
	"application/xml",
	"text/",
}

// Compress buffers the response and encodes it with brotli or gzip when the
// client accepts one, the body reaches the configured minimum size and the
// content type is compressible. Responses that already carry a
// Content-Encoding pass through untouched.
func (m *Middleware) Compress() gin.HandlerFunc {
	cfg := m.config.Server.Compression

	return func(c *gin.Context) {
		encoding := negotiateEncoding(c.GetHeader("Accept-Encoding"))
		if !cfg.Enabled || encoding == "" || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		w := &compressWriter{ResponseWriter: c.Writer}
		c.Writer = w
		// A panic skips finish, so the recovery handler writes to the real writer
		defer func() { c.Writer = w.ResponseWriter }()

		c.Next()

		if err := w.finish(encoding, cfg); err != nil {
			m.logger.Warn("Response compression failed",
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.String("encoding", encoding),
				zap.Error(err),
			)
		}
	}
}

// negotiateEncoding picks br over gzip from an Accept-Encoding header,
// honouring q=0 exclusions
func negotiateEncoding(header string) string {
	if header == "" {
		return ""
	}

	accepted := make(map[string]float64)
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		quality := 1.0
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			parsed, err := strconv.ParseFloat(q, 64)
			if err != nil {
				continue
			}
			quality = parsed
		}
		accepted[strings.ToLower(strings.TrimSpace(name))] = quality
	}

	for _, encoding := range []string{"br", "gzip"} {
		if q, ok := accepted[encoding]; ok && q > 0 {
			return encoding
		}
	}
	if q, ok := accepted["*"]; ok && q > 0 {
		return "gzip"
	}
	return ""
}

func isCompressible(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "" {
		return false
	}

	for _, t := range compressibleTypes {
		if strings.HasPrefix(mediaType, t) {
			return true
		}
	}
	return false
}

// compressWriter holds the body back until the handler chain returns
type compressWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *compressWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *compressWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

func (w *compressWriter) Written() bool {
	return w.body.Len() > 0 || w.ResponseWriter.Written()
}

func (w *compressWriter) Size() int {
	return w.body.Len()
}

func (w *compressWriter) finish(encoding string, cfg config.CompressionConfig) error {
	body := w.body.Bytes()
	if len(body) == 0 {
		return nil
	}

	h := w.Header()
	if w.ResponseWriter.Written() ||
		len(body) < cfg.MinSize ||
		h.Get("Content-Encoding") != "" ||
		!isCompressible(h.Get("Content-Type")) {
		_, err := w.ResponseWriter.Write(body)
		return err
	}

	compressed, err := compress(body, encoding, cfg)
	if err != nil {
		_, _ = w.ResponseWriter.Write(body)
		return err
	}

	h.Set("Content-Encoding", encoding)
	h.Add("Vary", "Accept-Encoding")
	h.Del("Content-Length")

	_, err = w.ResponseWriter.Write(compressed)
	return err
}

func compress(body []byte, encoding string, cfg config.CompressionConfig) ([]byte, error) {
	var buf bytes.Buffer

	var zw io.WriteCloser
	switch encoding {
	case "br":
		zw = brotli.NewWriterLevel(&buf, cfg.BrotliLevel)
	default:
		gz, err := gzip.NewWriterLevel(&buf, cfg.GzipLevel)
		if err != nil {
			return nil, err
		}
		zw = gz
	}

	if _, err := zw.Write(body); err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

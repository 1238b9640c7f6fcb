package mw

import (
	"bytes"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache keeps rendered 200 responses of read endpoints such as the
// catalog (one entry per deviceType filter) and the configuration list.
//
// Keys carry a generation. A successful write bumps it, so responses that
// were rendered before the write can never be served after it, even when
// they are stored late.
type ResponseCache struct {
	store      *cache.Cache
	ttl        time.Duration
	generation atomic.Uint64
}

// NewResponseCache creates a cache whose entries live for ttl.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{store: cache.New(ttl, 2*ttl), ttl: ttl}
}

// Generation is the number of writes seen so far.
func (rc *ResponseCache) Generation() uint64 {
	return rc.generation.Load()
}

// Len is the number of stored responses, expired ones included until the
// janitor runs.
func (rc *ResponseCache) Len() int {
	return rc.store.ItemCount()
}

// Invalidate makes every stored response stale and drops them.
func (rc *ResponseCache) Invalidate() {
	rc.generation.Add(1)
	rc.store.Flush()
}

// key is generation, path and the query in sorted order, so ?b=1&a=2 and
// ?a=2&b=1 share an entry.
func (rc *ResponseCache) key(gen uint64, r *http.Request) string {
	k := strconv.FormatUint(gen, 10) + ":" + r.URL.Path
	if q := r.URL.Query(); len(q) > 0 {
		k += "?" + q.Encode()
	}
	return k
}

// Handler serves GET requests from the cache. Only the body, status and
// content type are replayed; cookies and other per-request headers are not.
// A request with "Cache-Control: no-cache" skips the lookup but refreshes
// the entry.
func (rc *ResponseCache) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		gen := rc.generation.Load()
		key := rc.key(gen, c.Request)
		if c.GetHeader("Cache-Control") != "no-cache" {
			if v, found := rc.store.Get(key); found {
				cached := v.(cachedResponse)
				c.Header("Content-Type", cached.contentType)
				c.Header("X-Cache", "HIT")
				c.Writer.WriteHeader(cached.status)
				c.Writer.Write(cached.body)
				c.Abort()
				return
			}
		}

		c.Header("X-Cache", "MISS")
		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		if blw.Status() != http.StatusOK || rc.generation.Load() != gen {
			return
		}
		rc.store.Set(key, cachedResponse{
			status:      blw.Status(),
			contentType: blw.Header().Get("Content-Type"),
			body:        blw.body.Bytes(),
		}, rc.ttl)
	}
}

// InvalidateOnWrite calls Invalidate after every successful request that is
// not a GET or HEAD.
func (rc *ResponseCache) InvalidateOnWrite() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			return
		}
		if s := c.Writer.Status(); s >= 200 && s < 300 {
			rc.Invalidate()
		}
	}
}

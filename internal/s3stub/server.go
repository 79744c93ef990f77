// Package s3stub is an in-process S3 endpoint for tests. It serves path-style
// object requests, keeps what was written and checks the traffic against
// declared expectations.
package s3stub

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Request is one call received by the server.
type Request struct {
	Method string
	Bucket string
	Key    string
	Header http.Header
	Body   []byte
}

// Path is "bucket/key", the form expectations are declared in.
func (r Request) Path() string {
	return r.Bucket + "/" + r.Key
}

type expectation struct {
	method string
	path   string
	status int
	body   []byte
	met    bool
}

type object struct {
	content     []byte
	contentType string
	modified    time.Time
}

type Server struct {
	mu           sync.Mutex
	srv          *httptest.Server
	strict       bool
	objects      map[string]object
	expectations []*expectation
	requests     []Request
	unexpected   []Request
}

type Option func(*Server)

// Strict rejects every request that no expectation covers.
func Strict() Option {
	return func(s *Server) { s.strict = true }
}

func New(opts ...Option) *Server {
	s := &Server{objects: make(map[string]object)}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Put("/{bucket}", s.handleBucket)
	r.Head("/{bucket}", s.handleBucket)
	r.Put("/{bucket}/*", s.handleObject)
	r.Get("/{bucket}/*", s.handleObject)
	r.Head("/{bucket}/*", s.handleObject)
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "unsupported request "+req.Method+" "+req.URL.Path)
	})

	s.srv = httptest.NewServer(r)
	return s
}

// URL is the endpoint to hand to a client, e.g. http://127.0.0.1:12345.
func (s *Server) URL() string {
	return s.srv.URL
}

func (s *Server) Close() {
	s.srv.Close()
}

// Expect declares a request. PUT expectations store the body; GET
// expectations answer with status and body, 404 becoming NoSuchKey.
func (s *Server) Expect(method, path string, status int, body []byte) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectations = append(s.expectations, &expectation{
		method: method,
		path:   strings.TrimPrefix(path, "/"),
		status: status,
		body:   body,
	})
	return s
}

func (s *Server) ExpectPut(path string) *Server {
	return s.Expect(http.MethodPut, path, http.StatusOK, nil)
}

func (s *Server) ExpectGetMissing(path string) *Server {
	return s.Expect(http.MethodGet, path, http.StatusNotFound, nil)
}

func (s *Server) ExpectGet(path string, body []byte) *Server {
	return s.Expect(http.MethodGet, path, http.StatusOK, body)
}

// Seed stores an object without recording a request.
func (s *Server) Seed(path string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[strings.TrimPrefix(path, "/")] = object{content: content, modified: time.Now()}
}

func (s *Server) Object(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[strings.TrimPrefix(path, "/")]
	return obj.content, ok
}

// Paths lists stored objects, sorted.
func (s *Server) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.objects))
	for p := range s.objects {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Unmet lists expectations that no request satisfied, as "METHOD path".
func (s *Server) Unmet() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.expectations {
		if !e.met {
			out = append(out, e.method+" "+e.path)
		}
	}
	return out
}

func (s *Server) Unexpected() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.unexpected...)
}

// Verify fails when an expectation is unmet or, in strict mode, a request
// was not expected.
func (s *Server) Verify() error {
	var problems []string
	for _, e := range s.Unmet() {
		problems = append(problems, "missing request "+e)
	}
	for _, r := range s.Unexpected() {
		problems = append(problems, "unexpected request "+r.Method+" "+r.Path())
	}
	if len(problems) > 0 {
		return fmt.Errorf("s3stub: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (s *Server) handleBucket(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "IncompleteBody", err.Error())
		return
	}
	req := Request{
		Method: r.Method,
		Bucket: chi.URLParam(r, "bucket"),
		Key:    chi.URLParam(r, "*"),
		Header: r.Header.Clone(),
		Body:   body,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)

	exp := s.match(req)
	if exp == nil && s.strict && r.Method != http.MethodHead {
		s.unexpected = append(s.unexpected, req)
		writeError(w, http.StatusForbidden, "AccessDenied", "request was not expected: "+req.Method+" "+req.Path())
		return
	}

	switch r.Method {
	case http.MethodPut:
		if exp != nil && exp.status != http.StatusOK {
			writeError(w, exp.status, http.StatusText(exp.status), "rejected by expectation")
			return
		}
		if want := r.Header.Get("Content-Md5"); want != "" && want != md5Base64(body) {
			writeError(w, http.StatusBadRequest, "BadDigest", "Content-MD5 does not match the body")
			return
		}
		s.objects[req.Path()] = object{content: body, contentType: r.Header.Get("Content-Type"), modified: time.Now()}
		w.Header().Set("ETag", etag(body))
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		obj, ok := s.objects[req.Path()]
		if exp != nil {
			ok = exp.status == http.StatusOK
			if ok && exp.body != nil {
				obj = object{content: exp.body, modified: time.Now()}
			}
		}
		if !ok {
			writeError(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
			return
		}
		contentType := obj.contentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.content)))
		w.Header().Set("ETag", etag(obj.content))
		w.Header().Set("Last-Modified", obj.modified.UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(obj.content)
		}
	}
}

func (s *Server) match(req Request) *expectation {
	for _, e := range s.expectations {
		if !e.met && e.method == req.Method && e.path == req.Path() {
			e.met = true
			return e
		}
	}
	return nil
}

type errorResponse struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	body, _ := xml.Marshal(errorResponse{Code: code, Message: message})
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = w.Write(append([]byte(xml.Header), body...))
}

// readBody returns the payload, decoding aws-chunked uploads.
func readBody(r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING-") {
		return raw, nil
	}
	return decodeChunked(raw)
}

// decodeChunked strips "<hex-size>;chunk-signature=...\r\n" framing.
func decodeChunked(raw []byte) ([]byte, error) {
	var out bytes.Buffer
	br := bufio.NewReader(bytes.NewReader(raw))
	for {
		header, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read chunk header: %w", err)
		}
		sizeHex, _, _ := strings.Cut(strings.TrimSpace(header), ";")
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("parse chunk size %q: %w", sizeHex, err)
		}
		if size == 0 {
			return out.Bytes(), nil
		}
		if _, err := io.CopyN(&out, br, size); err != nil {
			return nil, fmt.Errorf("read chunk: %w", err)
		}
		if _, err := br.Discard(2); err != nil {
			return nil, fmt.Errorf("read chunk trailer: %w", err)
		}
	}
}

func etag(content []byte) string {
	sum := md5.Sum(content)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func md5Base64(content []byte) string {
	sum := md5.Sum(content)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Package httpapi is the HTTP front door: service dispatch (first path
// segment -> service name, rest -> sub-path) and the management API
// (list/fetch/upload/start-stop/remove). It is a thin gin layer over
// lifecycle.Engine; every handler's job is parsing the request, calling
// one Engine operation, and rendering the result through
// writeError/statusFor's status mapping.
package httpapi

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nabbar/abel/errors"
	"github.com/nabbar/abel/isolate"
	"github.com/nabbar/abel/lifecycle"
	liblog "github.com/nabbar/abel/logger"
	"github.com/nabbar/abel/source"
	"github.com/nabbar/abel/svcpool"
)

// Mode selects how an upload lands: create, hot, cold or load.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeHot    Mode = "hot"
	ModeCold   Mode = "cold"
	ModeLoad   Mode = "load"
)

const (
	fieldSingle = "single"
	fieldMulti  = "multi"
)

// SourceStore persists an uploaded service's source onto the host's
// on-disk layout (services/<name>/source.lua or source.asar) and hands
// back a source.Source reading from the persisted copy, so the record the
// lifecycle engine builds still resolves correctly after this request
// returns. Implemented by the hostconfig package.
type SourceStore interface {
	SaveSingle(name string, body []byte) (source.Source, error)
	SaveArchive(name string, body []byte) (source.Source, error)
}

// Recorder keeps metadata.json in sync with every mutating management
// operation, so a restart sees the same started/stopped state and uuid
// this process last observed. Implemented by the hostconfig package; nil
// is a valid Server field for tests that never touch the filesystem.
type Recorder interface {
	Record(name, uuid string, started bool) error
	Forget(name string) error
}

// Server wires an Engine into a gin router's routes.
type Server struct {
	eng     *lifecycle.Engine
	log     liblog.Logger
	authTok string
	store   SourceStore
	rec     Recorder
}

// New builds a Server. store persists uploaded service source to disk; log
// may be nil.
func New(eng *lifecycle.Engine, store SourceStore, log liblog.Logger, authToken string) *Server {
	return &Server{eng: eng, store: store, log: log, authTok: authToken}
}

// SetRecorder installs the metadata recorder used after every mutating
// operation. Optional; a Server with no recorder simply never persists
// started/stopped state (in-memory only, useful for tests).
func (s *Server) SetRecorder(r Recorder) {
	s.rec = r
}

// recordState best-effort persists name's current (uuid, started) state.
// A write failure is logged, never surfaced to the HTTP caller: the
// operation itself already succeeded in memory, and the host would rather
// serve a live mismatch-on-restart than fail a request over a metadata
// write.
func (s *Server) recordState(name, uuid string, started bool) {
	if s.rec == nil {
		return
	}
	if err := s.rec.Record(name, uuid, started); err != nil && s.log != nil {
		s.log.Warning("failed to persist metadata for "+name, err)
	}
}

func (s *Server) forgetState(name string) {
	if s.rec == nil {
		return
	}
	if err := s.rec.Forget(name); err != nil && s.log != nil {
		s.log.Warning("failed to remove metadata for "+name, err)
	}
}

// Register installs the management API, the liveness route and the
// dispatch catch-all onto r. The liveness route and dispatch catch-all are
// never gated by Auth; the management API is, when a token is configured.
func (s *Server) Register(r gin.IRouter) {
	r.GET("/", s.handleLiveness)

	mgmt := r
	if s.authTok != "" {
		mgmt = r.Group("/", Auth(s.authTok))
	} else {
		mgmt = r.Group("/", noAuthConfigured())
	}
	mgmt.GET("/services", s.handleList)
	mgmt.GET("/services/:name", s.handleFetch)
	mgmt.PUT("/services/:name", s.handleUpload)
	mgmt.PATCH("/services/:name", s.handleOp)
	mgmt.DELETE("/services/:name", s.handleRemove)

	r.NoRoute(s.handleDispatch)
}

// noAuthConfigured marks every request as authenticated when the host
// carries no token, matching Auth's own "empty token disables auth
// entirely" behaviour without requiring a group with zero middleware
// (gin.IRouter.Group always wants at least a valid handler chain to mirror
// Auth's authenticatedKey bookkeeping that writeError's redaction checks).
func noAuthConfigured() gin.HandlerFunc {
	return Auth("")
}

func (s *Server) handleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listEntry is one row of GET /services' response.
type listEntry struct {
	Name  string `json:"name"`
	UUID  string `json:"uuid"`
	State string `json:"state"`
}

func (s *Server) handleList(c *gin.Context) {
	out := make([]listEntry, 0)

	s.eng.Pool().Range(func(name string, entry *svcpool.Entry) bool {
		rec := entry.Record()
		out = append(out, listEntry{Name: name, UUID: rec.UUID().String(), State: stateLabel(entry)})
		return true
	})

	c.JSON(http.StatusOK, out)
}

func stateLabel(entry *svcpool.Entry) string {
	if entry.State == svcpool.Running {
		return "running"
	}
	return "stopped"
}

type recordPayload struct {
	Name        string   `json:"name"`
	UUID        string   `json:"uuid"`
	State       string   `json:"state"`
	Paths       []string `json:"paths"`
	PackageName string   `json:"package_name,omitempty"`
	PackageDesc string   `json:"package_description,omitempty"`
}

func (s *Server) handleFetch(c *gin.Context) {
	name := c.Param("name")

	entry, ok := s.eng.Pool().Get(name)
	if !ok {
		writeError(c, s.log, lifecycle.ErrorNotFound.Error(nil))
		return
	}

	rec := entry.Record()
	paths := make([]string, 0, len(rec.Paths()))
	for _, m := range rec.Paths() {
		paths = append(paths, m.Pattern)
	}

	c.JSON(http.StatusOK, recordPayload{
		Name:        rec.Name(),
		UUID:        rec.UUID().String(),
		State:       stateLabel(entry),
		Paths:       paths,
		PackageName: rec.PackageName(),
		PackageDesc: rec.PackageDesc(),
	})
}

// uploadPayload is the JSON body returned by PUT /services/{name}: the
// fresh record plus the soft ErrorPayload the client needs visibility into
// (e.g. the old instance's stop hook failed but the new one started fine).
type uploadPayload struct {
	Name  string  `json:"name"`
	UUID  string  `json:"uuid"`
	State string  `json:"state"`
	Start *string `json:"error_start,omitempty"`
	Stop  *string `json:"error_stop,omitempty"`
}

func payloadOf(name, uuid, state string, p lifecycle.ErrorPayload) uploadPayload {
	up := uploadPayload{Name: name, UUID: uuid, State: state}
	if p.Start != nil {
		m := renderErr(p.Start)
		up.Start = &m
	}
	if p.Stop != nil {
		m := renderErr(p.Stop)
		up.Stop = &m
	}
	return up
}

// handleUpload implements PUT /services/{name}?mode={create|hot|cold|load}.
// Exactly one of the "single"/"multi" multipart fields must be present;
// "single" mounts one Lua file, "multi" is an archive containing main.lua
// and an optional abel.json.
func (s *Server) handleUpload(c *gin.Context) {
	name := c.Param("name")
	mode := Mode(c.DefaultQuery("mode", string(ModeCold)))

	src, berr := s.readUpload(c, name)
	if berr != nil {
		writeError(c, s.log, berr)
		return
	}

	uuid := c.Query("uuid")

	switch mode {
	case ModeLoad:
		rec, _, payload, err := s.eng.Load(name, uuid, src)
		if err != nil {
			writeError(c, s.log, err)
			return
		}
		s.recordState(rec.Name(), rec.UUID().String(), false)
		c.JSON(http.StatusOK, payloadOf(rec.Name(), rec.UUID().String(), "stopped", payload))

	case ModeCreate:
		entry, payload, err := s.eng.ColdUpdateOrCreate(name, uuid, src, true)
		if err != nil {
			writeError(c, s.log, err)
			return
		}
		s.recordState(name, entry.Record().UUID().String(), entry.State == svcpool.Running)
		c.JSON(http.StatusOK, payloadOf(name, entry.Record().UUID().String(), stateLabel(entry), payload))

	case ModeHot:
		if entry, ok := s.eng.Pool().Get(name); ok && entry.State == svcpool.Running {
			newEntry, err := s.eng.HotUpdate(name, uuid, src)
			if err != nil {
				writeError(c, s.log, err)
				return
			}
			s.recordState(name, newEntry.Record().UUID().String(), true)
			c.JSON(http.StatusOK, payloadOf(name, newEntry.Record().UUID().String(), stateLabel(newEntry), lifecycle.ErrorPayload{}))
			return
		}
		entry, payload, err := s.eng.ColdUpdateOrCreate(name, uuid, src, false)
		if err != nil {
			writeError(c, s.log, err)
			return
		}
		s.recordState(name, entry.Record().UUID().String(), entry.State == svcpool.Running)
		c.JSON(http.StatusOK, payloadOf(name, entry.Record().UUID().String(), stateLabel(entry), payload))

	case ModeCold:
		entry, payload, err := s.eng.ColdUpdateOrCreate(name, uuid, src, false)
		if err != nil {
			writeError(c, s.log, err)
			return
		}
		s.recordState(name, entry.Record().UUID().String(), entry.State == svcpool.Running)
		c.JSON(http.StatusOK, payloadOf(name, entry.Record().UUID().String(), stateLabel(entry), payload))

	default:
		writeError(c, s.log, ErrorBadRequest.Error(nil))
	}
}

// readUpload pulls exactly one of the "single"/"multi" multipart fields
// out of the request and persists it through s.store.
func (s *Server) readUpload(c *gin.Context, name string) (source.Source, errors.Error) {
	form, ferr := c.MultipartForm()
	if ferr != nil {
		return nil, ErrorBadUpload.Error(ferr)
	}

	single := form.File[fieldSingle]
	multi := form.File[fieldMulti]

	switch {
	case len(single) == 1 && len(multi) == 0:
		body, rerr := readFormFile(single[0])
		if rerr != nil {
			return nil, ErrorBadUpload.Error(rerr)
		}
		src, serr := s.store.SaveSingle(name, body)
		if serr != nil {
			return nil, ErrorBadUpload.Error(serr)
		}
		return src, nil

	case len(multi) == 1 && len(single) == 0:
		body, rerr := readFormFile(multi[0])
		if rerr != nil {
			return nil, ErrorBadUpload.Error(rerr)
		}
		src, serr := s.store.SaveArchive(name, body)
		if serr != nil {
			return nil, ErrorBadUpload.Error(serr)
		}
		return src, nil

	default:
		return nil, ErrorMissingUpload.Error(nil)
	}
}

func readFormFile(hdr *multipart.FileHeader) ([]byte, error) {
	f, err := hdr.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// opPayload is PATCH /services/{name}'s response body for op=stop, which
// may carry a soft stop-hook failure.
type opPayload struct {
	Name  string  `json:"name"`
	State string  `json:"state"`
	Stop  *string `json:"error_stop,omitempty"`
}

// handleOp implements PATCH /services/{name}?op={start|stop}.
func (s *Server) handleOp(c *gin.Context) {
	name := c.Param("name")
	op := c.Query("op")

	switch op {
	case "start":
		if err := s.eng.Start(name); err != nil {
			writeError(c, s.log, err)
			return
		}
		if entry, ok := s.eng.Pool().Get(name); ok {
			s.recordState(name, entry.Record().UUID().String(), true)
		}
		c.JSON(http.StatusOK, opPayload{Name: name, State: "running"})

	case "stop":
		payload, err := s.eng.Stop(name)
		if err != nil {
			writeError(c, s.log, err)
			return
		}
		if entry, ok := s.eng.Pool().Get(name); ok {
			s.recordState(name, entry.Record().UUID().String(), false)
		}
		resp := opPayload{Name: name, State: "stopped"}
		if payload.Stop != nil {
			m := renderErr(payload.Stop)
			resp.Stop = &m
		}
		c.JSON(http.StatusOK, resp)

	default:
		writeError(c, s.log, ErrorBadRequest.Error(nil))
	}
}

// handleRemove implements DELETE /services/{name}.
func (s *Server) handleRemove(c *gin.Context) {
	name := c.Param("name")

	if err := s.eng.Remove(name); err != nil {
		writeError(c, s.log, err)
		return
	}

	s.forgetState(name)
	c.JSON(http.StatusOK, gin.H{"name": name, "removed": true})
}

// splitServicePath splits a request path into service name and sub-path:
// "/greet/hello/world" -> ("greet", "/hello/world"); "/greet" alone (no
// further segment) -> ("greet", "/"). The returned sub-path is always
// matched verbatim against a service's anchored path matchers, so a
// request's trailing slash (or lack of one) is preserved exactly.
func splitServicePath(path string) (name, sub string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return "", "", false
	}

	idx := strings.IndexByte(trimmed, '/')
	if idx < 0 {
		return trimmed, "/", true
	}
	return trimmed[:idx], trimmed[idx:], true
}

// handleDispatch implements the HTTP surface's per-request control flow:
// resolve (service-name, sub-path), look up the pool entry, and run
// lifecycle.Dispatch against its weak reference.
func (s *Server) handleDispatch(c *gin.Context) {
	name, sub, ok := splitServicePath(c.Request.URL.Path)
	if !ok {
		writeError(c, s.log, lifecycle.ErrorNotFound.Error(nil))
		return
	}

	entry, found := s.eng.Pool().Get(name)
	if !found || entry.State != svcpool.Running {
		writeError(c, s.log, lifecycle.ErrorNotFound.Error(nil))
		return
	}

	body, _ := io.ReadAll(c.Request.Body)

	req := &isolate.Request{
		Method:  c.Request.Method,
		URI:     c.Request.URL.RequestURI(),
		Headers: flattenHeader(c.Request.Header),
		Body:    body,
	}

	resp, err := s.eng.Dispatch(entry.Running.Weak(), sub, req)
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	for k, v := range resp.Headers {
		c.Header(k, v)
	}
	c.Data(resp.Status, contentTypeOf(resp.Headers), resp.Body)
}

func contentTypeOf(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "content-type") {
			return v
		}
	}
	return "text/plain; charset=utf-8"
}

func flattenHeader(h map[string][]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

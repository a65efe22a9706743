package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bastiangx/placeserve/internal/logger"
	"github.com/bastiangx/placeserve/pkg/catalog"
	"github.com/bastiangx/placeserve/pkg/place"
	"github.com/bastiangx/placeserve/pkg/reload"
	"github.com/bastiangx/placeserve/pkg/resource"
	"github.com/bastiangx/placeserve/pkg/search"
	"github.com/bastiangx/placeserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Reloader reloads the data files on request. *reload.Reloader implements it.
type Reloader interface {
	Reload(ctx context.Context) (reload.Result, error)
}

// Server handles the IPC for place searches
type Server struct {
	engine    *search.Engine
	completer *suggest.Completer
	reloader  Reloader
	logger    *log.Logger

	maxLimit   int
	live       bool
	liveBuffer int

	reader io.Reader
	writer *bufio.Writer
	enc    *msgpack.Encoder
	wmu    sync.Mutex

	// live mode: searches not answered yet, by request id
	pending   map[string]pendingSearch
	pendingMu sync.Mutex
	liveOrder uint64

	requests atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

func WithCompleter(c *suggest.Completer) Option {
	return func(s *Server) {
		s.completer = c
	}
}

func WithReloader(r Reloader) Option {
	return func(s *Server) {
		s.reloader = r
	}
}

// WithMaxLimit caps the page size of search and complete responses. 0 means no cap.
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		s.maxLimit = n
	}
}

// WithLive answers searches through a last-query-wins worker.
func WithLive(buffer int) Option {
	return func(s *Server) {
		s.live = true
		s.liveBuffer = buffer
	}
}

// WithIO replaces stdin/stdout.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(s *Server) {
		s.reader = r
		s.writer = bufio.NewWriter(w)
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a server reading requests from stdin and writing to stdout.
func NewServer(engine *search.Engine, opts ...Option) *Server {
	s := &Server{
		engine:  engine,
		logger:  logger.New("server"),
		reader:  os.Stdin,
		writer:  bufio.NewWriter(os.Stdout),
		pending: make(map[string]pendingSearch),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.enc = msgpack.NewEncoder(s.writer)
	return s
}

// Start serves requests until stdin reaches EOF or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Debug("Starting Server.")

	var (
		live *search.Live
		wg   sync.WaitGroup
	)
	if s.live {
		live = search.NewLive(s.engine, s.liveBuffer, nil)
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.deliverLive(live)
		}()
		defer func() {
			live.Close()
			wg.Wait()
		}()
	}

	c := s.engine.Catalog()
	s.send(StatusResponse{Status: "ready", Version: c.Version(), Records: c.Size()})

	dec := msgpack.NewDecoder(bufio.NewReader(s.reader))
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		raw, err := dec.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Debug("Input closed, stopping server")
				return nil
			}
			// the stream cannot be resynchronized after a framing error
			s.sendError("", "Malformed msgpack stream", 400)
			return fmt.Errorf("reading request: %w", err)
		}

		var req Request
		if err := msgpack.Unmarshal(raw, &req); err != nil {
			s.logger.Errorf("Unmarshaling request: %v", err)
			s.sendError("", "Invalid msgpack request", 400)
			continue
		}
		s.requests.Add(1)
		s.handleRequest(ctx, req, live)
	}
}

// handleRequest dispatches one request by action
func (s *Server) handleRequest(ctx context.Context, req Request, live *search.Live) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	s.logger.Debugf("Request %s: action=%q prefix=%q", req.ID, req.Action, req.Prefix)

	switch req.Action {
	case "", ActionSearch:
		if live != nil {
			s.submitLive(live, req)
			return
		}
		start := time.Now()
		records, version := s.engine.SearchVersion(req.Prefix)
		s.send(s.searchResponse(req, records, version, time.Since(start)))
	case ActionComplete:
		s.handleComplete(req)
	case ActionRecord:
		s.handleRecord(req)
	case ActionStats:
		s.send(StatsResponse{ID: req.ID, Stats: s.Stats()})
	case ActionReload:
		s.handleReload(ctx, req)
	case ActionHealth:
		s.send(StatusResponse{ID: req.ID, Status: "ok"})
	default:
		s.sendError(req.ID, fmt.Sprintf("Unknown action: %s", req.Action), 400)
	}
}

type pendingSearch struct {
	req   Request
	order uint64
}

func (s *Server) submitLive(live *search.Live, req Request) {
	s.pendingMu.Lock()
	s.liveOrder++
	s.pending[req.ID] = pendingSearch{req: req, order: s.liveOrder}
	s.pendingMu.Unlock()

	live.Submit(req.ID, req.Prefix)
}

// deliverLive answers the searches that were still the newest when they finished.
// Older pending searches were overtaken and are forgotten.
func (s *Server) deliverLive(live *search.Live) {
	for res := range live.Results() {
		s.pendingMu.Lock()
		p, ok := s.pending[res.ID]
		if ok {
			for id, q := range s.pending {
				if q.order <= p.order {
					delete(s.pending, id)
				}
			}
		}
		s.pendingMu.Unlock()

		req := p.req
		if !ok {
			req = Request{ID: res.ID, Prefix: res.Prefix}
		}
		s.send(s.searchResponse(req, res.Records, res.Version, res.Elapsed))
	}
}

func (s *Server) searchResponse(req Request, records []place.Record, version uint64, elapsed time.Duration) SearchResponse {
	page := paginate(records, req.Offset, s.limit(req.Limit))
	return SearchResponse{
		ID:        req.ID,
		State:     resource.FromSearch(records).State,
		Records:   page,
		Count:     len(page),
		Total:     len(records),
		Version:   version,
		TimeTaken: elapsed.Microseconds(),
	}
}

// limit applies the server cap to a requested page size; 0 asks for the cap.
func (s *Server) limit(requested int) int {
	if requested <= 0 || (s.maxLimit > 0 && requested > s.maxLimit) {
		return s.maxLimit
	}
	return requested
}

// paginate returns records[offset:offset+limit], clamped. limit 0 means no limit.
func paginate(records []place.Record, offset, limit int) []place.Record {
	if offset < 0 {
		offset = 0
	}
	if offset > len(records) {
		offset = len(records)
	}
	end := len(records)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return records[offset:end]
}

func (s *Server) handleComplete(req Request) {
	if s.completer == nil {
		s.sendError(req.ID, "Completion is not enabled", 400)
		return
	}
	start := time.Now()
	suggestions := s.completer.Complete(req.Prefix, s.limit(req.Limit))
	s.send(CompleteResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   time.Since(start).Microseconds(),
	})
}

func (s *Server) handleRecord(req Request) {
	if req.Index == nil {
		s.sendError(req.ID, "Missing 'i' parameter", 400)
		return
	}
	rec, err := s.engine.Catalog().Get(*req.Index)
	if err != nil {
		code := 500
		if errors.Is(err, catalog.ErrOutOfRange) {
			code = 404
		}
		s.sendError(req.ID, err.Error(), code)
		return
	}
	s.send(RecordResponse{
		ID:     req.ID,
		State:  resource.StateSuccess,
		Record: rec,
		Cell:   rec.CellToken(place.DefaultCellLevel),
	})
}

func (s *Server) handleReload(ctx context.Context, req Request) {
	if s.reloader == nil {
		s.sendError(req.ID, "Reloading is not enabled", 400)
		return
	}
	res, err := s.reloader.Reload(ctx)
	if err != nil {
		s.sendError(req.ID, err.Error(), 500)
		return
	}
	s.send(StatusResponse{ID: req.ID, Status: "reloaded", Version: res.Version, Records: res.Records})
}

// Stats merges engine, completer and server counters.
func (s *Server) Stats() map[string]int {
	stats := s.engine.Stats()
	if s.completer != nil {
		for k, v := range s.completer.Stats() {
			stats[k] = v
		}
	}
	stats["requests"] = int(s.requests.Load())
	return stats
}

// send encodes one response and flushes it.
func (s *Server) send(response any) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.enc.Encode(response); err != nil {
		s.logger.Errorf("Encoding response: %v", err)
		return
	}
	if err := s.writer.Flush(); err != nil {
		s.logger.Errorf("Writing response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(id, message string, code int) {
	s.send(ErrorResponse{ID: id, Error: message, Code: code})
}

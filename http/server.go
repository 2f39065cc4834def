package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Server reads one request per connection, hands it to the router and closes
// the connection. Every accepted connection gets its own goroutine; there is
// no cap on how many run at once.
type Server struct {
	Name   string
	Router Router
	Logger *slog.Logger

	MaxHeaderBytes int
	HeaderTimeout  time.Duration
	BodyTimeout    time.Duration
	// MaxBodyBytes rejects larger declared bodies with 413. Zero means no limit.
	MaxBodyBytes int64
	// ReusePort sets SO_REUSEPORT on listeners created by ListenAndServe.
	ReusePort bool

	instrumentsOnce sync.Once
	instruments     instruments

	mu         sync.Mutex
	listeners  map[net.Listener]struct{}
	inShutdown atomic.Bool
	conns      sync.WaitGroup
}

func NewServer(name string, router Router) *Server {
	return &Server{
		Name:           name,
		Router:         router,
		MaxHeaderBytes: DefaultMaxHeaderBytes,
		HeaderTimeout:  DefaultHeaderTimeout,
		BodyTimeout:    DefaultBodyTimeout,
	}
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if s.inShutdown.Load() {
		return ErrServerClosed
	}

	lc := net.ListenConfig{Control: s.control}
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listener)
}

// Serve accepts connections until ctx is done or Shutdown is called, then
// returns ErrServerClosed. Connections already accepted keep running.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if !s.trackListener(listener, true) {
		_ = listener.Close()
		return ErrServerClosed
	}
	defer s.trackListener(listener, false)

	stop := context.AfterFunc(ctx, func() {
		if err := s.closeListeners(); err != nil {
			s.logger().Error("closing listener error", "error", err)
		}
	})
	defer stop()

	logger := s.logger()
	logger.Info("server listening", "name", s.Name, "addr", listener.Addr().String())

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 5 * time.Millisecond
	retry.MaxInterval = time.Second
	retry.MaxElapsedTime = 0

	for {
		c, err := listener.Accept()
		if err != nil {
			if s.inShutdown.Load() || ctx.Err() != nil {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			delay := retry.NextBackOff()
			logger.Error("accept error", "error", err, "retry_in", delay)
			time.Sleep(delay)
			continue
		}
		retry.Reset()

		if !s.trackConn() {
			_ = c.Close()
			return ErrServerClosed
		}
		go func() {
			defer s.conns.Done()
			s.ServeConn(c)
		}()
	}
}

// Shutdown stops accepting, closes the listeners and waits for in-flight
// connections until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.inShutdown.Store(true)
	s.mu.Unlock()

	err := s.closeListeners()

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger().Info("server stopped", "name", s.Name)
		return err
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
}

// ServeConn handles exactly one request on c and always closes it.
func (s *Server) ServeConn(c net.Conn) {
	start := time.Now()
	in := s.getInstruments()

	id := uuid.New()
	remote := remoteLabel(c)
	logger := s.logger().With("conn_id", id.String(), "remote", remote)

	spanCtx, span := in.connStart(context.Background(), remote)
	defer in.connEnd(spanCtx, span, start)

	cc := newConn(c, logger)
	defer cc.Close()

	ctx := &RequestCtx{
		ID:           id,
		Conn:         cc,
		Remote:       remote,
		Logger:       logger,
		Context:      spanCtx,
		writeTimeout: s.bodyTimeout(),
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			s.fail(ctx, span, fmt.Errorf("panic: %v", recovered))
		}
	}()

	logger.Info("connection established")

	handler, err := s.readRequest(ctx, span)
	if err != nil {
		s.fail(ctx, span, err)
		return
	}

	handler(ctx)

	if !ctx.Responded() {
		logger.Warn("handler returned without sending a response", "method", ctx.Request.Method)
	}
}

// readRequest runs the frame, parse and body phases in order and resolves
// the handler for the request method.
func (s *Server) readRequest(ctx *RequestCtx, span trace.Span) (Handler, error) {
	frame, err := ReadFrame(ctx.Conn, s.headerTimeout(), s.maxHeaderBytes())
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest(frame.Header, frame.Separator)
	if err != nil {
		return nil, err
	}

	declared, err := req.ContentLength()
	if err != nil {
		return nil, err
	}
	if s.MaxBodyBytes > 0 && declared > s.MaxBodyBytes {
		return nil, ErrBodyTooLarge
	}
	if excess := int64(len(frame.Remainder)) - declared; excess > 0 {
		ctx.Logger.Debug("dropping bytes past Content-Length", "bytes", excess)
	}

	req.Body, err = ReadBody(ctx.Conn, declared, frame.Remainder, s.bodyTimeout())
	if err != nil {
		return nil, err
	}

	ctx.Request = *req
	ctx.Path, ctx.Query = SplitTarget(req.Target)
	ctx.Body = DecodeText(req.Body)

	ctx.Logger.Info("request",
		"method", req.Method,
		"target", req.Target,
		"version", req.Version,
		"headers", len(req.Headers),
		"body", len(req.Body),
	)
	span.SetAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.path", ctx.Path),
	)

	handler, found := s.Router.Lookup(req.Method)
	if !found {
		return nil, ErrMethodNotAllowed
	}
	return handler, nil
}

// fail answers err with an error response, or just lets the connection close
// when the peer is gone or a response already went out.
func (s *Server) fail(ctx *RequestCtx, span trace.Span, err error) {
	in := s.getInstruments()

	if errors.Is(err, ErrConnectionClosed) {
		ctx.Logger.Info("connection error", "error", err)
		in.failure(ctx.Context, span, errorType(err), 0, err)
		return
	}

	var httpErr *Error
	switch {
	case errors.Is(err, ErrRequestTimeout):
		ctx.Logger.Warn("request timeout")
		httpErr = ErrRequestTimeout
	case errors.As(err, &httpErr):
		ctx.Logger.Error("request rejected", "status", httpErr.Status, "error", err)
	default:
		// The detail stays in the log, the client gets a generic message.
		ctx.Logger.Error("internal error", "error", err)
		httpErr = ErrInternal
	}
	in.failure(ctx.Context, span, errorType(err), httpErr.Status, err)

	if ctx.Responded() {
		return
	}
	if err := ctx.SendError(httpErr); err != nil {
		ctx.Logger.Info("sending error response failed", "error", err)
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrConnectionClosed):
		return "connection_closed"
	case errors.Is(err, ErrRequestTimeout):
		return "timeout"
	case errors.Is(err, ErrHeaderTooLarge):
		return "header_too_large"
	case errors.Is(err, ErrMalformedRequestLine):
		return "malformed_request_line"
	case errors.Is(err, ErrInvalidContentLength):
		return "invalid_content_length"
	case errors.Is(err, ErrBodyTooLarge):
		return "body_too_large"
	case errors.Is(err, ErrMethodNotAllowed):
		return "method_not_allowed"
	}
	return "internal"
}

func (s *Server) trackListener(listener net.Listener, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listeners == nil {
		s.listeners = make(map[net.Listener]struct{})
	}
	if add {
		if s.inShutdown.Load() {
			return false
		}
		s.listeners[listener] = struct{}{}
	} else {
		delete(s.listeners, listener)
	}
	return true
}

// trackConn counts a new connection unless Shutdown has started. Holding mu
// keeps the Add from racing the Wait in Shutdown.
func (s *Server) trackConn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inShutdown.Load() {
		return false
	}
	s.conns.Add(1)
	return true
}

func (s *Server) closeListeners() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for listener := range s.listeners {
		if cerr := listener.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = errors.Join(err, cerr)
		}
	}
	return err
}

func (s *Server) getInstruments() instruments {
	s.instrumentsOnce.Do(func() {
		s.instruments = newInstruments()
	})
	return s.instruments
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Server) maxHeaderBytes() int {
	if s.MaxHeaderBytes <= 0 {
		return DefaultMaxHeaderBytes
	}
	return s.MaxHeaderBytes
}

func (s *Server) headerTimeout() time.Duration {
	if s.HeaderTimeout <= 0 {
		return DefaultHeaderTimeout
	}
	return s.HeaderTimeout
}

func (s *Server) bodyTimeout() time.Duration {
	if s.BodyTimeout <= 0 {
		return DefaultBodyTimeout
	}
	return s.BodyTimeout
}

func remoteLabel(c net.Conn) string {
	if addr := c.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}

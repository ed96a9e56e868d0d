package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/poolserve/pkg/content"
	"github.com/vango-dev/poolserve/pkg/httpwire"
)

// handleConn serves exactly one request on conn and closes it. Failures before
// the response is written become a 500 response; a failed write is logged and
// the connection dropped. Nothing escapes to the worker.
func (s *Server) handleConn(conn net.Conn, store content.Store) {
	start := time.Now()
	remote := remoteString(conn)

	ctx, span := s.tracer.Start(context.Background(), "poolserve.connection",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("net.peer", remote)),
	)
	defer span.End()
	defer conn.Close()

	wrote := false
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		herr := &HandlerError{Remote: remote, Panic: r, Stack: debug.Stack()}
		s.logger.Error("handler panic",
			"remote", remote,
			"panic", r,
			"stack", string(herr.Stack))
		span.RecordError(herr)
		span.SetStatus(codes.Error, "panic")
		s.failed.Add(1)
		s.config.Metrics.RecordRequestError(herr)
		if !wrote {
			n, _ := conn.Write(httpwire.InternalError())
			s.config.Metrics.ObserveRequest(httpwire.StatusInternalServerError, time.Since(start), n)
		}
	}()

	status, out, err := s.respond(ctx, conn, store, span)
	if err != nil {
		s.requestFailed(span, remote, err)
		status, out = httpwire.StatusInternalServerError, httpwire.InternalError()
	}

	if s.config.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}
	wrote = true
	n, err := conn.Write(out)
	if err != nil {
		// Never retried: part of the response may already be on the wire.
		s.requestFailed(span, remote, &ConnError{Remote: remote, Op: "write", Err: fmt.Errorf("%w: %v", httpwire.ErrIO, err)})
		s.logger.Warn("dropping connection", "remote", remote, "written", n)
		status = httpwire.StatusInternalServerError
	}

	span.SetAttributes(attribute.Int("http.status_code", status))
	s.countStatus(status)
	s.config.Metrics.ObserveRequest(status, time.Since(start), n)
}

// respond reads the request and returns the status and encoded response.
func (s *Server) respond(ctx context.Context, conn net.Conn, store content.Store, span trace.Span) (int, []byte, error) {
	if s.config.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}

	req, err := httpwire.ReadRequest(bufio.NewReader(conn), s.config.MaxRequestBytes)
	if err != nil {
		return 0, nil, err
	}
	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.path", req.Path),
	)

	resolved, err := store.Resolve(req.Path)
	if err != nil {
		return 0, nil, err
	}

	exists, err := store.Exists(ctx, resolved)
	if err != nil {
		return 0, nil, err
	}

	var resp *httpwire.Response
	if exists {
		s.logger.Info("serving file", "path", resolved)
		data, err := store.Read(ctx, resolved)
		if err != nil {
			return 0, nil, err
		}
		resp = httpwire.NewResponse(httpwire.StatusOK).SetBody(data)
	} else {
		resp = httpwire.NewResponse(httpwire.StatusNotFound)
	}

	out, err := resp.Encode()
	if err != nil {
		return 0, nil, err
	}
	return resp.Status, out, nil
}

func (s *Server) requestFailed(span trace.Span, remote string, err error) {
	s.logger.Error("request failed", "remote", remote, "error", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.config.Metrics.RecordRequestError(err)
}

func (s *Server) countStatus(status int) {
	switch status {
	case httpwire.StatusOK:
		s.served.Add(1)
	case httpwire.StatusNotFound:
		s.notFound.Add(1)
	default:
		s.failed.Add(1)
	}
}

func remoteString(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

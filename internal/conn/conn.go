// Package conn implements the per-connection state machine (spec.md
// §4.8): read the fixed-size request header, read the offsets body,
// aggregate counts, write the fixed-size response header, write the
// counts body, close.
//
// spec.md frames this as a self-owning chain of async callbacks, one
// strong reference per pending callback, converging on S5 when the last
// callback returns. Go's goroutine-per-connection model gives the same
// lifetime guarantee for free — the goroutine itself is the "chain of
// pending callbacks," and it owns the socket until it returns — so the
// states below are expressed as a straight-line sequence of blocking
// calls rather than a callback graph (compare the teacher's
// internal/coordinator and internal/shard handlers, which are
// synchronous per-request HTTP handlers for the same reason).
package conn

import (
	"io"
	"net"
	"time"

	"github.com/dreamware/xfrase/internal/handler"
	"github.com/dreamware/xfrase/internal/wire"
	"github.com/dreamware/xfrase/internal/xerrors"
	"github.com/dreamware/xfrase/internal/xlog"
)

// DefaultStepTimeout is the per-suspension-point deadline (spec.md §4.8:
// "default 3s per step, configurable").
const DefaultStepTimeout = 3 * time.Second

// Conn owns one accepted socket for its entire request/response
// lifetime (spec.md §4.8/§9 "self-owned lifetime").
type Conn struct {
	nc          net.Conn
	handler     *handler.Handler
	stepTimeout time.Duration
}

// New wraps an accepted socket. Serve must be called exactly once.
func New(nc net.Conn, h *handler.Handler, stepTimeout time.Duration) *Conn {
	if stepTimeout <= 0 {
		stepTimeout = DefaultStepTimeout
	}
	return &Conn{nc: nc, handler: h, stepTimeout: stepTimeout}
}

// Serve drives the connection through S0..S5/S6 to completion. It never
// panics on protocol or I/O errors — those are logged and the
// connection is closed, matching spec.md §7's "the FSM never throws
// across suspension points."
func (c *Conn) Serve() {
	defer c.nc.Close()

	fields := xlog.Fields{"remote_addr": c.nc.RemoteAddr().String()}

	// S0 Reading-Header.
	c.deadline()
	headerFrame := make([]byte, wire.RequestHeaderSize)
	if _, err := io.ReadFull(c.nc, headerFrame); err != nil {
		c.logReadFailure("header", err, fields)
		return
	}

	req, err := wire.DecodeRequestHeader(headerFrame)
	if err != nil {
		// S0 -> S4 Writing-Error: malformed header, no offsets to read.
		c.writeError(xerrors.BadRequest, fields)
		return
	}
	fields["accession"] = req.Accession

	// S1 Header-Validated.
	respHdr, resolved, err := c.handler.HandleHeader(req)
	if respHdr.Status != xerrors.OK {
		// The offsets body (if any) is still on the wire; spec.md §4.8
		// routes a header-rejected request straight to Writing-Error
		// without reading it, since the connection closes either way.
		xlog.Warn("header rejected", withErr(fields, err))
		c.writeResponseHeader(respHdr, fields)
		return
	}

	// S2 Reading-Offsets: loop until all n_intervals records are in.
	// io.ReadFull already performs the "loop until offset_remaining==0"
	// accumulation spec.md describes, since TCP reads may fragment.
	c.deadline()
	offsetsBody := make([]byte, req.NIntervals*wire.OffsetRecordSize)
	if _, err := io.ReadFull(c.nc, offsetsBody); err != nil {
		c.logReadFailure("offsets", err, fields)
		return
	}
	offsets, err := wire.DecodeOffsets(offsetsBody, int(req.NIntervals))
	if err != nil {
		c.writeError(xerrors.BadRequest, fields)
		return
	}

	// S3 Compute+Write-Response-Header.
	counts, err := c.handler.HandleGetCounts(req, resolved, offsets)
	if err != nil {
		xlog.Warn("get_counts failed", withErr(fields, err))
		c.writeError(xerrors.CodeOf(err), fields)
		return
	}

	ok := wire.ResponseHeader{Status: xerrors.OK, ResponseSize: uint64(len(counts))}
	c.deadline()
	if !c.writeResponseHeader(ok, fields) {
		return
	}

	// S6 Writing-Counts.
	c.deadline()
	if _, err := c.nc.Write(wire.EncodeCounts(counts)); err != nil {
		xlog.Warn("write counts failed", withErr(fields, err))
		return
	}

	xlog.Debug("request served", fields)
	// S5 Closing happens via the deferred Close above.
}

func (c *Conn) deadline() {
	_ = c.nc.SetDeadline(time.Now().Add(c.stepTimeout))
}

// writeResponseHeader writes a response header, reporting success. A
// write failure is logged and the connection is left to the deferred
// Close in Serve.
func (c *Conn) writeResponseHeader(h wire.ResponseHeader, fields xlog.Fields) bool {
	frame, err := wire.EncodeResponseHeader(h)
	if err != nil {
		xlog.Error("failed to encode response header", withErr(fields, err))
		return false
	}
	c.deadline()
	if _, err := c.nc.Write(frame); err != nil {
		xlog.Warn("write response header failed", withErr(fields, err))
		return false
	}
	return true
}

// writeError writes an error response header (response_size=0, no
// body) — spec.md §4.8's S4 Writing-Error.
func (c *Conn) writeError(code xerrors.Code, fields xlog.Fields) {
	c.writeResponseHeader(wire.ResponseHeader{Status: code, ResponseSize: 0}, fields)
}

// logReadFailure distinguishes a deadline expiry (spec.md §8 property
// 10 / E4: "server logs timeout") from any other I/O error, then writes
// the best-effort error response if the connection can still accept one.
func (c *Conn) logReadFailure(stage string, err error, fields xlog.Fields) {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		xlog.Info("timeout reading "+stage, fields)
		c.writeError(xerrors.Timeout, fields)
		return
	}
	xlog.Info("connection closed before "+stage, withErr(fields, err))
}

func withErr(fields xlog.Fields, err error) xlog.Fields {
	out := make(xlog.Fields, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	if err != nil {
		out["error"] = err.Error()
	}
	return out
}

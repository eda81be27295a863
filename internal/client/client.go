// Package client implements the xfrase wire protocol's client side: one
// request per TCP connection, no pipelining or keep-alive (spec.md §1
// Non-goals). Grounded on the teacher's internal/cluster request
// helpers (dial, write, read, decode, close) for the request/response
// shape, adapted from JSON-over-HTTP to the binary wire framing
// internal/wire defines.
package client

import (
	"io"
	"net"
	"time"

	"github.com/dreamware/xfrase/internal/wire"
	"github.com/dreamware/xfrase/internal/xerrors"
)

// DefaultTimeout bounds the whole request/response round trip.
const DefaultTimeout = 10 * time.Second

// Lookup opens a fresh connection to addr, sends a request for
// accession over offsets, and returns the decoded response.
func Lookup(addr string, accession string, methylomeSize uint64, offsets []wire.Offset, timeout time.Duration) (wire.ResponseHeader, []wire.Count, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	nc, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return wire.ResponseHeader{}, nil, xerrors.New("client.Lookup", xerrors.IOError, err)
	}
	defer nc.Close()
	_ = nc.SetDeadline(time.Now().Add(timeout))

	reqFrame, err := wire.EncodeRequestHeader(wire.RequestHeader{
		Accession:     accession,
		MethylomeSize: methylomeSize,
		NIntervals:    uint64(len(offsets)),
	})
	if err != nil {
		return wire.ResponseHeader{}, nil, err
	}
	if _, err := nc.Write(reqFrame); err != nil {
		return wire.ResponseHeader{}, nil, xerrors.New("client.Lookup", xerrors.IOError, err)
	}
	if _, err := nc.Write(wire.EncodeOffsets(offsets)); err != nil {
		return wire.ResponseHeader{}, nil, xerrors.New("client.Lookup", xerrors.IOError, err)
	}

	respFrame := make([]byte, wire.ResponseHeaderSize)
	if _, err := io.ReadFull(nc, respFrame); err != nil {
		return wire.ResponseHeader{}, nil, mapReadErr(err)
	}
	resp, err := wire.DecodeResponseHeader(respFrame)
	if err != nil {
		return wire.ResponseHeader{}, nil, err
	}
	if resp.Status != xerrors.OK {
		return resp, nil, xerrors.New("client.Lookup", resp.Status, nil)
	}

	countsBody := make([]byte, resp.ResponseSize*wire.CountRecordSize)
	if _, err := io.ReadFull(nc, countsBody); err != nil {
		return resp, nil, mapReadErr(err)
	}
	counts, err := wire.DecodeCounts(countsBody, int(resp.ResponseSize))
	if err != nil {
		return resp, nil, err
	}
	return resp, counts, nil
}

func mapReadErr(err error) error {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return xerrors.New("client.Lookup", xerrors.Timeout, err)
	}
	return xerrors.New("client.Lookup", xerrors.IOError, err)
}

package remote

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/observability/log"
)

// ALPN is the application protocol negotiated by both QUIC ends.
const ALPN = "scenewalk-memory"

// quicConfig keeps idle connections alive between watch ticks.
func quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:     time.Minute,
		KeepAlivePeriod:    15 * time.Second,
		MaxIncomingStreams: 1024,
	}
}

// ListenQUIC opens a UDP listener for ServeQUIC. tlsConf must carry a
// certificate; ALPN is added when missing.
func ListenQUIC(addr string, tlsConf *tls.Config) (*quic.Listener, error) {
	ln, err := quic.ListenAddr(addr, withALPN(tlsConf), quicConfig())
	if err != nil {
		return nil, fmt.Errorf("listen quic %s: %w", addr, err)
	}
	return ln, nil
}

// ServeQUIC answers read requests on every connection accepted from ln until
// ctx is done. Each bidirectional stream carries one request and one response.
func (s *Server) ServeQUIC(ctx context.Context, ln *quic.Listener) error {
	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept quic connection: %w", err)
		}
		go s.serveQUICConn(ctx, conn)
	}
}

func (s *Server) serveQUICConn(ctx context.Context, conn *quic.Conn) {
	remote := conn.RemoteAddr().String()
	s.log.Info("memory client connected", log.String("remote", remote), log.String("transport", "quic"))
	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			s.log.Debug("memory client stream accept ended", log.String("remote", remote), log.Error(err))
			return
		}
		go s.serveQUICStream(stream, remote)
	}
}

func (s *Server) serveQUICStream(stream *quic.Stream, remote string) {
	defer stream.Close()

	frame, err := io.ReadAll(io.LimitReader(stream, requestSize+1))
	if err != nil {
		s.log.Debug("memory client request read failed", log.String("remote", remote), log.Error(err))
		stream.CancelRead(0)
		return
	}
	resp := s.handle(frame)
	_, err = stream.Write(resp.encode())
	s.buffers.Put(resp.data)
	if err != nil {
		s.log.Debug("memory client write failed", log.String("remote", remote), log.Error(err))
	}
}

var _ memory.Reader = (*QUICClient)(nil)

// QUICClient is a memory.Reader that opens one stream per read on a shared
// QUIC connection. It is safe for concurrent use.
type QUICClient struct {
	conn    *quic.Conn
	timeout time.Duration
	log     log.Log
	closed  atomic.Bool
}

// DialQUIC connects to a ServeQUIC endpoint at addr (host:port).
func DialQUIC(ctx context.Context, addr string, tlsConf *tls.Config, opts ...ClientOption) (*QUICClient, error) {
	tlsConf = withALPN(tlsConf)
	if tlsConf.ServerName == "" {
		if host, _, err := net.SplitHostPort(addr); err == nil {
			tlsConf.ServerName = host
		}
	}
	conn, err := quic.DialAddr(ctx, addr, tlsConf, quicConfig())
	if err != nil {
		return nil, fmt.Errorf("dial quic memory server %s: %w", addr, err)
	}
	o := newClientOptions(opts)
	return &QUICClient{conn: conn, timeout: o.timeout, log: o.log}, nil
}

func (c *QUICClient) Read(addr memory.Address, buf []byte) (int, error) {
	if c.closed.Load() || c.conn.Context().Err() != nil {
		return 0, ErrClosed
	}

	ctx := context.Background()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	stream, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return 0, c.classify(ctx, fmt.Errorf("open read stream: %w", err))
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetDeadline(deadline)
	}

	if _, err := stream.Write(request{size: uint32(len(buf)), addr: addr}.encode()); err != nil {
		stream.CancelRead(0)
		return 0, c.classify(ctx, fmt.Errorf("send read request: %w", err))
	}
	if err := stream.Close(); err != nil {
		stream.CancelRead(0)
		return 0, c.classify(ctx, fmt.Errorf("send read request: %w", err))
	}

	frame, err := io.ReadAll(io.LimitReader(stream, int64(responseHeaderSize+len(buf))))
	if err != nil {
		return 0, c.classify(ctx, fmt.Errorf("receive read response: %w", err))
	}
	resp, err := decodeResponse(frame)
	if err != nil {
		return 0, err
	}
	if resp.status != statusOK {
		return 0, fmt.Errorf("%w: %s", ErrRemoteFailed, resp.status)
	}
	return copy(buf, resp.data), nil
}

func (c *QUICClient) classify(ctx context.Context, err error) error {
	switch {
	case c.closed.Load() || c.conn.Context().Err() != nil:
		return fmt.Errorf("%w: %v", ErrClosed, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded), isTimeout(err):
		return ErrTimeout
	default:
		return err
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (c *QUICClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.log.Debug("closing quic memory client", log.String("remote", c.conn.RemoteAddr().String()))
	return c.conn.CloseWithError(0, "client closed")
}

func withALPN(tlsConf *tls.Config) *tls.Config {
	if tlsConf == nil {
		tlsConf = &tls.Config{}
	}
	tlsConf = tlsConf.Clone()
	if len(tlsConf.NextProtos) == 0 {
		tlsConf.NextProtos = []string{ALPN}
	}
	tlsConf.MinVersion = tls.VersionTLS13
	return tlsConf
}

// SelfSignedTLS returns a server TLS config with a fresh certificate for
// localhost. Clients must either skip verification or trust the returned
// certificate pool.
func SelfSignedTLS() (*tls.Config, *x509.CertPool, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, nil, fmt.Errorf("generate serial: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{Organization: []string{"scenewalk"}},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("create certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, fmt.Errorf("parse certificate: %w", err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(cert)
	conf := &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key, Leaf: cert}},
		NextProtos:   []string{ALPN},
		MinVersion:   tls.VersionTLS13,
	}
	return conf, pool, nil
}

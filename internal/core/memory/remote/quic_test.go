package remote

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/scenewalk/internal/core/layout"
	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/memory/sim"
	"github.com/zeusync/scenewalk/internal/core/registry"
	"github.com/zeusync/scenewalk/internal/core/scenetest"
)

func serveQUIC(t *testing.T, mem memory.Reader, opts ...ServerOption) *QUICClient {
	t.Helper()
	serverTLS, roots, err := SelfSignedTLS()
	require.NoError(t, err)

	ln, err := ListenQUIC("127.0.0.1:0", serverTLS)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(mem, opts...).ServeQUIC(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		_ = ln.Close()
		require.NoError(t, <-done)
	})

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	c, err := DialQUIC(dialCtx, ln.Addr().String(), &tls.Config{RootCAs: roots}, WithTimeout(2*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestQUICClient_RoundTrip(t *testing.T) {
	img := sim.New()
	addr := img.Alloc(32)
	img.PutUint64(addr, 0xcafebabe)
	img.PutCString(addr.Add(8), "quic")

	c := serveQUIC(t, img)

	p, err := memory.ReadPointer(c, addr)
	require.NoError(t, err)
	assert.Equal(t, memory.Address(0xcafebabe), p)

	s, err := memory.ReadString(c, addr.Add(8), memory.CString)
	require.NoError(t, err)
	assert.Equal(t, "quic", s)
}

func TestQUICClient_RemoteFailures(t *testing.T) {
	img := sim.New()
	page := img.AllocPage()
	img.Protect(page, 1)

	c := serveQUIC(t, img, WithMaxRead(64))

	_, err := memory.ReadPointer(c, page)
	require.ErrorIs(t, err, memory.ErrReadFailed)
	require.ErrorIs(t, err, ErrRemoteFailed)

	_, err = memory.ReadBytes(c, img.Alloc(128), 128)
	require.ErrorIs(t, err, ErrRemoteFailed)
}

func TestQUICClient_Closed(t *testing.T) {
	img := sim.New()
	addr := img.Alloc(8)
	c := serveQUIC(t, img)
	require.NoError(t, c.Close())

	_, err := c.Read(addr, make([]byte, 8))
	require.ErrorIs(t, err, ErrClosed)
}

func TestQUICClient_WalksRemoteRegistry(t *testing.T) {
	demo := scenetest.NewDemo(layout.Default())
	c := serveQUIC(t, demo.Image)

	w := registry.New(c, demo.Layout, registry.WithSchema(registry.SchemaBucketed))
	root, err := w.ResolveRegistryRoot(demo.Bootstrap)
	require.NoError(t, err)

	serial, err := w.EnumerateEntities(root)
	require.NoError(t, err)
	parallel, err := w.EnumerateEntitiesParallel(root, 4)
	require.NoError(t, err)
	assert.ElementsMatch(t, serial, parallel)
	assert.Len(t, serial, len(demo.Entities))
}

func TestSelfSignedTLS(t *testing.T) {
	conf, roots, err := SelfSignedTLS()
	require.NoError(t, err)
	require.Len(t, conf.Certificates, 1)
	assert.Equal(t, []string{ALPN}, conf.NextProtos)

	_, err = conf.Certificates[0].Leaf.Verify(x509.VerifyOptions{Roots: roots, DNSName: "localhost"})
	require.NoError(t, err)
}

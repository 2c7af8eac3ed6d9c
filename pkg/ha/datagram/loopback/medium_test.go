package loopback

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMediumBroadcast(t *testing.T) {
	m := NewMedium()
	a, b, c := m.Attach(), m.Attach(), m.Attach()
	require.Equal(t, 3, m.Ports())

	require.NoError(t, a.Send([]byte{1, 2}))
	for _, p := range []*Port{b, c} {
		pkt, ok := p.Recv()
		require.True(t, ok)
		require.Equal(t, []byte{1, 2}, pkt)
		_, ok = p.Recv()
		require.False(t, ok)
	}
	_, ok := a.Recv()
	require.False(t, ok)

	select {
	case <-b.Wake():
	default:
		t.Fatal("wake not signaled")
	}
}

func TestMediumLoss(t *testing.T) {
	m := NewMedium()
	a, b, c := m.Attach(), m.Attach(), m.Attach()
	m.Loss = func(from, to *Port, pkt []byte) bool {
		return to == c
	}
	require.NoError(t, a.Send([]byte{3}))
	_, ok := b.Recv()
	require.True(t, ok)
	_, ok = c.Recv()
	require.False(t, ok)
}

func TestPortClose(t *testing.T) {
	m := NewMedium()
	a, b := m.Attach(), m.Attach()
	require.NoError(t, b.Close())
	require.Equal(t, 1, m.Ports())
	require.NoError(t, a.Send([]byte{1}))
	_, ok := b.Recv()
	require.False(t, ok)
	require.Equal(t, ErrClosed, b.Send([]byte{1}))

	b.Inject([]byte{7})
	pkt, ok := b.Recv()
	require.True(t, ok)
	require.Equal(t, []byte{7}, pkt)
}

package counter

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/mantenimiento-api/internal/domain"
)

type memStore struct {
	mu   sync.Mutex
	seqs map[string]int64
	err  error
}

func (m *memStore) Increment(_ context.Context, orgID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if m.seqs == nil {
		m.seqs = map[string]int64{}
	}
	m.seqs[orgID]++
	return m.seqs[orgID], nil
}

func TestGetNextSequence_EmpiezaEnUnoYEsPorOrganizacion(t *testing.T) {
	svc := NewService(&memStore{}, zerolog.Nop())
	ctx := context.Background()

	a1, err := svc.GetNextSequence(ctx, "org-a")
	require.NoError(t, err)
	a2, _ := svc.GetNextSequence(ctx, "org-a")
	b1, _ := svc.GetNextSequence(ctx, "org-b")

	assert.Equal(t, int64(1), a1)
	assert.Equal(t, int64(2), a2)
	assert.Equal(t, int64(1), b1)
}

func TestGetNextSequence_OrgInvalida(t *testing.T) {
	svc := NewService(&memStore{}, zerolog.Nop())
	_, err := svc.GetNextSequence(context.Background(), "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestGetNextSequence_ErrorDeAlmacenamiento(t *testing.T) {
	boom := errors.New("db caída")
	svc := NewService(&memStore{err: boom}, zerolog.Nop())
	_, err := svc.GetNextSequence(context.Background(), "org-a")
	assert.ErrorIs(t, err, boom)
}

func TestGetNextSequence_50Concurrentes(t *testing.T) {
	svc := NewService(&memStore{}, zerolog.Nop())
	const n = 50
	got := make([]int64, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			seq, err := svc.GetNextSequence(context.Background(), "org-a")
			got[i] = seq
			return err
		})
	}
	require.NoError(t, g.Wait())

	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, v := range got {
		assert.Equal(t, int64(i+1), v, "consecutivos sin huecos ni duplicados")
	}
}

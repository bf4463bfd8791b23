package world

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSaver struct {
	mu    sync.Mutex
	saves int
	err   error
}

func (s *countingSaver) SaveMap(_ context.Context, _ *Map) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	return s.err
}

func (s *countingSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func TestRunnerTickOnceCallsHooks(t *testing.T) {
	m := NewMap(1, nil)
	r := NewRunner(m)

	var infos []TickInfo
	r.AddPostTickHook(func(hm *Map, info TickInfo) {
		assert.Same(t, m, hm)
		infos = append(infos, info)
	})

	now := time.Unix(50, 0)
	r.TickOnce(now)
	r.TickOnce(now.Add(time.Second))

	require.Len(t, infos, 2)
	assert.Equal(t, uint64(1), infos[0].Seq)
	assert.Equal(t, uint64(2), infos[1].Seq)
	assert.Equal(t, now, infos[0].Now)
	assert.Equal(t, uint64(2), r.Ticks())
}

func TestRunnerDoSerializes(t *testing.T) {
	m := NewMap(1, nil)
	m.InitEmpty(Header{MapID: 1, SizeX: 4, SizeY: 4})
	r := NewRunner(m)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Do(func(m *Map) error {
				f, _ := m.Field(0, 0)
				return m.SetField(0, 0, f.Type, f.Texture+1, f.Flags)
			})
		}()
	}
	wg.Wait()

	var texture uint32
	require.NoError(t, r.Do(func(m *Map) error {
		f, _ := m.Field(0, 0)
		texture = f.Texture
		return nil
	}))
	assert.Equal(t, uint32(50), texture)

	boom := errors.New("boom")
	assert.ErrorIs(t, r.Do(func(*Map) error { return boom }), boom)
}

func TestRunnerRunTicksAndSavesOnStop(t *testing.T) {
	m := NewMap(1, nil)
	saver := &countingSaver{}
	r := NewRunner(m, WithTickInterval(5*time.Millisecond), WithAutoSave(saver, time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return r.Ticks() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run не завершился после отмены контекста")
	}
	assert.Equal(t, 1, saver.count(), "финальное сохранение")
}

func TestRunnerSaveWithoutSaver(t *testing.T) {
	r := NewRunner(NewMap(1, nil))
	assert.NoError(t, r.Save(context.Background()))
	assert.Equal(t, DefaultTickInterval, r.Interval())
}

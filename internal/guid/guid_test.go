package guid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeAndExtract(t *testing.T) {
	cases := []struct {
		entry, low uint32
	}{
		{0, 0},
		{1, 2},
		{0xFFFFFFFF, 0},
		{0, 0xFFFFFFFF},
		{0xDEADBEEF, 0xCAFEBABE},
	}

	for _, c := range cases {
		g := Make(c.entry, c.low)
		assert.Equal(t, c.entry, g.Entry())
		assert.Equal(t, c.low, g.Low())
		assert.Equal(t, uint64(c.entry)<<32|uint64(c.low), uint64(g))
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "0000002A:00000007", Make(42, 7).String())
	assert.True(t, Empty.IsEmpty())
	assert.False(t, Make(0, 1).IsEmpty())
}

func TestGeneratorPerEntry(t *testing.T) {
	gen := NewGenerator()

	a1 := gen.Next(10)
	a2 := gen.Next(10)
	b1 := gen.Next(20)

	assert.Equal(t, uint32(1), a1.Low())
	assert.Equal(t, uint32(2), a2.Low())
	assert.Equal(t, uint32(1), b1.Low())
	assert.Equal(t, uint32(20), b1.Entry())
}

func TestGeneratorReserve(t *testing.T) {
	gen := NewGenerator()
	gen.Reserve(Make(5, 100))
	assert.Equal(t, uint32(101), gen.Next(5).Low())

	// Меньшее значение не откатывает счётчик
	gen.Reserve(Make(5, 3))
	assert.Equal(t, uint32(102), gen.Next(5).Low())
}

func TestGeneratorConcurrent(t *testing.T) {
	gen := NewGenerator()
	const workers, perWorker = 8, 500

	var mu sync.Mutex
	seen := make(map[GUID]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]GUID, 0, perWorker)
			for j := 0; j < perWorker; j++ {
				local = append(local, gen.Next(1))
			}
			mu.Lock()
			for _, g := range local {
				seen[g] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestParse(t *testing.T) {
	g := Make(42, 7)
	parsed, err := Parse(g.String())
	assert.NoError(t, err)
	assert.Equal(t, g, parsed)

	parsed, err = Parse("180388626439")
	assert.NoError(t, err)
	assert.Equal(t, g, parsed)

	for _, bad := range []string{"", "zz:01", "01:zz", "1FFFFFFFF:0", "-1"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

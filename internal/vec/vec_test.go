package vec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec2FloatToVec2Floors(t *testing.T) {
	assert.Equal(t, Vec2{X: 3, Y: 0}, Vec2Float{X: 3.9, Y: 0.1}.ToVec2())
	assert.Equal(t, Vec2{X: -1, Y: -2}, Vec2Float{X: -0.5, Y: -1.01}.ToVec2())
}

func TestToChunkCoords(t *testing.T) {
	assert.Equal(t, Vec2{X: 1, Y: 2}, Vec2{X: 31, Y: 47}.ToChunkCoords(16, 16))
}

func TestIsFinite(t *testing.T) {
	assert.True(t, Vec2Float{X: 1, Y: 2}.IsFinite())
	assert.False(t, Vec2Float{X: math.NaN(), Y: 2}.IsFinite())
	assert.False(t, Vec2Float{X: 1, Y: math.Inf(-1)}.IsFinite())
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5.0, Vec2Float{}.DistanceTo(Vec2Float{X: 3, Y: 4}), 1e-9)
}

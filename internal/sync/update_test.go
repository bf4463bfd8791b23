package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bubble-world/internal/guid"
	"github.com/annel0/bubble-world/internal/vec"
	"github.com/annel0/bubble-world/internal/world/object"
)

func TestFieldUpdateEncoding(t *testing.T) {
	u := FieldUpdate{
		Kind:       UpdateValues,
		MapID:      3,
		GUID:       guid.Make(100, 7),
		ObjectKind: object.KindCreature,
		Position:   vec.Vec2Float{X: 1.25, Y: 9},
		Words:      []Word{{Index: 2, Value: 0xDEADBEEF}, {Index: 9, Value: 1}},
	}
	data, err := u.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, 36+2*8)

	var got FieldUpdate
	require.NoError(t, got.UnmarshalBinary(data))
	assert.Equal(t, u, got)
}

func TestFieldUpdateRejectsMalformed(t *testing.T) {
	u := FieldUpdate{Kind: UpdateCreate, MapID: 1, GUID: guid.Make(1, 1), ObjectKind: object.KindUnit, Words: []Word{{Index: 0, Value: 1}}}
	data, err := u.MarshalBinary()
	require.NoError(t, err)

	var got FieldUpdate
	assert.ErrorIs(t, got.UnmarshalBinary(data[:10]), ErrBadUpdate)
	assert.ErrorIs(t, got.UnmarshalBinary(data[:len(data)-1]), ErrBadUpdate)
	assert.ErrorIs(t, got.UnmarshalBinary(append(data, 0)), ErrBadUpdate)

	bad := append([]byte(nil), data...)
	bad[0] = 9
	assert.ErrorIs(t, got.UnmarshalBinary(bad), ErrBadUpdate)
	bad[0] = 0
	bad[1] = 200
	assert.ErrorIs(t, got.UnmarshalBinary(bad), ErrBadUpdate)
}

func TestUpdateKindString(t *testing.T) {
	assert.Equal(t, "values", UpdateValues.String())
	assert.Equal(t, "create", UpdateCreate.String())
	assert.Equal(t, "remove", UpdateRemove.String())
	assert.Equal(t, "update(7)", UpdateKind(7).String())
}

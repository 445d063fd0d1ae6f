package convert

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignNumbers(t *testing.T) {
	var i int
	require.NoError(t, Assign(&i, int64(25)))
	assert.Equal(t, 25, i)

	require.NoError(t, Assign(&i, float64(25)))
	assert.Equal(t, 25, i)

	var f float64
	require.NoError(t, Assign(&f, int64(25)))
	assert.Equal(t, 25.0, f)

	var s string
	require.NoError(t, Assign(&s, "hello"))
	assert.Equal(t, "hello", s)
}

func TestAssignRejectsLossyAndMismatched(t *testing.T) {
	var i int
	assert.Error(t, Assign(&i, 2.5))

	var u uint8
	assert.Error(t, Assign(&u, -1.0))

	var i8 int8
	assert.Error(t, Assign(&i8, 300.0))

	var s string
	assert.Error(t, Assign(&s, int64(1)))

	var b bool
	assert.Error(t, Assign(&b, "true"))
}

func TestAssignRejectsIntegerOverflow(t *testing.T) {
	var i8 int8
	assert.Error(t, Assign(&i8, int64(300)))
	assert.Error(t, Assign(&i8, int64(-129)))
	require.NoError(t, Assign(&i8, int64(-128)))
	assert.EqualValues(t, -128, i8)

	var i32 int32
	assert.Error(t, Assign(&i32, int64(1)<<40))
	assert.Error(t, Assign(&i32, uint64(1)<<31))
	require.NoError(t, Assign(&i32, uint32(1)<<30))
	assert.EqualValues(t, 1<<30, i32)

	var i64 int64
	assert.Error(t, Assign(&i64, uint64(1)<<63))

	var u8 uint8
	assert.Error(t, Assign(&u8, float64(300)))
	assert.Error(t, Assign(&u8, int64(256)))
	assert.Error(t, Assign(&u8, int64(-1)))
	require.NoError(t, Assign(&u8, int64(255)))
	assert.EqualValues(t, 255, u8)

	var u64 uint64
	assert.Error(t, Assign(&u64, float64(1<<64)))
	require.NoError(t, Assign(&u64, int64(7)))
	assert.EqualValues(t, 7, u64)

	var p struct {
		N int16 `json:"n"`
	}
	assert.Error(t, Assign(&p, map[string]any{"n": int64(1) << 20}))
}

func TestAssignStructFromMap(t *testing.T) {
	type point struct {
		X int    `json:"x"`
		Y int    `json:"y"`
		L string `json:"label"`
	}
	var p point
	require.NoError(t, Assign(&p, map[string]any{"x": 1.0, "y": int64(2), "label": "p"}))
	assert.Equal(t, point{X: 1, Y: 2, L: "p"}, p)
}

func TestAssignNull(t *testing.T) {
	var m map[string]any
	require.NoError(t, Assign(&m, nil))
	assert.Nil(t, m)

	var i int
	assert.Error(t, Assign(&i, nil))

	var a any = "x"
	require.NoError(t, Assign(&a, nil))
	assert.Nil(t, a)
}

func TestAssignBadDestination(t *testing.T) {
	assert.Error(t, Assign(nil, 1))
	var i int
	assert.Error(t, Assign(i, 1))
}

func TestFromJSON(t *testing.T) {
	var xs []int
	require.NoError(t, FromJSON(&xs, []byte(`[1,2,3]`)))
	assert.Equal(t, []int{1, 2, 3}, xs)

	assert.Error(t, FromJSON(&xs, []byte(`{`)))
	assert.Equal(t, "int", TypeName(new(int)))
}

func TestFromJSONKeepsLargeIntegers(t *testing.T) {
	var n int64
	require.NoError(t, FromJSON(&n, []byte(`9007199254740993`)))
	assert.EqualValues(t, 9007199254740993, n)

	var a any
	require.NoError(t, FromJSON(&a, []byte(`{"n": 2, "f": 2.5}`)))
	assert.Equal(t, map[string]any{"n": int64(2), "f": 2.5}, a)

	assert.Error(t, FromJSON(&a, []byte(`1 2`)))
}

func TestParseArgs(t *testing.T) {
	args, err := ParseArgs([]byte(`[9007199254740993, 1.5, "x", [1], {"k": 3}]`))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(9007199254740993), 1.5, "x", []any{int64(1)}, map[string]any{"k": int64(3)}}, args)

	args, err = ParseArgs([]byte(`null`))
	require.NoError(t, err)
	assert.Nil(t, args)

	_, err = ParseArgs([]byte(`{"a": 1}`))
	assert.Error(t, err)
	_, err = ParseArgs([]byte(`[`))
	assert.Error(t, err)
}

func TestNormalizeLeavesOtherValues(t *testing.T) {
	assert.Equal(t, "s", Normalize("s"))
	assert.Equal(t, true, Normalize(true))
	assert.Equal(t, float64(1e300), Normalize(json.Number("1e300")))
}

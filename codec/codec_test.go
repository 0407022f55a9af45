package codec

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type address struct {
	City string
	Zip  int
}

type profile struct {
	ID     string
	Age    int
	Score  float64
	Tags   []string
	Counts map[string]int
	Home   *address
	Active bool
}

func sample() profile {
	return profile{
		ID:     "u-1",
		Age:    37,
		Score:  9.5,
		Tags:   []string{"admin", "beta"},
		Counts: map[string]int{"login": 3},
		Home:   &address{City: "Kraków", Zip: 30001},
		Active: true,
	}
}

func TestRoundTrip(t *testing.T) {
	cases := map[string]Codec[profile]{
		"default":  Default[profile](),
		"msgpack":  Msgpack[profile]{},
		"cbor":     MustCBOR[profile](false),
		"cbor-det": MustCBOR[profile](true),
		"json":     JSON[profile]{},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			in := sample()
			b, err := c.Encode(in)
			require.NoError(t, err)
			require.NotEmpty(t, b)

			out, err := c.Decode(b)
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestRoundTripScalars(t *testing.T) {
	s, err := Msgpack[string]{}.Encode("bar")
	require.NoError(t, err)
	got, err := Msgpack[string]{}.Decode(s)
	require.NoError(t, err)
	assert.Equal(t, "bar", got)

	n, err := Msgpack[int64]{}.Encode(-42)
	require.NoError(t, err)
	gotN, err := Msgpack[int64]{}.Decode(n)
	require.NoError(t, err)
	assert.Equal(t, int64(-42), gotN)
}

func TestDecodeMalformed(t *testing.T) {
	// 0xc1 is reserved in msgpack and never valid.
	_, err := Msgpack[profile]{}.Decode([]byte{0xc1})
	assert.Error(t, err)

	_, err = MustCBOR[profile](false).Decode([]byte{0xff, 0xff})
	assert.Error(t, err)

	_, err = JSON[profile]{}.Decode([]byte("{nope"))
	assert.Error(t, err)
}

func TestDeterministicCBORIsStable(t *testing.T) {
	c := MustCBOR[map[string]int](true)
	m := map[string]int{"z": 1, "a": 2, "m": 3}
	first, err := c.Encode(m)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := c.Encode(m)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("hello"))
	require.NoError(t, err)

	out, err := c.Decode(b)
	require.NoError(t, err)
	assert.True(t, proto.Equal(wrapperspb.String("hello"), out))
}

func TestRawCodecs(t *testing.T) {
	b, _ := Bytes{}.Encode([]byte{1, 2, 3})
	got, _ := Bytes{}.Decode(b)
	assert.Equal(t, []byte{1, 2, 3}, got)

	sb, _ := String{}.Encode("héllo")
	s, _ := String{}.Decode(sb)
	assert.Equal(t, "héllo", s)
}

func TestFunc(t *testing.T) {
	c := Func[int]{
		Enc: func(v int) ([]byte, error) { return []byte(strconv.Itoa(v)), nil },
		Dec: func(b []byte) (int, error) { return strconv.Atoi(string(b)) },
	}
	b, err := c.Encode(12)
	require.NoError(t, err)
	assert.Equal(t, []byte("12"), b)

	v, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, 12, v)

	_, err = c.Decode([]byte("x"))
	assert.Error(t, err)
}

func TestLimit(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 4}

	got, err := c.Decode([]byte("abcd"))
	require.NoError(t, err)
	assert.Equal(t, "abcd", got)

	_, err = c.Decode([]byte("abcde"))
	assert.True(t, errors.Is(err, ErrTooLarge))

	unlimited := Limit[string]{Inner: String{}}
	_, err = unlimited.Decode(make([]byte, 1<<16))
	assert.NoError(t, err)
}

func TestMsgpackSortsMapKeys(t *testing.T) {
	c := Msgpack[map[string]int]{}
	m := map[string]int{"z": 1, "a": 2, "m": 3, "q": 4, "b": 5}
	first, err := c.Encode(m)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := c.Encode(m)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestTrailingDataIsRejected(t *testing.T) {
	b, err := Msgpack[string]{}.Encode("a")
	require.NoError(t, err)
	_, err = Msgpack[string]{}.Decode(append(b, 0xc0))
	assert.ErrorIs(t, err, ErrTrailingData)

	_, err = JSON[map[string]int]{}.Decode([]byte(`{"a":1} {"a":2}`))
	assert.ErrorIs(t, err, ErrTrailingData)

	got, err := JSON[map[string]int]{}.Decode([]byte("{\"a\":1}\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1}, got)
}

func TestJSONKeepsLargeIntegers(t *testing.T) {
	c := JSON[any]{}
	v, err := c.Decode([]byte(`{"id":9007199254740993}`))
	require.NoError(t, err)

	b, err := c.Encode(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":9007199254740993}`, string(b))
	assert.Contains(t, string(b), "9007199254740993")
}

func TestProtobufWithoutConstructor(t *testing.T) {
	var c Protobuf[*wrapperspb.StringValue]
	b, err := c.Encode(wrapperspb.String("x"))
	require.NoError(t, err)

	_, err = c.Decode(b)
	assert.ErrorIs(t, err, errNoCtor)
}

func TestProtobufIsDeterministic(t *testing.T) {
	c := NewProtobuf(func() *structpb.Struct { return &structpb.Struct{} })
	m, err := structpb.NewStruct(map[string]any{"z": 1, "a": "x", "m": true, "k": 2.5})
	require.NoError(t, err)

	first, err := c.Encode(m)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := c.Encode(m)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestBytesDecodeCopies(t *testing.T) {
	frame := []byte{1, 2, 3}
	got, err := Bytes{}.Decode(frame)
	require.NoError(t, err)
	got[0] = 9
	assert.Equal(t, byte(1), frame[0])
}

package counter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrement_CreatesAndAccumulates(t *testing.T) {
	s := NewStore()

	_, err := s.Increment("chung", 2)
	require.NoError(t, err)
	values, err := s.Increment("chung", 2)
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"chung": 4}, values)
}

func TestSubtract_FloorsAtZero(t *testing.T) {
	s := NewStore()
	_, err := s.Increment("chung", 4)
	require.NoError(t, err)

	values, err := s.Subtract("chung", 10)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"chung": 0}, values)

	values, err = s.Subtract("hong", math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, int64(0), values["hong"])
}

func TestFloorAppliesAfterEveryStep(t *testing.T) {
	cases := []struct {
		name   string
		deltas []int64
		want   int64
	}{
		{name: "never below zero", deltas: []int64{3, -5, 2}, want: 2},
		{name: "plain sum", deltas: []int64{1, 1, 1, -1}, want: 2},
		{name: "starts with subtract", deltas: []int64{-4, 1}, want: 1},
		{name: "negative increment", deltas: []int64{2, -9, 0}, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore()
			for _, d := range tc.deltas {
				var err error
				if d >= 0 {
					_, err = s.Increment("x", d)
				} else {
					_, err = s.Subtract("x", -d)
				}
				require.NoError(t, err)
				require.GreaterOrEqual(t, s.Get("x"), int64(0))
			}
			assert.Equal(t, tc.want, s.Get("x"))
		})
	}
}

func TestIncrement_NegativeAmountIsFloored(t *testing.T) {
	s := NewStore()
	values, err := s.Increment("hong", -3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), values["hong"])
}

func TestMissingIDIsRejected(t *testing.T) {
	s := NewStore()

	_, err := s.Increment("", 1)
	assert.ErrorIs(t, err, ErrMissingID)
	_, err = s.Subtract("", 1)
	assert.ErrorIs(t, err, ErrMissingID)
	assert.Empty(t, s.Snapshot())
}

func TestResetAll(t *testing.T) {
	s := NewStore()
	_, _ = s.Increment("hong", 1)
	_, _ = s.Increment("chung", 3)

	s.ResetAll()

	snap := s.Snapshot()
	require.NotNil(t, snap)
	assert.Empty(t, snap)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	_, _ = s.Increment("hong", 1)

	snap := s.Snapshot()
	snap["hong"] = 99

	assert.Equal(t, int64(1), s.Get("hong"))
}

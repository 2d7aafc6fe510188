package matchstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultFor(t *testing.T) {
	cases := []struct {
		winner string
		side   string
		want   Result
	}{
		{winner: "Chung", side: SideChung, want: ResultWin},
		{winner: "chung", side: SideChung, want: ResultWin},
		{winner: "CHUNG", side: SideHong, want: ResultLoss},
		{winner: "Hong", side: SideHong, want: ResultWin},
		{winner: "hong", side: SideChung, want: ResultLoss},
		{winner: "", side: SideHong, want: ResultDraw},
		{winner: "tie", side: SideChung, want: ResultDraw},
	}

	for _, tc := range cases {
		t.Run(tc.winner+"/"+tc.side, func(t *testing.T) {
			assert.Equal(t, tc.want, ResultFor(tc.winner, tc.side))
		})
	}
}

func TestTally(t *testing.T) {
	w, l := Tally(ResultWin)
	assert.Equal(t, [2]int{1, 0}, [2]int{w, l})
	w, l = Tally(ResultLoss)
	assert.Equal(t, [2]int{0, 1}, [2]int{w, l})
	w, l = Tally(ResultDraw)
	assert.Equal(t, [2]int{0, 0}, [2]int{w, l})
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultMatchLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultMatchLimit, NormalizeLimit(-3))
	assert.Equal(t, 25, NormalizeLimit(25))
	assert.Equal(t, 500, NormalizeLimit(10_000))
}

func TestValidateName(t *testing.T) {
	name, err := ValidateName("  Kim  ")
	assert.NoError(t, err)
	assert.Equal(t, "Kim", name)

	_, err = ValidateName("   ")
	assert.ErrorIs(t, err, ErrInvalidName)
}

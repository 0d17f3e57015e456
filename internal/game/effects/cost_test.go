package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReduceRest_DistributesAcrossLeaves(t *testing.T) {
	c := Composite{Parts: []Cost{RestResource{Amount: 2}, DiscardCard{Amount: 1}, RestResource{Amount: 3}}}

	out := ReduceRest(c, 4)

	assert.Equal(t, Composite{Parts: []Cost{RestResource{Amount: 0}, DiscardCard{Amount: 1}, RestResource{Amount: 1}}}, out)
	assert.Equal(t, 5, TotalRest(c))
	assert.Equal(t, 1, TotalDiscard(out))
}

func TestIncreaseRest(t *testing.T) {
	assert.Equal(t, RestResource{Amount: 2}, IncreaseRest(nil, 2))
	assert.Equal(t, RestResource{Amount: 3}, IncreaseRest(RestResource{Amount: 1}, 2))
	assert.Equal(t,
		Composite{Parts: []Cost{DiscardCard{Amount: 1}, RestResource{Amount: 1}}},
		IncreaseRest(DiscardCard{Amount: 1}, 1))
}

func TestIsFree(t *testing.T) {
	assert.True(t, IsFree(nil))
	assert.True(t, IsFree(RestResource{}))
	assert.True(t, IsFree(Composite{}))
	assert.False(t, IsFree(DiscardCard{Amount: 1}))
}

func TestCostString(t *testing.T) {
	c := Composite{Parts: []Cost{RestResource{Amount: 2}, DiscardCard{Amount: 1}}}
	assert.Equal(t, "Composite(RestResource(2), DiscardCard(1))", c.String())
}

package planloom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDays(t *testing.T) {
	output := `Here is your plan.

Day 1: Arrival
- Check in at the hotel
- Step 2: Amber Fort at sunset

**Day 2**
1. City Palace
2) Jantar Mantar

### Day 3:
* Bapu Bazaar shopping
`
	days := ParseDays(output)
	require.Len(t, days, 3)

	assert.Equal(t, "Day 1: Arrival", days[0].Label)
	assert.Equal(t, []string{"Check in at the hotel", "Step 2: Amber Fort at sunset"}, days[0].Steps)

	assert.Equal(t, "Day 2", days[1].Label)
	assert.Equal(t, []string{"City Palace", "Jantar Mantar"}, days[1].Steps)

	assert.Equal(t, "Day 3", days[2].Label)
	assert.Equal(t, []string{"Bapu Bazaar shopping"}, days[2].Steps)
}

func TestParseDaysIgnoresPreamble(t *testing.T) {
	days := ParseDays("- a stray bullet before any day heading\nDay 1:\n- real step")
	require.Len(t, days, 1)
	assert.Equal(t, []string{"real step"}, days[0].Steps)
}

func TestParseDaysNoStructure(t *testing.T) {
	assert.Empty(t, ParseDays("Just go and have fun, no schedule needed."))
}

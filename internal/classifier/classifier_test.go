package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TaskIntake/internal/domain"
)

func TestClassifyDefaultRules(t *testing.T) {
	t.Parallel()

	c := NewDefault()

	cases := []struct {
		message  string
		category domain.Category
		priority int
	}{
		{"Can I submit an expense report?", domain.CategoryFinance, 4},
		{"EXPENSE claim for laptop", domain.CategoryFinance, 4},
		{"reimburse my travelExpenses", domain.CategoryFinance, 4},
		{"Reset my password", domain.CategoryGeneral, 2},
		{"Test task from trial day", domain.CategoryGeneral, 2},
		{"expens", domain.CategoryGeneral, 2},
		{"", domain.CategoryGeneral, 2},
	}

	for _, tc := range cases {
		got := c.Classify(tc.message)
		assert.Equal(t, domain.Classification{Category: tc.category, Priority: tc.priority}, got, tc.message)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	t.Parallel()

	c := NewDefault()
	first := c.Classify("Quarterly Expense summary")
	for i := 0; i < 100; i++ {
		require.Equal(t, first, c.Classify("Quarterly Expense summary"), "iteration %d", i)
	}
}

func TestClassifyFirstRuleWins(t *testing.T) {
	t.Parallel()

	c, err := New([]Rule{
		{Keyword: " Invoice ", Category: "Accounting", Priority: 3},
		{Keyword: "expense", Category: domain.CategoryFinance, Priority: 4},
	}, DefaultFallback())
	require.NoError(t, err)

	assert.Equal(t, domain.Classification{Category: "Accounting", Priority: 3}, c.Classify("expense invoice missing"))
}

func TestNewRejectsInvalidRules(t *testing.T) {
	t.Parallel()

	cases := map[string][]Rule{
		"empty keyword":  {{Keyword: "  ", Category: domain.CategoryFinance, Priority: 4}},
		"empty category": {{Keyword: "expense", Priority: 4}},
		"priority high":  {{Keyword: "expense", Category: domain.CategoryFinance, Priority: 9}},
		"priority zero":  {{Keyword: "expense", Category: domain.CategoryFinance, Priority: 0}},
	}

	for name, rules := range cases {
		_, err := New(rules, DefaultFallback())
		assert.Error(t, err, name)
	}

	_, err := New(nil, domain.Classification{Category: domain.CategoryGeneral, Priority: 7})
	assert.Error(t, err, "invalid fallback")
}

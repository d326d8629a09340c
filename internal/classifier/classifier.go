package classifier

import (
	"fmt"
	"strings"

	"TaskIntake/internal/domain"
	"TaskIntake/internal/ports"
)

// Rule routes messages containing Keyword (case-insensitive) to a category.
type Rule struct {
	Keyword  string
	Category domain.Category
	Priority int
}

// KeywordClassifier applies ordered substring rules; the first match wins.
type KeywordClassifier struct {
	rules    []Rule
	fallback domain.Classification
}

var _ ports.Classifier = (*KeywordClassifier)(nil)

// DefaultRules routes expense questions to Finance.
func DefaultRules() []Rule {
	return []Rule{
		{Keyword: "expense", Category: domain.CategoryFinance, Priority: 4},
	}
}

// DefaultFallback is used when no rule matches.
func DefaultFallback() domain.Classification {
	return domain.Classification{Category: domain.CategoryGeneral, Priority: 2}
}

// NewDefault builds the classifier with the built-in rule set.
func NewDefault() *KeywordClassifier {
	c, _ := New(DefaultRules(), DefaultFallback())
	return c
}

// New validates the rules up front so that Classify never fails.
func New(rules []Rule, fallback domain.Classification) (*KeywordClassifier, error) {
	if err := checkClassification(fallback.Category, fallback.Priority); err != nil {
		return nil, fmt.Errorf("fallback: %w", err)
	}

	normalized := make([]Rule, 0, len(rules))
	for i, rule := range rules {
		keyword := strings.ToLower(strings.TrimSpace(rule.Keyword))
		if keyword == "" {
			return nil, fmt.Errorf("rule %d: empty keyword", i)
		}
		if err := checkClassification(rule.Category, rule.Priority); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, keyword, err)
		}
		normalized = append(normalized, Rule{Keyword: keyword, Category: rule.Category, Priority: rule.Priority})
	}

	return &KeywordClassifier{rules: normalized, fallback: fallback}, nil
}

// Classify returns the category and priority for message.
func (c *KeywordClassifier) Classify(message string) domain.Classification {
	lowered := strings.ToLower(message)
	for _, rule := range c.rules {
		if strings.Contains(lowered, rule.Keyword) {
			return domain.Classification{Category: rule.Category, Priority: rule.Priority}
		}
	}
	return c.fallback
}

func checkClassification(category domain.Category, priority int) error {
	if strings.TrimSpace(string(category)) == "" {
		return fmt.Errorf("empty category")
	}
	if priority < domain.MinPriority || priority > domain.MaxPriority {
		return fmt.Errorf("priority %d outside [%d,%d]", priority, domain.MinPriority, domain.MaxPriority)
	}
	return nil
}

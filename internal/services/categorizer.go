// This file implements transaction categorization: keyword rules first, an
// optional LLM fallback for descriptions the rules do not cover.
package services

import (
	"context"
	"fmt"
	"strings"
)

// Spending categories exposed to the mobile client.
const (
	CategoryGroceries     = "groceries"
	CategoryDining        = "dining"
	CategoryTransport     = "transport"
	CategoryUtilities     = "utilities"
	CategoryEntertainment = "entertainment"
	CategoryShopping      = "shopping"
	CategoryHealth        = "health"
	CategoryTravel        = "travel"
	CategoryIncome        = "income"
	CategoryOther         = "other"
)

// Completer is the LLM surface the categorizer depends on.
type Completer interface {
	Enabled() bool
	Complete(ctx context.Context, prompt string) (string, error)
}

// Categorizer assigns a spending category to a transaction description.
type Categorizer struct {
	rules map[string][]string
	llm   Completer
}

// NewCategorizer builds a categorizer with the default keyword rules. The
// llm may be nil or disabled; only the rules apply then.
func NewCategorizer(llm Completer) *Categorizer {
	return &Categorizer{
		rules: map[string][]string{
			CategoryGroceries:     {"grocery", "supermarket", "market", "wholefoods", "trader joe", "costco", "aldi"},
			CategoryDining:        {"restaurant", "cafe", "coffee", "pizza", "burger", "doordash", "ubereats", "grubhub"},
			CategoryTransport:     {"uber", "lyft", "gas", "fuel", "parking", "transit", "metro", "shell", "chevron"},
			CategoryUtilities:     {"electric", "water", "internet", "phone", "wireless", "utility", "comcast", "verizon"},
			CategoryEntertainment: {"netflix", "spotify", "hulu", "cinema", "theater", "steam", "playstation"},
			CategoryShopping:      {"amazon", "target", "walmart", "ebay", "etsy", "store"},
			CategoryHealth:        {"pharmacy", "cvs", "walgreens", "clinic", "dental", "gym", "fitness"},
			CategoryTravel:        {"airline", "hotel", "airbnb", "flight", "delta", "united", "marriott"},
			CategoryIncome:        {"payroll", "salary", "direct deposit", "deposit"},
		},
		llm: llm,
	}
}

// Categorize resolves a category for the description. The boolean reports
// whether a keyword rule matched; LLM answers also return true when the
// model produced a known category.
func (c *Categorizer) Categorize(ctx context.Context, description string) (string, bool) {
	desc := strings.ToLower(description)
	for category, keywords := range c.rules {
		for _, kw := range keywords {
			if strings.Contains(desc, kw) {
				return category, true
			}
		}
	}

	if c.llm != nil && c.llm.Enabled() {
		if category, err := c.categorizeWithLLM(ctx, description); err == nil {
			return category, true
		}
	}

	return CategoryOther, false
}

func (c *Categorizer) categorizeWithLLM(ctx context.Context, description string) (string, error) {
	categories := make([]string, 0, len(c.rules)+1)
	for category := range c.rules {
		categories = append(categories, category)
	}
	categories = append(categories, CategoryOther)

	prompt := fmt.Sprintf(
		"Classify this bank transaction description into exactly one of these categories: %s.\n\nDescription: %q\n\nReply with the category name only.",
		strings.Join(categories, ", "), description)

	answer, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	if _, ok := c.rules[answer]; ok || answer == CategoryOther {
		return answer, nil
	}
	return "", fmt.Errorf("llm returned unknown category %q", answer)
}

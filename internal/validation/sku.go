// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var skuRegex = regexp.MustCompile(`^[A-Z0-9-]{3,64}$`)

// Prefixes the catalog generates itself.
var reservedSKUPrefixes = []string{"SEED-", "TEST-"}

// NormalizeSKU trims and upper-cases a seller supplied SKU.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// ValidateSKU checks a normalized SKU's format and reserved prefixes.
func ValidateSKU(sku string) error {
	if !skuRegex.MatchString(sku) {
		return fmt.Errorf("sku must be 3-64 characters and contain only letters, numbers, and hyphens")
	}

	if strings.HasPrefix(sku, "-") || strings.HasSuffix(sku, "-") {
		return fmt.Errorf("sku cannot start or end with a hyphen")
	}

	if strings.Contains(sku, "--") {
		return fmt.Errorf("sku cannot contain consecutive hyphens")
	}

	for _, prefix := range reservedSKUPrefixes {
		if strings.HasPrefix(sku, prefix) {
			return fmt.Errorf("sku prefix %q is reserved", prefix)
		}
	}

	return nil
}

package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var groupSlugPattern = regexp.MustCompile(`^[a-z0-9_-]{1,50}$`)

// ValidateGroupSlug validates the URL slug of a group.
func ValidateGroupSlug(slug string) error {
	if !groupSlugPattern.MatchString(slug) {
		return fmt.Errorf("slug must be 1-50 characters and contain only lowercase letters, numbers, underscores, and hyphens")
	}
	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return fmt.Errorf("slug cannot start or end with a hyphen")
	}
	return nil
}

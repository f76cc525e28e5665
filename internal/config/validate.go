package config

import "fmt"

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateRepoKind checks a RepoKind for structural errors, accumulating
// every problem found rather than stopping at the first.
func ValidateRepoKind(kind RepoKind) []ValidationError {
	var errs []ValidationError

	if kind.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "is required"})
	}
	if len(kind.CanonicalFiles) == 0 {
		errs = append(errs, ValidationError{Field: "canonical_files", Message: "at least one canonical file is required"})
	}

	seen := make(map[string]bool)
	for i, f := range kind.CanonicalFiles {
		if f == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("canonical_files[%d]", i),
				Message: "must not be empty",
			})
			continue
		}
		if seen[f] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("canonical_files[%d]", i),
				Message: fmt.Sprintf("duplicate canonical file %q", f),
			})
		}
		seen[f] = true
	}

	if kind.MaxSampleFiles < 0 {
		errs = append(errs, ValidationError{Field: "max_sample_files", Message: "must not be negative"})
	}
	if kind.MaxSampleBytes < 0 {
		errs = append(errs, ValidationError{Field: "max_sample_bytes", Message: "must not be negative"})
	}

	return errs
}

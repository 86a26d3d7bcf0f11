package complexity

// Config controls how list fields are multiplied.
type Config struct {
	// CountArgName is the field argument that carries the number of items a
	// list field returns. Empty disables extraction and every list counts as 1.
	CountArgName string
	// CountMissingArgValue is the count used when the argument is absent or
	// cannot be read as a non-negative integer.
	CountMissingArgValue int
}

// DefaultConfig reads list counts from `first`, falling back to 1.
func DefaultConfig() Config {
	return Config{
		CountArgName:         "first",
		CountMissingArgValue: 1,
	}
}

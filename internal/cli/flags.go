package cli

import (
	"fmt"
	"time"

	"github.com/hackx/skillos/internal/errors"
)

// Flag bounds for the monitor command.
const (
	MinInterval = 100 * time.Millisecond
	MaxCapacity = 10000
)

// ParseInterval parses a refresh interval flag. Returns zero duration if
// the flag is empty so the configured value applies.
func ParseInterval(flag string) (time.Duration, error) {
	if flag == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid interval", flag),
			"Try something like 1s, 500ms, or 2s.")
	}
	if d < MinInterval {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("Interval %s is too short", d),
			fmt.Sprintf("Use at least %s", MinInterval))
	}
	return d, nil
}

// ValidateCapacity checks a --capacity flag. Zero means "use the config".
func ValidateCapacity(n int) error {
	if n < 0 || n > MaxCapacity {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Capacity %d is out of range", n),
			fmt.Sprintf("Use a value between 1 and %d", MaxCapacity))
	}
	return nil
}

package job

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrMissingArgument is returned when a command that needs a process ID
	// was given none.
	ErrMissingArgument = errors.New("process ID not provided")
	// ErrInvalidProcessID is returned for identifiers that are not positive
	// integers, and for signal requests the OS rejected.
	ErrInvalidProcessID = errors.New("process ID not valid")
)

// ParsePID validates operator supplied identifier text. It is the only place
// identifier text is converted to a process ID.
func ParsePID(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrMissingArgument
	}
	pid, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidProcessID, text)
	}
	// pid_t is a 32-bit signed integer; zero and negatives address process
	// groups when passed to kill(2).
	if pid <= 0 || pid > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidProcessID, text)
	}
	return int(pid), nil
}

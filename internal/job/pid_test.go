package job

import (
	"errors"
	"testing"
)

func TestParsePID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  int
		err   error
	}{
		{input: "1234", want: 1234},
		{input: " 42 ", want: 42},
		{input: "", err: ErrMissingArgument},
		{input: "   ", err: ErrMissingArgument},
		{input: "0", err: ErrInvalidProcessID},
		{input: "-5", err: ErrInvalidProcessID},
		{input: "abc", err: ErrInvalidProcessID},
		{input: "12abc", err: ErrInvalidProcessID},
		{input: "2147483648", err: ErrInvalidProcessID},
		{input: "99999999999999999999", err: ErrInvalidProcessID},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParsePID(tt.input)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("ParsePID(%q) error = %v, want %v", tt.input, err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePID(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ParsePID(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

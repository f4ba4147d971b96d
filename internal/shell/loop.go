package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// Run reads command lines from in until EOF or until ctx is cancelled.
// Jobs keep running after Run returns.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		s.printPrompt()
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read command: %w", err)
					}
				default:
				}
				return nil
			}
			s.Execute(line)
		}
	}
}

func (s *Shell) printPrompt() {
	if s.prompt == "" {
		return
	}
	fmt.Fprint(s.out, s.prompt)
}

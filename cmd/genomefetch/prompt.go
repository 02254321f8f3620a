package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"genomefetch/internal/pipeline"
)

const confirmQuestion = "Do you want to continue?: [y/n] "

// promptConfirm asks on in whether to continue. Only an answer of exactly
// "n" declines; anything else, including an empty line or end of input,
// continues.
func promptConfirm(in io.Reader, con *console) pipeline.ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, _ int) (bool, error) {
		con.prompt(confirmQuestion)

		type answer struct {
			line string
			err  error
		}
		done := make(chan answer, 1)
		go func() {
			line, err := reader.ReadString('\n')
			done <- answer{line: line, err: err}
		}()

		select {
		case <-ctx.Done():
			con.println()
			return false, ctx.Err()
		case a := <-done:
			if a.err != nil && !errors.Is(a.err, io.EOF) {
				return false, a.err
			}
			if errors.Is(a.err, io.EOF) {
				con.println()
			}
			return !declines(a.line), nil
		}
	}
}

func declines(answer string) bool {
	return strings.TrimSpace(answer) == "n"
}

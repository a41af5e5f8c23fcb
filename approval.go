package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrStopRequested is returned by an ApprovalGate when the operator asks to
// end the run. The pipeline stops after the current entry.
var ErrStopRequested = errors.New("stop requested at approval prompt")

// ApprovalGate decides whether a summarized entry is delivered
type ApprovalGate interface {
	Approve(entry FeedEntry, summary string) (bool, error)
}

// AutoApprove delivers every entry
type AutoApprove struct{}

func (AutoApprove) Approve(FeedEntry, string) (bool, error) { return true, nil }

// PromptApproval asks on the terminal before each delivery
type PromptApproval struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptApproval reads answers from in and writes prompts to out
func NewPromptApproval(in io.Reader, out io.Writer) *PromptApproval {
	return &PromptApproval{in: bufio.NewReader(in), out: out}
}

func (p *PromptApproval) Approve(entry FeedEntry, summary string) (bool, error) {
	fmt.Fprintf(p.out, "\n%s\n%s\n%s\n", entry.Title, strings.Repeat("─", 60), summary)
	for {
		fmt.Fprintf(p.out, "  Send email for %q? [y/N/q]: ", entry.Title)
		input, err := p.in.ReadString('\n')
		if err != nil && input == "" {
			return false, fmt.Errorf("reading answer: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(input)) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		case "q", "quit":
			return false, ErrStopRequested
		default:
			fmt.Fprintln(p.out, "  Please enter y, n or q.")
			if err != nil {
				return false, fmt.Errorf("reading answer: %w", err)
			}
		}
	}
}

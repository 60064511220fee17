package internal

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

var (
	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

// progressOutput is where spinners are drawn
var progressOutput io.Writer = os.Stderr

// ProgressStep represents a single step in a multi-step process
type ProgressStep struct {
	Message string
	Fn      func() error
}

// ShowProgress runs fn while drawing a spinner with message. Off a terminal
// the message is logged instead.
func ShowProgress(ctx context.Context, message string, fn func() error) error {
	if !isTerminal(progressOutput) {
		LogInfo(message)
		return runWithContext(ctx, fn)
	}
	return showProgressSpinner(ctx, progressOutput, message, fn)
}

// ShowProgressWithSteps shows progress for multiple steps
func ShowProgressWithSteps(ctx context.Context, steps []ProgressStep) error {
	for i, step := range steps {
		msg := fmt.Sprintf("[%d/%d] %s", i+1, len(steps), step.Message)
		if err := ShowProgress(ctx, msg, step.Fn); err != nil {
			return fmt.Errorf("%s: %w", step.Message, err)
		}
	}
	return nil
}

// runWithContext returns fn's error, or ctx's if it ends first
func runWithContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// showProgressSpinner draws the dot spinner frames until fn returns
func showProgressSpinner(ctx context.Context, w io.Writer, message string, fn func() error) error {
	frames := spinner.Dot
	done := make(chan error, 1)
	stop := make(chan struct{})
	spinnerDone := make(chan struct{})

	go func() {
		defer close(spinnerDone)
		ticker := time.NewTicker(frames.FPS)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				frame := frames.Frames[i%len(frames.Frames)]
				fmt.Fprintf(w, "\r%s %s", progressStyle.Render(frame), message)
				i++
			}
		}
	}()

	go func() {
		done <- fn()
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	close(stop)
	<-spinnerDone

	if err != nil {
		fmt.Fprintf(w, "\r%s %s\n", errorStyle.Render("✗"), message)
		return err
	}
	fmt.Fprintf(w, "\r%s %s\n", successStyle.Render("✓"), message)
	return nil
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// PrintSuccess prints a success message to w
func PrintSuccess(w io.Writer, format string, args ...interface{}) {
	printStatus(w, successStyle, "✓", "", format, args...)
}

// PrintError prints an error message to w
func PrintError(w io.Writer, format string, args ...interface{}) {
	printStatus(w, errorStyle, "✗", "ERROR: ", format, args...)
}

// PrintInfo prints an info message to w
func PrintInfo(w io.Writer, format string, args ...interface{}) {
	printStatus(w, progressStyle, "ℹ", "", format, args...)
}

// PrintWarning prints a warning message to w
func PrintWarning(w io.Writer, format string, args ...interface{}) {
	printStatus(w, warningStyle, "⚠", "WARNING: ", format, args...)
}

// printStatus uses the styled symbol on a terminal and the plain prefix
// elsewhere
func printStatus(w io.Writer, style lipgloss.Style, symbol, plain, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if isTerminal(w) {
		fmt.Fprintf(w, "%s %s\n", style.Render(symbol), msg)
		return
	}
	fmt.Fprintf(w, "%s%s\n", plain, msg)
}

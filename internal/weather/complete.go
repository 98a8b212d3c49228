package weather

import (
	"fmt"
	"io"
	"os"
)

// Completion is the result of the post-run artifact check.
type Completion struct {
	Missing []string
}

// OK reports whether every expected artifact exists.
func (c Completion) OK() bool {
	return len(c.Missing) == 0
}

// CheckOutputs checks each path independently, keeping the argument order for missing ones.
// It never fails; a stat error other than not-exist also counts as missing.
func CheckOutputs(paths ...string) Completion {
	var c Completion
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			c.Missing = append(c.Missing, p)
		}
	}
	return c
}

// Report writes the human-readable completion message.
func (c Completion) Report(w io.Writer) error {
	if c.OK() {
		_, err := fmt.Fprintln(w, "All steps completed successfully!")
		return err
	}
	if _, err := fmt.Fprintln(w, "The following files are missing:"); err != nil {
		return err
	}
	for _, p := range c.Missing {
		if _, err := fmt.Fprintln(w, p); err != nil {
			return err
		}
	}
	return nil
}

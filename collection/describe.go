package collection

import (
	"fmt"
	"io"
	"strings"

	"github.com/mensylisir/xmbuild/step"
)

// Describe writes the entries of the collection as an indented tree,
// including attached rollbacks and completions and nested collections.
func (c *Collection) Describe(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s\n", c.Path()); err != nil {
		return err
	}
	return c.describe(w, 1)
}

func (c *Collection) describe(w io.Writer, depth int) error {
	indent := strings.Repeat("  ", depth)
	for i, e := range c.entries {
		nested, isCollection := step.Unwrap(e.step).(*Collection)
		desc := e.step.Description()
		if isCollection {
			desc = fmt.Sprintf("collection (%d entries)", nested.Len())
		}
		if _, err := fmt.Fprintf(w, "%s[%d] %s: %s\n", indent, i+1, e.label(i), desc); err != nil {
			return err
		}
		for _, r := range e.rollbacks {
			if _, err := fmt.Fprintf(w, "%s    rollback: %s\n", indent, r.Description()); err != nil {
				return err
			}
		}
		for _, cp := range e.completions {
			if _, err := fmt.Fprintf(w, "%s    completion: %s\n", indent, cp.Description()); err != nil {
				return err
			}
		}
		if isCollection {
			if err := nested.describe(w, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

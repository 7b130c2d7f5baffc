package export

import "fmt"

// Dataset is an ordered table ready for rendering.
type Dataset struct {
	Title    string
	Subtitle string
	Headers  []string
	Rows     [][]string
}

func (d Dataset) validate(format string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", format)
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("%s row %d has %d cells, want %d", format, i, len(row), len(d.Headers))
		}
	}
	return nil
}

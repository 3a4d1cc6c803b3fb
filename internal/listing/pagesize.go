package listing

// PageSizer picks the grid page size from the viewport width
type PageSizer struct {
	Narrow     int
	Wide       int
	Breakpoint int
}

// For returns Narrow below the breakpoint and Wide otherwise. A zero width
// (unknown viewport) gets the wide size.
func (p PageSizer) For(width int) int {
	if width > 0 && width < p.Breakpoint {
		return positive(p.Narrow)
	}
	return positive(p.Wide)
}

func positive(n int) int {
	if n < 1 {
		return DefaultPageSize
	}
	return n
}

package core

import "math"

// Page is one slice of the global balance listing.
type Page struct {
	Items  []BalanceEntry
	Number int
	Size   int
	Total  int64
}

// Offset returns the row offset of a 1-indexed page, or ErrInvalidPage.
// Offsets that do not fit in an int saturate at math.MaxInt, which lies past
// the end of any listing.
func Offset(page, size int) (int, error) {
	if page < 1 || size < 1 {
		return 0, ErrInvalidPage
	}
	if page-1 > math.MaxInt/size {
		return math.MaxInt, nil
	}
	return (page - 1) * size, nil
}

// Pages returns the number of pages needed for the total.
func (p Page) Pages() int {
	if p.Size < 1 || p.Total == 0 {
		return 0
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}

func (p Page) HasPrev() bool { return p.Number > 1 }

func (p Page) HasNext() bool { return p.Number < p.Pages() }

package domain

// Page selects a window of a list, pages are numbered from 1.
type Page struct {
	Number int
	Size   int
}

func NewPage(pageNumber, pageSize int) Page {
	pNumber := 1
	if pageNumber > 0 {
		pNumber = pageNumber
	}

	pSize := 10
	if pageSize > 0 {
		pSize = pageSize
	}

	return Page{
		Number: pNumber,
		Size:   pSize,
	}
}

// Offset returns the number of items preceding the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// Bounds returns the [start, end) range of the page over total items.
func (p Page) Bounds(total int) (int, int) {
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.Size
	if end > total {
		end = total
	}
	return start, end
}

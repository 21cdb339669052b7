package query

// SortDirection is the direction of an order clause.
type SortDirection int

const (
	Asc SortDirection = iota
	Desc
)

func (d SortDirection) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// Sort orders results by one column.
type Sort struct {
	Column    string
	Direction SortDirection
}

// NewSort returns a Sort.
func NewSort(column string, direction SortDirection) Sort {
	return Sort{Column: column, Direction: direction}
}

// ToQuery renders the sort, e.g. `order=created_at.desc`.
// The column is emitted as given.
func (s Sort) ToQuery() string {
	return "order=" + s.Column + "." + s.Direction.String()
}

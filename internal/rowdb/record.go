package rowdb

// Record is the only capability the store asks of a stored value: a
// mutable integer identifier. The engine assigns it on Insert and it stays
// unique for the lifetime of the backing file.
type Record interface {
	GetId() int32
	SetId(id int32)
}

// SortOrder selects the direction of Store.Sort.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

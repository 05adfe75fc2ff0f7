package store

// ReadStoreInterface is the query side the projector writes and handlers read
type ReadStoreInterface interface {
	Set(collection, id string, data any)
	Get(collection, id string) (any, bool)
	GetAll(collection string) []any
	Find(collection string, match func(any) bool) (any, bool)
	Delete(collection, id string)
	Take(collection, id string) (any, bool)
	Update(collection, id string, updateFn func(current any) any) bool
}

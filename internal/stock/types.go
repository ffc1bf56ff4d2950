package stock

// Stock is a single product's stock record. Quantity is mutated exclusively
// through Reserve/Release; Version increases by exactly one per successful
// mutation and is the CAS token callers must present to retry safely. Name
// and Description are catalog data carried alongside the reservation record
// so order responses can be populated without a separate product lookup.
type Stock struct {
	ID          string
	ProductID   string
	Name        string
	Description string
	Quantity    int64
	Version     int64
}

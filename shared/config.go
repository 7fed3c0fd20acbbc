package shared

const (
	// Port numbers
	CoordinatorPort = "1234"

	LocalCoordinatorAddr = "localhost:1234" // rank 0 in a generated local cluster file

	CoordinatorRank = 0

	// Matrix dimensions used when m, n, q are omitted
	DefaultDim  = 16
	DefaultSeed = 42

	ReportFile = "output.txt"

	// Report cell markers
	ErrorMarker         = "ERROR FOUND"
	UnimplementedMarker = "N/A"
)

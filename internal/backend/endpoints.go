package backend

// Endpoints contains REST API endpoint paths.
type Endpoints struct {
	ConnectionTest string // e.g., "/api/connection-test"
	Execute        string // e.g., "/api/execute"
	Schema         string // e.g., "/api/schema/"; the database name is appended
	Health         string // e.g., "/api/health"
}

// DefaultEndpoints returns the paths served by the reference backend and by `sqlbench serve`.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		ConnectionTest: "/api/connection-test",
		Execute:        "/api/execute",
		Schema:         "/api/schema/",
		Health:         "/api/health",
	}
}

// DefaultSchemaName is the path segment used when no database is selected.
const DefaultSchemaName = "default"

package toolstore

// Origin indicates where a tool's source came from.
type Origin string

const (
	// OriginLocal marks tools authored by the local conversational loop.
	OriginLocal Origin = "local"
	// OriginRemote marks tools received from a peer and approved.
	OriginRemote Origin = "remote"
)

// Tool is a named, persisted unit of script source. The name doubles as the
// callable's identifier inside the namespace.
type Tool struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Origin Origin `json:"origin"`
}

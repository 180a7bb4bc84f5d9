package domain

type GraphNodeType string

const (
	GraphNodeMain     GraphNodeType = "main"
	GraphNodeDirect   GraphNodeType = "direct"
	GraphNodeOptional GraphNodeType = "optional"
)

type GraphLinkType string

const (
	GraphLinkRequired GraphLinkType = "required"
	GraphLinkOptional GraphLinkType = "optional"
)

type GraphNode struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Version     string        `json:"version"`
	Type        GraphNodeType `json:"type"`
	Description string        `json:"description"`
}

type GraphLink struct {
	Source string        `json:"source"`
	Target string        `json:"target"`
	Type   GraphLinkType `json:"type"`
}

// DependencyGraph is the node/link form of one package's requirement
// tree, shaped for direct rendering by the dashboard.
type DependencyGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

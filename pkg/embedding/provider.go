package embedding

// Task types passed to providers that distinguish document vs query embeddings.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

type Values struct {
	Values []float32 `json:"values"`
}

type Response struct {
	Embedding Values `json:"embedding"`
}

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(text string, taskType string) (*Response, error)
}

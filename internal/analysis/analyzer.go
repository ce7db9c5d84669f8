package analysis

// Turn roles mirror the wire roles used by the generative APIs
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one prior conversation message replayed to the model
type Turn struct {
	Role  string
	Text  string
	Image []byte // optional attached image, raw bytes as captured
}

// Prompt is a fully composed request payload for a generative model.
// All context is carried in the prompt itself; calls are stateless.
type Prompt struct {
	System      string  // system instruction, includes the language directive
	History     []Turn  // prior turns in send order, oldest first
	Text        string  // the new instruction or message
	Image       []byte  // optional inline image for the new turn
	ImageType   string  // content type of Image as reported by the capture boundary
	Temperature float32 // 0 means provider default
	MaxTokens   int32   // 0 means provider default
}

// Analyzer defines the interface for generative AI providers
type Analyzer interface {
	// Generate sends a composed prompt and returns the raw text reply
	Generate(prompt Prompt) (string, error)
	// Close closes the analyzer and releases resources
	Close() error
}

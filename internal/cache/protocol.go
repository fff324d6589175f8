package cache

// JSON protocol between the server and the cache daemon over a Unix domain
// socket. One request -> one response, newline-delimited via
// json.Encoder/Decoder.

const (
	OpGet    = "get"
	OpSet    = "set"
	OpRemove = "remove"
)

type Request struct {
	Op    string `json:"op"` // OpGet | OpSet | OpRemove
	Key   string `json:"key"`
	Value []byte `json:"value,omitempty"`
}

type Response struct {
	OK    bool   `json:"ok"`
	Value []byte `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

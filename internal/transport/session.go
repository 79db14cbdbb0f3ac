package transport

// Session holds the connection state of a single client instance. It is
// owned and mutated exclusively by the Client; Connected and Extensions
// expose read-only views of it.
type Session struct {
	Host        string
	Port        string
	Connected   bool
	UseExtended bool
	Extensions  []string
}

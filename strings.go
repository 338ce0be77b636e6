package h2

// Pseudo-header and common wire-string constants, kept as []byte to
// avoid an allocation every time a header field is compared or built.
var (
	stringPath          = []byte(":path")
	stringMethod        = []byte(":method")
	stringScheme        = []byte(":scheme")
	stringAuthority     = []byte(":authority")
	stringStatus        = []byte(":status")
	stringContentLength = []byte("content-length")
	stringContentType   = []byte("content-type")
	stringUserAgent     = []byte("user-agent")
	stringGET           = []byte("GET")
	stringHEAD          = []byte("HEAD")
	stringPOST          = []byte("POST")

	// defaultUserAgent is sent when a request carries no User-Agent of
	// its own.
	defaultUserAgent = []byte("turbohttp-h2/1.0")
)

// sensitiveHeaders never get an indexed or literal-with-indexing HPACK
// representation: RFC 7541 §7.1.3 treats anything that could carry a
// credential as a confidentiality hazard in the dynamic table.
var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"cookie":              true,
	"set-cookie":          true,
	"proxy-authorization": true,
}

// connPreface is the fixed client connection preface.
//
// https://tools.ietf.org/html/rfc7540#section-3.5
var connPreface = []byte("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n")

const (
	// ALPNProto is the protocol id negotiated over TLS-ALPN.
	ALPNProto = "h2"
)


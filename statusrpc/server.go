package statusrpc

import (
	"io"
	"net"
	"net/http"
	"net/rpc"
	"net/rpc/jsonrpc"
	"strings"

	"github.com/op/go-logging"
	"github.com/rs/cors"
)

var log = logging.MustGetLogger("statusrpc")

// Server is a net/rpc server reachable over HTTP, the same shape
// seeleteam-go-seele/rpc/httpserver.go wraps in CORS and a host filter:
// POST for browser JSON-RPC clients, CONNECT for Go net/rpc clients that
// want the raw connection.
type Server struct {
	rpc *rpc.Server
}

// NewServer registers service under the name "Status" and wraps the
// resulting handler in rs/cors and a Host-header whitelist, mirroring
// NewHTTPServer's (server, handler) return shape.
func NewServer(service *StatusService, allowedOrigins []string, allowedHosts []string) (*Server, http.Handler, error) {
	server := &Server{rpc: rpc.NewServer()}
	if err := server.rpc.RegisterName("Status", service); err != nil {
		return nil, nil, err
	}

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodConnect},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})

	whitelist := make(map[string]struct{}, len(allowedHosts))
	for _, h := range allowedHosts {
		whitelist[strings.ToLower(h)] = struct{}{}
	}

	return server, &hostFilter{hosts: whitelist, handler: c.Handler(server)}, nil
}

// ServeHTTP answers RPC requests: POST carries one JSON-RPC request per
// body (for browser-style clients), CONNECT hands the raw connection to
// the underlying net/rpc server (for Go net/rpc clients dialing over HTTP).
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodConnect:
		s.rpc.ServeHTTP(w, req)
	case http.MethodPost:
		w.Header().Set("Content-Type", "application/json")
		conn := &httpReadWriteCloser{req.Body, w}
		s.rpc.ServeRequest(jsonrpc.NewServerCodec(conn))
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusMethodNotAllowed)
		io.WriteString(w, "405 must POST or CONNECT\n")
	}
}

type httpReadWriteCloser struct {
	io.Reader
	io.Writer
}

func (httpReadWriteCloser) Close() error { return nil }

// hostFilter rejects requests whose Host header is not on the whitelist,
// the same DNS-rebinding guard httpserver.go's hostFilter implements.
type hostFilter struct {
	hosts   map[string]struct{}
	handler http.Handler
}

func (h *hostFilter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.allowed(r) {
		h.handler.ServeHTTP(w, r)
		return
	}
	http.Error(w, "invalid host name", http.StatusForbidden)
}

func (h *hostFilter) allowed(r *http.Request) bool {
	if r.Host == "" || len(h.hosts) == 0 {
		return true
	}
	if _, ok := h.hosts["*"]; ok {
		return true
	}

	host, _, err := net.SplitHostPort(r.Host)
	if err != nil {
		host = r.Host
	}
	if ip := net.ParseIP(host); ip != nil {
		return true
	}

	_, ok := h.hosts[strings.ToLower(host)]
	return ok
}

package cache

import (
	"encoding/json"
	"errors"
	"net"

	"github.com/extractio/extractio/internal/logger"
)

// Serve accepts connections on l and answers protocol requests against kv
// until l is closed.
func Serve(l net.Listener, kv KV) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Warnf("cache daemon accept: %v", err)
			continue
		}
		go handleConn(conn, kv)
	}
}

func handleConn(conn net.Conn, kv KV) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		_ = enc.Encode(handle(kv, req))
	}
}

func handle(kv KV, req Request) Response {
	switch req.Op {
	case OpGet:
		v, err := kv.Get(req.Key)
		if err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true, Value: v}
	case OpSet:
		if err := kv.Set(req.Key, req.Value); err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true}
	case OpRemove:
		if err := kv.Remove(req.Key); err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true}
	default:
		return Response{OK: false, Error: "unknown op"}
	}
}

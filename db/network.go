package db

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

// PeerClient fetches the payload of a record whose host of origin
// is a remote participant in a network-shared database.
type PeerClient interface {
	Fetch(host HostID, tag Tag) ([]byte, error)
}

// fetchRequest/fetchResponse are the small JSON messages exchanged
// over a single long-lived websocket connection per peer host; the
// database has no notion of a wire schema beyond "ask for a tag,
// get back bytes or an error string."
type fetchRequest struct {
	Tag Tag `json:"tag"`
}

type fetchResponse struct {
	Data  []byte `json:"data"`
	Error string `json:"error,omitempty"`
}

// WSPeerClient is a PeerClient that dials one websocket connection
// per peer host the first time that host is referenced, and reuses
// it for subsequent fetches. Requests on a given connection are
// serialized: the record-fetch path is already an explicit
// suspension point (spec.md §5), so there is no benefit to
// pipelining multiple in-flight requests per connection here.
type WSPeerClient struct {
	// Dial resolves a HostID to a websocket URL. It is supplied by
	// the caller because host/address mapping is a deployment
	// concern outside the database's purview.
	Dial func(host HostID) (url string, err error)

	mu    sync.Mutex
	conns map[HostID]*websocket.Conn
}

// NewWSPeerClient creates a PeerClient that dials peers on demand
// using resolve.
func NewWSPeerClient(resolve func(HostID) (string, error)) *WSPeerClient {
	return &WSPeerClient{Dial: resolve, conns: make(map[HostID]*websocket.Conn)}
}

func (c *WSPeerClient) conn(host HostID) (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conn, ok := c.conns[host]; ok {
		return conn, nil
	}
	raw, err := c.Dial(host)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}
	c.conns[host] = conn
	return conn, nil
}

// Fetch requests tag's payload from host over that host's websocket
// connection, dialing it lazily on first use.
func (c *WSPeerClient) Fetch(host HostID, tag Tag) ([]byte, error) {
	conn, err := c.conn(host)
	if err != nil {
		return nil, fmt.Errorf("db: dial peer host %d: %w", host, err)
	}
	if err := conn.WriteJSON(fetchRequest{Tag: tag}); err != nil {
		c.drop(host)
		return nil, fmt.Errorf("db: request tag %d from host %d: %w", tag, host, err)
	}
	var resp fetchResponse
	if err := conn.ReadJSON(&resp); err != nil {
		c.drop(host)
		return nil, fmt.Errorf("db: read reply for tag %d from host %d: %w", tag, host, err)
	}
	if resp.Error != "" {
		return nil, newDBErr("peer host " + fmt.Sprint(uint32(host)) + ": " + resp.Error)
	}
	return resp.Data, nil
}

func (c *WSPeerClient) drop(host HostID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conn, ok := c.conns[host]; ok {
		_ = conn.Close()
		delete(c.conns, host)
	}
}

// Close closes every open peer connection.
func (c *WSPeerClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for host, conn := range c.conns {
		if err := conn.Close(); err != nil && first == nil {
			first = err
		}
		delete(c.conns, host)
	}
	return first
}

// ServePeer is the server side of the same protocol: it answers
// fetch requests for tags local to db by reading the encoding
// callers pass in. It is exposed so that a host that originates
// records can let peers pull them, without this package having to
// know anything about HTTP routing.
func ServePeer(conn *websocket.Conn, db *Database) error {
	for {
		var req fetchRequest
		if err := conn.ReadJSON(&req); err != nil {
			return err
		}
		data, err := db.Access(req.Tag)
		var resp fetchResponse
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Data = append([]byte(nil), data...)
			_ = db.End(req.Tag)
		}
		if err := conn.WriteJSON(resp); err != nil {
			return err
		}
	}
}

package notify

import "sync"

// TypeCommentsUpdated tells peers that the shared comment list changed and
// should be re-read.
const TypeCommentsUpdated = "comments_updated"

// Message is a change signal exchanged between ports.
type Message struct {
	Type string `json:"type"`
}

// Hub connects ports that share one origin. A message posted on a port
// reaches every other joined port but never the sender.
type Hub struct {
	mu    sync.Mutex
	ports map[*Port]struct{}
}

// NewHub creates a hub with no ports.
func NewHub() *Hub {
	return &Hub{ports: make(map[*Port]struct{})}
}

// Join attaches a new port to the hub.
func (h *Hub) Join() *Port {
	p := &Port{hub: h, listeners: NewDispatcher[Message]()}
	h.mu.Lock()
	h.ports[p] = struct{}{}
	h.mu.Unlock()
	return p
}

// Port is one participant on a hub.
type Port struct {
	hub       *Hub
	listeners *Dispatcher[Message]
}

// Post delivers m to the listeners of every other port.
func (p *Port) Post(m Message) {
	p.hub.mu.Lock()
	peers := make([]*Port, 0, len(p.hub.ports))
	for peer := range p.hub.ports {
		if peer != p {
			peers = append(peers, peer)
		}
	}
	p.hub.mu.Unlock()

	for _, peer := range peers {
		peer.listeners.Publish(m)
	}
}

// Listen registers fn for messages posted by other ports.
func (p *Port) Listen(fn func(Message)) (cancel func()) {
	l := p.listeners.Add(fn)
	return l.Cancel
}

// Close detaches the port and cancels its listeners.
func (p *Port) Close() {
	p.hub.mu.Lock()
	delete(p.hub.ports, p)
	p.hub.mu.Unlock()
	p.listeners.Close()
}

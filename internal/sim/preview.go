package sim

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcpixel/internal/color"
	"github.com/coreman2200/arcpixel/internal/diagnostics"
	"github.com/coreman2200/arcpixel/internal/layout"
	"github.com/coreman2200/arcpixel/internal/led"
)

const writeWait = 200 * time.Millisecond

// Preview broadcasts calibrated frames to websocket clients. Clients get the
// topology once on connect, then one frame message per Show.
type Preview struct {
	chip   led.Chip
	layout *layout.Layout

	mu          sync.Mutex
	rgb         []byte
	frameID     uint64
	startTime   time.Time
	closed      bool
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
}

func NewPreview(l *layout.Layout, chip led.Chip) *Preview {
	return &Preview{
		chip:        chip,
		layout:      l,
		rgb:         make([]byte, l.Len()*3),
		startTime:   time.Now(),
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
	}
}

func (p *Preview) Chip() led.Chip  { return p.chip }
func (p *Preview) PixelCount() int { return p.layout.Len() }

// Handler serves /ws/frames, /ws/diag and /health.
func (p *Preview) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/frames", p.HandleFramesWS)
	mux.HandleFunc("/ws/diag", p.HandleDiagWS)
	mux.HandleFunc("/health", p.HandleHealth)
	return mux
}

func (p *Preview) Show(ctx context.Context, colors []color.Color, brightness float64, corr color.Correction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return diagnostics.ErrSimulationClosed
	}
	if len(colors) != p.layout.Len() {
		return diagnostics.Encodingf("sim.Preview", "got %d colors, layout has %d", len(colors), p.layout.Len())
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, c := range colors {
		r, g, b := color.Calibrate(c, brightness, corr).RGB255()
		p.rgb[i*3+0], p.rgb[i*3+1], p.rgb[i*3+2] = r, g, b
	}
	p.frameID++
	p.broadcastFrame()
	return nil
}

func (p *Preview) ShowAsync(ctx context.Context, colors []color.Color, brightness float64, corr color.Correction) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- p.Show(ctx, colors, brightness, corr) }()
	return ch
}

// Close disconnects every client. Show fails with ErrSimulationClosed after.
func (p *Preview) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for _, set := range []map[*websocket.Conn]bool{p.clients, p.diagClients} {
		for c := range set {
			_ = c.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "preview closed"),
				time.Now().Add(writeWait))
			c.Close()
			delete(set, c)
		}
	}
	return nil
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func (p *Preview) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		conn.Close()
		return
	}
	p.clients[conn] = true
	p.sendTopology(conn)
	p.mu.Unlock()
	go p.readUntilClosed(conn, p.clients)
}

func (p *Preview) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		conn.Close()
		return
	}
	p.diagClients[conn] = true
	p.mu.Unlock()
	go p.readUntilClosed(conn, p.diagClients)
}

// readUntilClosed drains the client so close frames are processed.
func (p *Preview) readUntilClosed(conn *websocket.Conn, set map[*websocket.Conn]bool) {
	defer func() {
		p.mu.Lock()
		delete(set, conn)
		p.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (p *Preview) HandleHealth(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	resp := map[string]any{
		"frame_id": p.frameID,
		"uptime_s": time.Since(p.startTime).Seconds(),
		"count":    p.layout.Len(),
		"chip":     p.chip.Name,
		"clients":  len(p.clients),
		"closed":   p.closed,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// PushDiag sends d to every diagnostics client.
func (p *Preview) PushDiag(d diagnostics.Diagnostic) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, _ := json.Marshal(d)
	for c := range p.diagClients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write diagnostic")
		}
	}
}

type topology struct {
	Chip      string       `json:"chip"`
	Count     int          `json:"count"`
	Positions [][3]float64 `json:"positions"`
	Min       [3]float64   `json:"min"`
	Max       [3]float64   `json:"max"`
}

type frameMsg struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	RGB     []byte `json:"rgb"`
}

// sendTopology is called with p.mu held.
func (p *Preview) sendTopology(conn *websocket.Conn) {
	top := topology{Chip: p.chip.Name, Count: p.layout.Len()}
	for _, pos := range p.layout.Positions() {
		top.Positions = append(top.Positions, [3]float64{pos.X, pos.Y, pos.Z})
	}
	lo, hi := p.layout.Bounds()
	top.Min, top.Max = [3]float64{lo.X, lo.Y, lo.Z}, [3]float64{hi.X, hi.Y, hi.Z}
	b, _ := json.Marshal(top)
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Debug().Err(err).Msg("write topology")
	}
}

// broadcastFrame is called with p.mu held.
func (p *Preview) broadcastFrame() {
	if len(p.clients) == 0 {
		return
	}
	b, _ := json.Marshal(frameMsg{T: time.Now().UnixNano(), FrameID: p.frameID, RGB: p.rgb})
	for c := range p.clients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
}

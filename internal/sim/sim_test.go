package sim

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	stdcolor "image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/arcpixel/internal/color"
	"github.com/coreman2200/arcpixel/internal/diagnostics"
	"github.com/coreman2200/arcpixel/internal/layout"
	"github.com/coreman2200/arcpixel/internal/led"
)

type fakeDrawer struct {
	bounds image.Rectangle
	last   image.Image
	err    error
	halted bool
}

func (f *fakeDrawer) String() string             { return "fake" }
func (f *fakeDrawer) ColorModel() stdcolor.Model { return stdcolor.NRGBAModel }
func (f *fakeDrawer) Bounds() image.Rectangle    { return f.bounds }

func (f *fakeDrawer) Halt() error {
	f.halted = true
	return nil
}

func (f *fakeDrawer) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	f.last = src
	return f.err
}

func TestConsole(t *testing.T) {
	d := &fakeDrawer{bounds: image.Rect(0, 0, 3, 1)}
	c := NewConsoleDrawer(led.WS2812, 3, d)
	assert.Equal(t, 3, c.PixelCount())

	err := c.Show(context.Background(), []color.Color{color.Red, color.Green, color.White}, 0.5, color.Identity)
	require.NoError(t, err)
	img := d.last.(*image.NRGBA)
	assert.Equal(t, stdcolor.NRGBA{R: 128, A: 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, stdcolor.NRGBA{G: 128, A: 255}, img.NRGBAAt(1, 0))
	assert.Equal(t, stdcolor.NRGBA{R: 128, G: 128, B: 128, A: 255}, img.NRGBAAt(2, 0))

	assert.ErrorIs(t, c.Show(context.Background(), nil, 1, color.Identity), diagnostics.ErrEncoding)

	d.err = errors.New("tty gone")
	assert.ErrorIs(t, <-c.ShowAsync(context.Background(), make([]color.Color, 3), 1, color.Identity), diagnostics.ErrTransport)

	require.NoError(t, c.Close())
	assert.True(t, d.halted)
	assert.ErrorIs(t, c.Show(context.Background(), make([]color.Color, 3), 1, color.Identity), diagnostics.ErrSimulationClosed)
	assert.NoError(t, c.Close())
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestPreview(t *testing.T) {
	l := layout.MustNew(4, layout.Strip(4))
	p := NewPreview(l, led.APA102)
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	frames := dial(t, srv, "/ws/frames")
	var top topology
	require.NoError(t, frames.ReadJSON(&top))
	assert.Equal(t, "apa102", top.Chip)
	assert.Equal(t, 4, top.Count)
	require.Len(t, top.Positions, 4)
	assert.Equal(t, [3]float64{1, 0, 0}, top.Max)

	colors := []color.Color{color.Red, color.Green, color.Blue, color.White}
	require.NoError(t, p.Show(context.Background(), colors, 1, color.Identity))
	var f frameMsg
	require.NoError(t, frames.ReadJSON(&f))
	assert.Equal(t, uint64(1), f.FrameID)
	assert.Equal(t, []byte{255, 0, 0, 0, 255, 0, 0, 0, 255, 255, 255, 255}, f.RGB)

	diag := dial(t, srv, "/ws/diag")
	// the diag client registers asynchronously with the upgrade
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.diagClients) == 1
	}, 5*time.Second, 10*time.Millisecond)
	p.PushDiag(diagnostics.FromError(diagnostics.Transport("test", errors.New("unplugged"))))
	var d diagnostics.Diagnostic
	require.NoError(t, diag.ReadJSON(&d))
	assert.Equal(t, "LED.TRANSPORT", d.Code)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, float64(1), health["frame_id"])
	assert.Equal(t, float64(4), health["count"])
	assert.Equal(t, false, health["closed"])

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Show(context.Background(), colors, 1, color.Identity), diagnostics.ErrSimulationClosed)
	assert.ErrorIs(t, <-p.ShowAsync(context.Background(), colors, 1, color.Identity), diagnostics.ErrSimulationClosed)
	_, _, err = frames.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

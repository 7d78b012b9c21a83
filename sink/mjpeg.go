package sink

import (
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// MJPEG encodes the annotated color stream as JPEG and broadcasts it to any
// number of HTTP clients as a multipart stream
type MJPEG struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
	log     logrus.FieldLogger
}

// NewMJPEG returns an empty hub
func NewMJPEG(log logrus.FieldLogger) *MJPEG {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MJPEG{
		clients: make(map[chan []byte]struct{}),
		log:     log,
	}
}

// Name implements Sink
func (m *MJPEG) Name() string {
	return "mjpeg"
}

// Clients returns the number of connected viewers
func (m *MJPEG) Clients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// Write implements Sink.  The frame is only encoded when a viewer is
// connected and slow viewers skip frames.
func (m *MJPEG) Write(p *Presentation) error {

	if m.Clients() == 0 || p.Color.Empty() {
		return nil
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, p.Color)

	if err != nil {
		return err
	}

	// copy out of C memory before handing to other goroutines
	jpg := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	for ch := range m.clients {
		select {
		case ch <- jpg:
		default:
		}
	}

	return nil
}

// Subscribe registers a viewer and returns its frame channel
func (m *MJPEG) Subscribe() chan []byte {
	ch := make(chan []byte, 1)

	m.mu.Lock()
	m.clients[ch] = struct{}{}
	m.mu.Unlock()

	return ch
}

// Unsubscribe removes a viewer
func (m *MJPEG) Unsubscribe(ch chan []byte) {
	m.mu.Lock()
	delete(m.clients, ch)
	m.mu.Unlock()
}

// ServeHTTP streams frames to the client until it disconnects
func (m *MJPEG) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	m.log.WithField("remote", r.RemoteAddr).Info("stream client connected")

	ch := m.Subscribe()
	defer m.Unsubscribe(ch)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			m.log.WithField("remote", r.RemoteAddr).Info("stream client disconnected")
			return

		case jpg := <-ch:
			w.Write([]byte("--frame\r\n"))
			w.Write([]byte("Content-Type: image/jpeg\r\n\r\n"))
			w.Write(jpg)
			w.Write([]byte("\r\n"))

			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// Close implements Sink, connected viewers stay open until they disconnect
func (m *MJPEG) Close() error {
	return nil
}

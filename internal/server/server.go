package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mixcap/mixcap/internal/capture"
	"github.com/mixcap/mixcap/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512 * 1024
)

// Request is one control message from a client.
type Request struct {
	Type    string           `json:"type"`
	ID      string           `json:"id,omitempty"`
	Options *capture.Options `json:"options,omitempty"`
	TrackID string           `json:"trackId,omitempty"`
}

// Response carries replies and pushed events.
type Response struct {
	Type     string       `json:"type"`
	ID       string       `json:"id,omitempty"`
	Devices  any          `json:"devices,omitempty"`
	Captures []string     `json:"captures,omitempty"`
	Result   *eventResult `json:"result,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// eventResult summarizes a finished capture for the socket. Raw bytes stay
// in the blob store; clients fetch payloads by blob URL out of band.
type eventResult struct {
	CaptureID   string            `json:"captureId"`
	ContentType string            `json:"contentType"`
	Channels    map[string]string `json:"channels"` // channel name -> blob url
}

// Server hosts the websocket control channel over a capture service.
type Server struct {
	svc      *capture.Service
	upgrader websocket.Upgrader
	log      *slog.Logger
	httpSrv  *http.Server

	mu       sync.Mutex
	active   map[string]bool // capture ids started through this server
	connsMu  sync.Mutex
	conns    map[*conn]bool
}

type conn struct {
	ws *websocket.Conn
	mu sync.Mutex // serializes writes
}

func (c *conn) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

// New creates a control server over a capture service.
func New(svc *capture.Service) *Server {
	return &Server{
		svc:    svc,
		log:    logging.L("server"),
		active: make(map[string]bool),
		conns:  make(map[*conn]bool),
	}
}

// ListenAndServe serves the control channel on addr until the context is
// canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/blob/", s.handleBlob)

	s.httpSrv = &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
	}()

	s.log.Info("Control server listening", "addr", addr)
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// handleBlob resolves a transient payload URL to its bytes.
func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	url := "blob:mixcap/" + r.URL.Path[len("/blob/"):]
	blob, ok := s.svc.Blobs().Resolve(url)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", blob.ContentType)
	_, _ = w.Write(blob.Data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", logging.KeyError, err)
		return
	}
	c := &conn{ws: ws}
	s.connsMu.Lock()
	s.conns[c] = true
	s.connsMu.Unlock()

	defer func() {
		s.connsMu.Lock()
		delete(s.conns, c)
		s.connsMu.Unlock()
		ws.Close()
	}()

	ws.SetReadLimit(maxMessageSize)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			_ = c.send(Response{Type: "error", Error: "malformed request"})
			continue
		}
		s.dispatch(c, req)
	}
}

func (s *Server) dispatch(c *conn, req Request) {
	switch req.Type {
	case "devices":
		_ = c.send(Response{Type: "devices", Devices: s.svc.Devices()})
	case "audioDevices":
		_ = c.send(Response{Type: "devices", Devices: s.svc.AudioInputDevices()})
	case "videoDevices":
		_ = c.send(Response{Type: "devices", Devices: s.svc.VideoInputDevices()})
	case "start":
		opts := capture.Options{CaptureScreen: true}
		if req.Options != nil {
			opts = *req.Options
		}
		id := s.svc.StartCapture(opts, capture.Hooks{
			OnStopped: func(captureID string) {
				s.broadcast(Response{Type: "stopped", ID: captureID})
			},
			OnResult: func(res capture.Result) {
				s.mu.Lock()
				delete(s.active, res.CaptureID)
				s.mu.Unlock()
				s.broadcast(Response{Type: "result", Result: summarize(res)})
			},
		})
		s.mu.Lock()
		s.active[id] = true
		s.mu.Unlock()
		_ = c.send(Response{Type: "started", ID: id})
	case "stop":
		s.svc.StopCapture(req.ID)
		_ = c.send(Response{Type: "ok", ID: req.ID})
	case "stopPreview":
		s.svc.StopPreview(req.TrackID)
		_ = c.send(Response{Type: "ok"})
	case "list":
		s.mu.Lock()
		ids := make([]string, 0, len(s.active))
		for id := range s.active {
			ids = append(ids, id)
		}
		s.mu.Unlock()
		_ = c.send(Response{Type: "captures", Captures: ids})
	default:
		_ = c.send(Response{Type: "error", Error: "unknown request type: " + req.Type})
	}
}

func (s *Server) broadcast(resp Response) {
	s.connsMu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.Unlock()

	for _, c := range conns {
		if err := c.send(resp); err != nil {
			s.log.Debug("Broadcast failed", logging.KeyError, err)
		}
	}
}

func summarize(res capture.Result) *eventResult {
	channels := make(map[string]string)
	add := func(name string, data *capture.ChannelData) {
		if data != nil {
			channels[name] = data.BlobURL
		}
	}
	add("screen", res.CaptureData)
	add("camera", res.CameraData)
	add("audio", res.AudioData)
	add("systemAudio", res.SystemAudioData)
	add("combined", res.CombinedData)

	contentType := res.Options.EffectiveContentType()
	return &eventResult{
		CaptureID:   res.CaptureID,
		ContentType: contentType,
		Channels:    channels,
	}
}

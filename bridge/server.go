package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"vozflow/apperr"
	"vozflow/encoder"
	"vozflow/log"
)

// MaxAudioBytes matches the upload limit of the transcription service.
const MaxAudioBytes = 25 << 20

const defaultKeepAlive = 15 * time.Second

type Server struct {
	api       *API
	engine    *gin.Engine
	srv       *http.Server
	addr      string
	keepAlive time.Duration
}

type textBody struct {
	Text string `json:"text"`
}

type shortcutBody struct {
	Shortcut string `json:"shortcut"`
}

type recordingBody struct {
	Recording *bool `json:"recording" binding:"required"`
}

type stateBody struct {
	State string `json:"state"`
}

// Hello is what /v1/ping answers.
type Hello struct {
	Topic        string `json:"topic"`
	CaptureOwner string `json:"capture_owner"`
}

func NewServer(api *API, addr string) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{api: api, engine: gin.New(), addr: addr, keepAlive: defaultKeepAlive}
	s.engine.Use(gin.CustomRecovery(func(c *gin.Context, r any) {
		log.Errorf("bridge handler panicked: %v", r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, Result{Error: "internal error"})
	}))
	s.engine.Use(logFailures())
	s.engine.Use(localOnly())

	v1 := s.engine.Group("/v1")
	v1.GET("/ping", s.ping)
	v1.GET("/shortcut", s.getShortcut)
	v1.PUT("/shortcut", requireJSON(), s.setShortcut)
	v1.POST("/recording-state", requireJSON(), s.setRecordingState)
	v1.POST("/type-text", requireJSON(), s.typeText)
	v1.POST("/transcribe", s.transcribe)
	v1.GET("/events", s.events)

	s.srv = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Start binds the loopback address and serves in the background. It returns
// once the port is bound.
func (s *Server) Start() error {
	if !isLoopback(s.addr) {
		return apperr.New(apperr.Configuration, "bridge", fmt.Sprintf("%s is not a loopback address", s.addr))
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bridge: bind %s: %w", s.addr, err)
	}
	s.addr = ln.Addr().String()
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("bridge server: %v", err)
		}
	}()
	log.Infof("bridge listening on %s", s.addr)
	return nil
}

// Addr is the bound address after Start.
func (s *Server) Addr() string { return s.addr }

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) ping(c *gin.Context) {
	c.JSON(http.StatusOK, okResult(Hello{Topic: s.api.Bus().Name(), CaptureOwner: s.api.CaptureOwner()}))
}

func (s *Server) getShortcut(c *gin.Context) {
	respond(c, s.api.GetShortcut())
}

func (s *Server) setShortcut(c *gin.Context) {
	var body shortcutBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respond(c, errResult(apperr.Wrap(apperr.Configuration, "set shortcut", err)))
		return
	}
	respond(c, s.api.SetShortcut(body.Shortcut))
}

func (s *Server) setRecordingState(c *gin.Context) {
	var body recordingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respond(c, errResult(apperr.Wrap(apperr.Configuration, "recording state", err)))
		return
	}
	respond(c, s.api.SetRecordingState(*body.Recording))
}

func (s *Server) typeText(c *gin.Context) {
	var body textBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respond(c, errResult(apperr.Wrap(apperr.Configuration, "type text", err)))
		return
	}
	respond(c, s.api.TypeText(body.Text))
}

func (s *Server) transcribe(c *gin.Context) {
	format, ok := encoder.FormatFromContentType(c.ContentType())
	if !ok {
		c.JSON(http.StatusUnsupportedMediaType, errResult(
			apperr.New(apperr.Pipeline, "transcribe", "unsupported content type "+c.ContentType())))
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxAudioBytes))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, errResult(apperr.Wrap(apperr.Pipeline, "read audio", err)))
		return
	}
	respond(c, s.api.TranscribeAudio(c.Request.Context(), data, format))
}

// events streams state changes as SSE, plus toggle events when a surface
// owns capture. The subscriptions are live while the request context is
// open.
func (s *Server) events(c *gin.Context) {
	ctx := c.Request.Context()
	alive := func() bool { return ctx.Err() == nil }

	states := make(chan string, 8)
	unsubState := s.api.OnState(func(state string) {
		select {
		case states <- state:
		default:
		}
	}, alive)
	defer unsubState()

	fired := make(chan struct{}, 8)
	if s.api.CaptureOwner() == OwnerSurface {
		unsubscribe := s.api.OnToggleRecording(func() {
			select {
			case fired <- struct{}{}:
			default:
			}
		}, alive)
		defer unsubscribe()
	}

	http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("connected", Hello{Topic: s.api.Bus().Name(), CaptureOwner: s.api.CaptureOwner()})
	c.SSEvent(StateTopic, stateBody{State: s.api.State()})
	c.Writer.Flush()

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-fired:
			c.SSEvent(s.api.Bus().Name(), gin.H{"at": time.Now().UnixMilli()})
			c.Writer.Flush()
		case state := <-states:
			c.SSEvent(StateTopic, stateBody{State: state})
			c.Writer.Flush()
		case <-keepAlive.C:
			fmt.Fprintf(c.Writer, ": keepalive %d\n\n", time.Now().Unix())
			c.Writer.Flush()
		}
	}
}

func respond(c *gin.Context, r Result) {
	c.JSON(statusFor(r), r)
}

func statusFor(r Result) int {
	if r.OK {
		return http.StatusOK
	}
	switch r.Kind {
	case apperr.Configuration:
		return http.StatusBadRequest
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.Capture:
		return http.StatusServiceUnavailable
	case apperr.Pipeline:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func logFailures() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if status := c.Writer.Status(); status >= 400 {
			log.Warnf("bridge %s %s -> %d (%s)", c.Request.Method, c.FullPath(), status, time.Since(start).Round(time.Millisecond))
		}
	}
}

// localOnly turns away anything a web page could send: requests that carry
// an Origin header, and requests whose Host is not a loopback name.
func localOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Origin") != "" {
			c.AbortWithStatusJSON(http.StatusForbidden, errResult(
				apperr.New(apperr.Configuration, "bridge", "cross-origin requests are not accepted")))
			return
		}
		if !isLoopbackHost(c.Request.Host) {
			c.AbortWithStatusJSON(http.StatusForbidden, errResult(
				apperr.New(apperr.Configuration, "bridge", "unexpected host "+c.Request.Host)))
			return
		}
		c.Next()
	}
}

func requireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.ContentType() != gin.MIMEJSON {
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, errResult(
				apperr.New(apperr.Configuration, "bridge", "content type must be application/json")))
			return
		}
		c.Next()
	}
}

// isLoopbackHost accepts a Host header naming a loopback address, with or
// without a port.
func isLoopbackHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

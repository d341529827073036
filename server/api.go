package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cyclopcam/www"
	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"
	"github.com/pihailo/pihailo/pkg/kibi"
	"github.com/pihailo/pihailo/pkg/storage"
)

func (s *Server) setupHttpRoutes() {
	router := httprouter.New()
	s.httpRouter = router

	protected := func(method, route string, handle httprouter.Handle) {
		www.Handle(s.Log, router, method, route, handle)
	}

	// Each rate limited endpoint gets its own limiter, keyed by client IP
	ratelimited := func(method, route string, handle httprouter.Handle, requestLimit int, window time.Duration) {
		limited := httprate.Limit(requestLimit, window, httprate.WithKeyFuncs(httprate.KeyByIP))
		www.Handle(s.Log, router, method, route, func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
			limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handle(w, r, params)
			})).ServeHTTP(w, r)
		})
	}

	protected("GET", "/api/ping", s.httpPing)
	protected("GET", "/api/status", s.httpStatus)
	protected("GET", "/api/setup", s.httpSetup)
	protected("GET", "/api/resources", s.httpResources)
	protected("GET", "/api/estimate", s.httpEstimate)

	ratelimited("POST", "/api/record/start/:camera", s.httpRecordStart, 10, time.Minute)
	ratelimited("POST", "/api/record/stop/:camera", s.httpRecordStop, 10, time.Minute)
	protected("GET", "/api/recordings", s.httpRecordings)
	protected("GET", "/api/recording/:id/video", s.httpRecordingVideo)
	protected("DELETE", "/api/recording/:id", s.httpRecordingDelete)

	protected("GET", "/api/detections/:camera", s.httpDetections)
	ratelimited("GET", "/api/snapshot/:camera", s.httpSnapshot, 60, time.Minute)
	protected("GET", "/ws/detections/:camera", s.httpDetectionsWS)
}

// cameraFromParams resolves the :camera route parameter, or panics with a 404.
func (s *Server) cameraFromParams(params httprouter.Params) *camera {
	name := params.ByName("camera")
	cam := s.cameraByName(name)
	if cam == nil {
		www.Panic(http.StatusNotFound, fmt.Sprintf("Unknown camera '%v'", name))
	}
	return cam
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	type pingJSON struct {
		Greeting string `json:"greeting"`
		Time     int64  `json:"time"`
	}
	www.SendJSON(w, &pingJSON{
		Greeting: "pihailo",
		Time:     time.Now().Unix(),
	})
}

func (s *Server) httpStatus(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	type cameraJSON struct {
		Name               string     `json:"name"`
		Detection          bool       `json:"detection"`
		Recording          bool       `json:"recording"`
		RecordingStartedAt *time.Time `json:"recordingStartedAt,omitempty"`
		LastFrameID        int64      `json:"lastFrameID,omitempty"`
		LastFrameAt        *time.Time `json:"lastFrameAt,omitempty"`
	}
	type statusJSON struct {
		StartedAt     time.Time    `json:"startedAt"`
		UptimeSeconds float64      `json:"uptimeSeconds"`
		Detection     bool         `json:"detection"`
		Cameras       []cameraJSON `json:"cameras"`
	}

	status := statusJSON{
		StartedAt:     s.startedAt,
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Detection:     s.resources != nil,
		Cameras:       []cameraJSON{},
	}
	for _, cam := range s.cameras {
		cj := cameraJSON{
			Name:      cam.cfg.Name,
			Detection: cam.monitor != nil,
		}
		cam.lock.Lock()
		if cam.recorder != nil {
			cj.Recording = true
			startedAt := cam.recorder.rec.StartedAt()
			cj.RecordingStartedAt = &startedAt
		}
		cam.lock.Unlock()
		if cam.monitor != nil {
			if latest := cam.monitor.Latest(); latest != nil {
				cj.LastFrameID = latest.FrameID
				pts := latest.FramePTS
				cj.LastFrameAt = &pts
			}
		}
		status.Cameras = append(status.Cameras, cj)
	}
	www.SendJSON(w, &status)
}

func (s *Server) httpSetup(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, s.setup)
}

func (s *Server) httpResources(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if s.resources == nil {
		www.Panic(http.StatusNotFound, "No Hailo resources discovered")
	}
	www.SendJSON(w, s.resources)
}

// httpEstimate answers "how long can I record before the disk fills up?".
// Query parameters width, height, fps and bitrate (Mbps) override the
// defaults taken from the first camera and the configured record bitrate.
// disk (a human byte size such as "80GB") replaces the measured free space,
// for hypothetical questions.
func (s *Server) httpEstimate(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	cam := s.cfg.Cameras[0]
	width := cam.Width
	height := cam.Height
	fps := float64(cam.FPS)
	bitrateMbps := float64(s.cfg.RecordBitrateKbps) / 1000

	if v := www.QueryValue(r, "width"); v != "" {
		width = www.QueryInt(r, "width")
	}
	if v := www.QueryValue(r, "height"); v != "" {
		height = www.QueryInt(r, "height")
	}
	if v := www.QueryValue(r, "fps"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		www.Check(err)
		fps = f
	}
	if v := www.QueryValue(r, "bitrate"); v != "" {
		b, err := strconv.ParseFloat(v, 64)
		www.Check(err)
		bitrateMbps = b
	}

	free, total, err := storage.DiskFree(s.recDB.Root())
	www.Check(err)
	if v := www.QueryValue(r, "disk"); v != "" {
		d, err := kibi.Parse(v)
		www.Check(err)
		free = d
		if free > total {
			total = free
		}
	}

	www.SendJSON(w, storage.MakeEstimateForSpace(s.recDB.Root(), free, total, width, height, fps, bitrateMbps))
}

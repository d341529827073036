package server

import (
	"bytes"
	"image/png"
	"net/http"
	"os"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
	"github.com/pihailo/pihailo/pkg/annotate"
	"github.com/pihailo/pihailo/pkg/nn"
	"github.com/pihailo/pihailo/server/detect"
)

func (s *Server) monitorFromParams(params httprouter.Params) (*camera, *detect.Monitor) {
	cam := s.cameraFromParams(params)
	if cam.monitor == nil {
		www.PanicBadRequestf("Detection is not enabled for camera %v", cam.cfg.Name)
	}
	return cam, cam.monitor
}

// httpDetections returns the latest detection result of a camera.
// 204 when the pipeline hasn't produced a frame yet.
func (s *Server) httpDetections(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	_, monitor := s.monitorFromParams(params)
	latest := monitor.Latest()
	if latest == nil {
		www.PanicNoContent()
	}
	www.SendJSON(w, latest)
}

// httpSnapshot returns the camera's latest frame as a PNG, with detection
// boxes and labels drawn on it. 503 until the pipeline has produced a frame.
func (s *Server) httpSnapshot(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	cam, monitor := s.monitorFromParams(params)

	raw, err := os.ReadFile(cam.snapshotFile)
	if err != nil {
		www.Panic(http.StatusServiceUnavailable, "No frame available yet")
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		// The pipeline was mid-write. The next request will get a whole file.
		www.Panic(http.StatusServiceUnavailable, "No frame available yet")
	}

	objects := []nn.ObjectDetection{}
	if latest := monitor.Latest(); latest != nil {
		objects = latest.Objects
	}
	annotated := annotate.Annotate(img, objects)

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, annotated); err != nil {
		s.Log.Warnf("Camera %v: failed to write snapshot response: %v", cam.cfg.Name, err)
	}
}

// httpDetectionsWS streams detection results over a websocket, one JSON
// message per frame.
func (s *Server) httpDetectionsWS(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	cam, monitor := s.monitorFromParams(params)

	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Errorf("Camera %v: websocket upgrade failed: %v", cam.cfg.Name, err)
		return
	}
	defer conn.Close()

	sub := monitor.Subscribe()
	defer monitor.Unsubscribe(sub)

	// Reader, so we notice when the client goes away
	clientGone := make(chan bool)
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.Log.Infof("Camera %v: websocket detection stream started", cam.cfg.Name)
	for {
		select {
		case result, ok := <-sub:
			if !ok {
				return
			}
			if err := conn.WriteJSON(result); err != nil {
				return
			}
		case <-clientGone:
			return
		}
	}
}

package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
	"gorm.io/gorm"
)

// httpRecordStart starts recording a camera. The optional "seconds" query
// parameter caps the recording duration (default 1 hour).
func (s *Server) httpRecordStart(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	cam := s.cameraFromParams(params)

	maxDuration := time.Duration(0)
	if v := www.QueryValue(r, "seconds"); v != "" {
		seconds := www.QueryInt(r, "seconds")
		if seconds <= 0 {
			www.PanicBadRequestf("seconds must be positive")
		}
		maxDuration = time.Duration(seconds) * time.Second
	}

	if err := s.StartRecording(cam, maxDuration); err != nil {
		www.PanicBadRequestf("%v", err)
	}
	www.SendOK(w)
}

// httpRecordStop stops a camera's recording and returns the indexed
// recording (including its database ID).
func (s *Server) httpRecordStop(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	cam := s.cameraFromParams(params)

	cam.lock.Lock()
	recording := cam.recorder != nil
	cam.lock.Unlock()
	if !recording {
		www.PanicBadRequestf("Camera %v is not recording", cam.cfg.Name)
	}

	rec, err := s.StopRecording(cam)
	www.Check(err)
	www.SendJSON(w, rec)
}

// httpRecordings lists recordings, newest first. Filter with ?camera=name.
func (s *Server) httpRecordings(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	recordings, err := s.recDB.List(www.QueryValue(r, "camera"))
	www.Check(err)
	www.SendJSON(w, recordings)
}

// httpRecordingVideo serves a recording's MP4.
func (s *Server) httpRecordingVideo(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	rec, err := s.recDB.Get(www.ParseID(params.ByName("id")))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		www.PanicNotFound()
	}
	www.Check(err)
	http.ServeFile(w, r, s.recDB.FullPath(rec))
}

func (s *Server) httpRecordingDelete(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	err := s.recDB.Delete(www.ParseID(params.ByName("id")))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		www.PanicNotFound()
	}
	www.Check(err)
	www.SendOK(w)
}

package server

// Package server is the HTTP service that ties everything together: resource
// discovery, the per-camera detection pipelines, recording, and the
// recordings index.

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/pihailo/pihailo/pkg/gst"
	"github.com/pihailo/pihailo/pkg/hailores"
	"github.com/pihailo/pihailo/pkg/setup"
	"github.com/pihailo/pihailo/server/camrec"
	"github.com/pihailo/pihailo/server/detect"
	"github.com/pihailo/pihailo/server/recdb"
)

type Server struct {
	Log logs.Log

	cfg       *Config
	resources *hailores.Resources // nil when discovery failed or was skipped (detection disabled)
	setup     *setup.Report
	recDB     *recdb.RecDB
	cameras   []*camera
	startedAt time.Time

	signalIn     chan os.Signal
	httpServer   *http.Server
	httpRouter   *httprouter.Router
	wsUpgrader   websocket.Upgrader
	shutdownLock sync.Mutex
	shutdown     bool
}

// camera is the runtime state of one configured camera.
type camera struct {
	cfg          CameraConfig
	exportFile   string
	snapshotFile string
	monitor      *detect.Monitor // nil when detection is off for this camera

	lock     sync.Mutex
	pipeline *pipelineProc    // idle detection pipeline, nil while recording (or detection off)
	recorder *activeRecording // active recording, nil otherwise
}

// activeRecording pairs a recorder with its finalize handoff. An explicit
// stop and the watcher goroutine both finalize; exactly one of them indexes
// the file, and the indexed row (or the failure) is published to all of them.
type activeRecording struct {
	rec       *camrec.Recorder
	once      sync.Once
	indexed   chan bool // closed once recording/err are set
	recording *recdb.Recording
	err       error
}

// NewServer creates the server. resources may be nil, in which case
// detection is disabled and only plain recording works.
func NewServer(logger logs.Log, cfg *Config, resources *hailores.Resources) (*Server, error) {
	recDB, err := recdb.Open(logger, cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	s := &Server{
		Log:       logger,
		cfg:       cfg,
		resources: resources,
		setup:     setup.RunChecks(logger),
		recDB:     recDB,
		startedAt: time.Now(),
	}
	for _, cc := range cfg.Cameras {
		base := "pihailo_" + camrec.Sanitize(cc.Name)
		s.cameras = append(s.cameras, &camera{
			cfg:          cc,
			exportFile:   filepath.Join(os.TempDir(), base+"_detections.json"),
			snapshotFile: filepath.Join(os.TempDir(), base+"_snapshot.png"),
		})
	}
	s.setupHttpRoutes()
	return s, nil
}

// StartCameras launches the detection pipeline and monitor of every camera
// that has detection enabled.
func (s *Server) StartCameras() {
	if s.resources == nil {
		s.Log.Warnf("No Hailo resources. Detection is disabled, only plain recording is available.")
		return
	}
	for _, cam := range s.cameras {
		if cam.cfg.DisableDetection {
			s.Log.Infof("Camera %v: detection disabled by config", cam.cfg.Name)
			continue
		}
		// Stale export lines would be replayed into the monitor, so start fresh
		os.Remove(cam.exportFile)
		cam.monitor = detect.NewMonitor(s.Log, cam.cfg.Name, cam.exportFile, cam.cfg.Width, cam.cfg.Height, s.cfg.ConfidenceLimit)
		s.startIdlePipeline(cam)
	}
}

// pipelineOptions builds the GStreamer options of a camera's detection
// pipeline. recordFile adds the recording branch when non-empty.
func (s *Server) pipelineOptions(cam *camera, recordFile string) *gst.DetectionOptions {
	return &gst.DetectionOptions{
		CameraName:          cam.cfg.LibcameraName,
		Width:               cam.cfg.Width,
		Height:              cam.cfg.Height,
		FPS:                 cam.cfg.FPS,
		HEF:                 s.resources.HEF,
		PostprocessSO:       s.resources.PostprocessSO,
		PostprocessFunction: s.resources.PostprocessFunction,
		BatchSize:           s.cfg.RecordBatchSize,
		ExportFile:          cam.exportFile,
		SnapshotFile:        cam.snapshotFile,
		Display:             s.cfg.EnablePreview,
		RecordFile:          recordFile,
		RecordBitrateKbps:   s.cfg.RecordBitrateKbps,
	}
}

func (s *Server) startIdlePipeline(cam *camera) {
	cam.lock.Lock()
	defer cam.lock.Unlock()
	s.startIdlePipelineLocked(cam)
}

func (s *Server) startIdlePipelineLocked(cam *camera) {
	if cam.monitor == nil || cam.pipeline != nil || cam.recorder != nil || s.isShutdown() {
		return
	}
	desc := gst.DetectionPipeline(s.pipelineOptions(cam, ""))
	cam.pipeline = startPipelineProc(s.Log, cam.cfg.Name, desc)
}

func (s *Server) cameraByName(name string) *camera {
	for _, cam := range s.cameras {
		if cam.cfg.Name == name {
			return cam
		}
	}
	return nil
}

// StartRecording begins recording a camera. With detection enabled, the idle
// pipeline is swapped for one with a recording branch, so the recording has
// detection boxes drawn on it, and detections keep flowing while recording.
// Without detection we spawn a plain rpicam-vid capture.
func (s *Server) StartRecording(cam *camera, maxDuration time.Duration) error {
	cam.lock.Lock()
	defer cam.lock.Unlock()

	if cam.recorder != nil {
		return fmt.Errorf("Camera %v is already recording", cam.cfg.Name)
	}

	opts := camrec.Options{
		Camera:      cam.cfg.Name,
		OutputDir:   s.recDB.Root(),
		Width:       cam.cfg.Width,
		Height:      cam.cfg.Height,
		FPS:         cam.cfg.FPS,
		MaxDuration: maxDuration,
	}

	var rec *camrec.Recorder
	var err error
	if cam.monitor != nil {
		if cam.pipeline != nil {
			cam.pipeline.Stop()
			cam.pipeline = nil
		}
		base := fmt.Sprintf("%v_%v", camrec.Sanitize(cam.cfg.Name), time.Now().Format("20060102_150405"))
		rawPath := filepath.Join(s.recDB.Root(), base+".mkv")
		desc := gst.DetectionPipeline(s.pipelineOptions(cam, rawPath))
		rec, err = camrec.StartPipeline(s.Log, desc, rawPath, opts)
	} else {
		if s.setup.VideoCommand == "" {
			return fmt.Errorf("Cannot record: neither rpicam-vid nor libcamera-vid is installed")
		}
		rec, err = camrec.StartPlain(s.Log, s.setup.VideoCommand, opts)
	}
	if err != nil {
		s.startIdlePipelineLocked(cam)
		return err
	}
	ar := &activeRecording{
		rec:     rec,
		indexed: make(chan bool),
	}
	cam.recorder = ar
	go s.watchRecorder(cam, ar)
	return nil
}

// StopRecording stops a camera's recording and returns the indexed result.
func (s *Server) StopRecording(cam *camera) (*recdb.Recording, error) {
	cam.lock.Lock()
	ar := cam.recorder
	cam.lock.Unlock()
	if ar == nil {
		return nil, fmt.Errorf("Camera %v is not recording", cam.cfg.Name)
	}

	ar.rec.Stop()
	return s.finalizeRecording(cam, ar)
}

// watchRecorder finalizes recordings that end without an explicit stop
// (max duration reached, or the capture process died).
func (s *Server) watchRecorder(cam *camera, ar *activeRecording) {
	<-ar.rec.Done()
	s.finalizeRecording(cam, ar)
}

// finalizeRecording waits for the recorder to finish. Exactly one caller
// detaches it from the camera, restarts the idle pipeline, and indexes the
// MP4; every caller returns the indexed row (or the failure).
func (s *Server) finalizeRecording(cam *camera, ar *activeRecording) (*recdb.Recording, error) {
	<-ar.rec.Done()

	ar.once.Do(func() {
		cam.lock.Lock()
		if cam.recorder == ar {
			cam.recorder = nil
			s.startIdlePipelineLocked(cam)
		}
		cam.lock.Unlock()

		result, err := ar.rec.Result()
		if err != nil {
			ar.err = err
			s.Log.Errorf("Camera %v: recording failed: %v", cam.cfg.Name, err)
		} else {
			ar.recording, ar.err = s.recDB.Add(cam.cfg.Name, ar.rec.StartedAt(), result.Duration, result.MP4Path, result.SizeBytes)
			if ar.err == nil {
				s.Log.Infof("Camera %v: recording %v indexed", cam.cfg.Name, ar.recording.Filename)
			}
		}
		close(ar.indexed)
	})

	<-ar.indexed
	return ar.recording, ar.err
}

// ListenHTTP blocks until Shutdown. port example: ":8097"
func (s *Server) ListenHTTP(port string) error {
	s.Log.Infof("Listening on %v", port)
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.httpRouter,
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) ListenForKillSignals() {
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.signalIn
		if ok {
			s.Log.Infof("Received OS signal '%v', shutting down", sig.String())
			s.Shutdown()
		}
	}()
}

func (s *Server) isShutdown() bool {
	s.shutdownLock.Lock()
	defer s.shutdownLock.Unlock()
	return s.shutdown
}

// Shutdown stops recordings gracefully (so nothing on disk is left
// unplayable), stops the pipelines and monitors, and closes the HTTP server.
func (s *Server) Shutdown() {
	s.shutdownLock.Lock()
	if s.shutdown {
		s.shutdownLock.Unlock()
		return
	}
	s.shutdown = true
	s.shutdownLock.Unlock()

	s.Log.Infof("Shutdown starting")
	if s.signalIn != nil {
		signal.Stop(s.signalIn)
		close(s.signalIn)
	}

	for _, cam := range s.cameras {
		cam.lock.Lock()
		ar := cam.recorder
		pipeline := cam.pipeline
		cam.pipeline = nil
		cam.lock.Unlock()
		if ar != nil {
			s.Log.Infof("Camera %v: stopping recording for shutdown", cam.cfg.Name)
			ar.rec.Stop()
			s.finalizeRecording(cam, ar)
		}
		if pipeline != nil {
			pipeline.Stop()
		}
		if cam.monitor != nil {
			cam.monitor.Close()
		}
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.Log.Warnf("HTTP server shutdown: %v", err)
		}
	}
	s.Log.Infof("Shutdown complete")
	s.Log.Close()
}

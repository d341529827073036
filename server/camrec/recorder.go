package camrec

// Package camrec records camera video by supervising an external capture
// process: either rpicam-vid/libcamera-vid for a plain capture, or
// gst-launch-1.0 running the detection pipeline with a recording branch.
// The process is stopped with SIGINT (both tools finalize their output on
// SIGINT, like Ctrl+C), and the raw output is then remuxed to MP4.

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cyclopcam/logs"
)

// How long we give the capture process to exit after SIGINT, and then
// SIGTERM, before killing it.
const stopGracePeriod = 10 * time.Second
const stopTermPeriod = 5 * time.Second

// Default cap on a single recording
const DefaultMaxDuration = time.Hour

type Options struct {
	Camera      string // Friendly camera name, used in filenames and logs
	OutputDir   string
	Width       int
	Height      int
	FPS         int
	MaxDuration time.Duration // DefaultMaxDuration when zero
}

// Result of a finished recording
type Result struct {
	MP4Path   string        `json:"mp4Path"`
	SizeBytes int64         `json:"sizeBytes"`
	Duration  time.Duration `json:"duration"`
}

type Recorder struct {
	log       logs.Log
	opts      Options
	cmd       *exec.Cmd
	rawPath   string // .h264 or .mkv, deleted after remux
	mp4Path   string
	remuxFPS  int // pass -r to ffmpeg (raw h264 has no timing), 0 to omit
	startedAt time.Time

	stopOnce sync.Once
	stop     chan bool
	finished chan bool // closed when the recording is fully done (remux included)
	result   Result
	err      error
}

func timestamp() string {
	return time.Now().Format("20060102_150405")
}

// StartPlain starts a plain (no detection) recording using rpicam-vid or
// libcamera-vid. videoCommand is the resolved binary path.
func StartPlain(logger logs.Log, videoCommand string, opts Options) (*Recorder, error) {
	if err := os.MkdirAll(opts.OutputDir, 0777); err != nil {
		return nil, fmt.Errorf("Failed to create output directory %v: %w", opts.OutputDir, err)
	}
	base := fmt.Sprintf("%v_%v", Sanitize(opts.Camera), timestamp())
	rawPath := filepath.Join(opts.OutputDir, base+".h264")

	// -t 0: record until stopped
	// --inline: include SPS/PPS, needed for containerizing afterwards
	cmd := exec.Command(videoCommand,
		"-t", "0",
		"--nopreview",
		"--inline",
		"--width", strconv.Itoa(opts.Width),
		"--height", strconv.Itoa(opts.Height),
		"--framerate", strconv.Itoa(opts.FPS),
		"-o", rawPath,
	)
	return start(logger, cmd, opts, rawPath, filepath.Join(opts.OutputDir, base+".mp4"), opts.FPS)
}

// StartPipeline starts a recording by running a GStreamer pipeline that
// writes to rawPath (a .mkv from the pipeline's record branch).
// The pipeline description must be the one that produced rawPath.
func StartPipeline(logger logs.Log, pipeline string, rawPath string, opts Options) (*Recorder, error) {
	if err := os.MkdirAll(opts.OutputDir, 0777); err != nil {
		return nil, fmt.Errorf("Failed to create output directory %v: %w", opts.OutputDir, err)
	}
	mp4Path := strings.TrimSuffix(rawPath, filepath.Ext(rawPath)) + ".mp4"

	// -e: send EOS on shutdown, so the muxer finalizes the file
	args := append([]string{"-e"}, strings.Fields(pipeline)...)
	cmd := exec.Command("gst-launch-1.0", args...)
	return start(logger, cmd, opts, rawPath, mp4Path, 0)
}

func start(logger logs.Log, cmd *exec.Cmd, opts Options, rawPath, mp4Path string, remuxFPS int) (*Recorder, error) {
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("Failed to start %v: %w", cmd.Path, err)
	}
	r := &Recorder{
		log:       logger,
		opts:      opts,
		cmd:       cmd,
		rawPath:   rawPath,
		mp4Path:   mp4Path,
		remuxFPS:  remuxFPS,
		startedAt: time.Now(),
		stop:      make(chan bool),
		finished:  make(chan bool),
	}
	logger.Infof("Camera %v: recording to %v (pid %v)", opts.Camera, rawPath, cmd.Process.Pid)
	go r.run()
	return r, nil
}

// Stop ends the recording and waits for the remux to complete. Stopping a
// recording that has already finished is fine.
func (r *Recorder) Stop() (*Result, error) {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.finished
	return r.Result()
}

// Result is valid once Done is closed.
func (r *Recorder) Result() (*Result, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &r.result, nil
}

// Done returns a channel that is closed when the recording has finished
// (either by Stop, by hitting MaxDuration, or because the process died).
func (r *Recorder) Done() <-chan bool {
	return r.finished
}

// StartedAt returns when the recording began.
func (r *Recorder) StartedAt() time.Time {
	return r.startedAt
}

func (r *Recorder) run() {
	defer close(r.finished)

	maxDuration := r.opts.MaxDuration
	if maxDuration == 0 {
		maxDuration = DefaultMaxDuration
	}

	// Reap the process from its own goroutine so we can select on it
	procDied := make(chan error, 1)
	go func() {
		procDied <- r.cmd.Wait()
	}()

	exited := false
	select {
	case <-r.stop:
		r.log.Infof("Camera %v: stop requested", r.opts.Camera)
	case <-time.After(maxDuration):
		r.log.Infof("Camera %v: max recording duration reached", r.opts.Camera)
	case err := <-procDied:
		// The capture process died on its own. Whatever it wrote might
		// still be salvageable, so we carry on to the remux.
		r.log.Warnf("Camera %v: capture process exited early: %v", r.opts.Camera, err)
		exited = true
	}

	if !exited {
		r.shutdownProcess(procDied)
	}

	duration := time.Since(r.startedAt)

	if err := RemuxToMP4(r.log, r.rawPath, r.mp4Path, r.remuxFPS); err != nil {
		r.err = fmt.Errorf("Recording %v saved, but MP4 remux failed: %w", r.rawPath, err)
		return
	}
	os.Remove(r.rawPath)

	st, err := os.Stat(r.mp4Path)
	if err != nil {
		r.err = fmt.Errorf("Remuxed file missing: %w", err)
		return
	}
	r.result = Result{
		MP4Path:   r.mp4Path,
		SizeBytes: st.Size(),
		Duration:  duration,
	}
	r.log.Infof("Camera %v: saved %v (%v bytes)", r.opts.Camera, r.mp4Path, st.Size())
}

// Graceful stop: SIGINT (finalizes output), escalate if ignored
func (r *Recorder) shutdownProcess(procDied chan error) {
	r.cmd.Process.Signal(syscall.SIGINT)
	select {
	case <-procDied:
		return
	case <-time.After(stopGracePeriod):
	}

	r.log.Warnf("Camera %v: capture process ignored SIGINT, sending SIGTERM", r.opts.Camera)
	r.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-procDied:
		return
	case <-time.After(stopTermPeriod):
	}

	r.log.Errorf("Camera %v: killing capture process", r.opts.Camera)
	r.cmd.Process.Kill()
	<-procDied
}

// Sanitize makes a camera name safe for use in a filename.
func Sanitize(name string) string {
	mapper := func(c rune) rune {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			return c
		}
		return '_'
	}
	return strings.Map(mapper, name)
}

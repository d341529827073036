package server

// pipelineProc supervises a gst-launch-1.0 subprocess running a camera's
// detection pipeline (no recording branch). If the pipeline crashes, we
// restart it after a delay. Stopping sends SIGINT so GStreamer tears down
// cleanly, then escalates to a kill.

import (
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/cyclopcam/logs"
)

const pipelineRestartDelay = 5 * time.Second
const pipelineStopTimeout = 10 * time.Second

type pipelineProc struct {
	log         logs.Log
	camera      string
	description string

	stop     chan bool
	finished chan bool
}

func startPipelineProc(logger logs.Log, camera, description string) *pipelineProc {
	p := &pipelineProc{
		log:         logger,
		camera:      camera,
		description: description,
		stop:        make(chan bool),
		finished:    make(chan bool),
	}
	go p.run()
	return p
}

// Stop ends the pipeline and waits for the process to exit.
func (p *pipelineProc) Stop() {
	close(p.stop)
	<-p.finished
}

func (p *pipelineProc) run() {
	defer close(p.finished)

	for {
		// -e: send EOS downstream on shutdown
		args := append([]string{"-e"}, strings.Fields(p.description)...)
		cmd := exec.Command("gst-launch-1.0", args...)
		if err := cmd.Start(); err != nil {
			p.log.Errorf("Camera %v: failed to start detection pipeline: %v", p.camera, err)
		} else {
			p.log.Infof("Camera %v: detection pipeline running (pid %v)", p.camera, cmd.Process.Pid)
			procDied := make(chan error, 1)
			go func() {
				procDied <- cmd.Wait()
			}()
			select {
			case <-p.stop:
				p.shutdown(cmd, procDied)
				return
			case err := <-procDied:
				p.log.Warnf("Camera %v: detection pipeline exited: %v", p.camera, err)
			}
		}

		select {
		case <-p.stop:
			return
		case <-time.After(pipelineRestartDelay):
			p.log.Infof("Camera %v: restarting detection pipeline", p.camera)
		}
	}
}

func (p *pipelineProc) shutdown(cmd *exec.Cmd, procDied chan error) {
	cmd.Process.Signal(syscall.SIGINT)
	select {
	case <-procDied:
	case <-time.After(pipelineStopTimeout):
		p.log.Warnf("Camera %v: detection pipeline ignored SIGINT, killing it", p.camera)
		cmd.Process.Kill()
		<-procDied
	}
}

package detect

// Monitor tails the JSON export file of one camera's detection pipeline and
// fans results out to subscribers (the websocket API) while keeping a small
// history for the snapshot/status endpoints.
//
// Inference happens inside the gst-launch subprocess; this is the point
// where detections enter Go code.

import (
	"bytes"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bmharper/ringbuffer"
	"github.com/cyclopcam/logs"
	"github.com/pihailo/pihailo/pkg/nn"
)

// Number of recent results we keep per camera
const historySize = 32

// Poll interval for the export file. The pipeline appends a line per frame,
// so at 10 fps we batch a few frames per read.
const pollInterval = 100 * time.Millisecond

type Monitor struct {
	log        logs.Log
	camera     string
	exportFile string
	width      int
	height     int
	threshold  float32

	historyLock sync.Mutex
	history     ringbuffer.RingP[*nn.DetectionResult]
	frameID     int64

	subscriberLock sync.Mutex
	subscribers    map[chan *nn.DetectionResult]bool

	stop     chan bool
	finished chan bool
}

// NewMonitor creates a monitor for one camera's export file and starts
// tailing it. The file does not need to exist yet; the pipeline creates it.
func NewMonitor(logger logs.Log, camera, exportFile string, width, height int, threshold float32) *Monitor {
	if threshold == 0 {
		threshold = nn.DefaultConfidenceThreshold
	}
	m := &Monitor{
		log:         logger,
		camera:      camera,
		exportFile:  exportFile,
		width:       width,
		height:      height,
		threshold:   threshold,
		history:     ringbuffer.NewRingP[*nn.DetectionResult](historySize),
		subscribers: map[chan *nn.DetectionResult]bool{},
		stop:        make(chan bool),
		finished:    make(chan bool),
	}
	go m.tail()
	return m
}

// Latest returns the most recent detection result, or nil if none yet.
func (m *Monitor) Latest() *nn.DetectionResult {
	m.historyLock.Lock()
	defer m.historyLock.Unlock()
	if m.history.Len() == 0 {
		return nil
	}
	return m.history.Peek(m.history.Len() - 1)
}

// Subscribe returns a channel that receives every new detection result.
// Slow subscribers have results dropped, not queued forever.
func (m *Monitor) Subscribe() chan *nn.DetectionResult {
	ch := make(chan *nn.DetectionResult, 16)
	m.subscriberLock.Lock()
	defer m.subscriberLock.Unlock()
	m.subscribers[ch] = true
	return ch
}

func (m *Monitor) Unsubscribe(ch chan *nn.DetectionResult) {
	m.subscriberLock.Lock()
	defer m.subscriberLock.Unlock()
	if m.subscribers[ch] {
		delete(m.subscribers, ch)
		close(ch)
	}
}

// Close stops the tailing goroutine and closes all subscriber channels.
func (m *Monitor) Close() {
	close(m.stop)
	<-m.finished

	m.subscriberLock.Lock()
	defer m.subscriberLock.Unlock()
	for ch := range m.subscribers {
		close(ch)
	}
	m.subscribers = map[chan *nn.DetectionResult]bool{}
}

func (m *Monitor) tail() {
	defer close(m.finished)

	var offset int64
	pending := []byte{}

	for {
		select {
		case <-m.stop:
			return
		case <-time.After(pollInterval):
		}

		st, err := os.Stat(m.exportFile)
		if err != nil {
			// Pipeline hasn't created the file yet
			continue
		}
		if st.Size() < offset {
			// Pipeline restarted and truncated the file
			m.log.Infof("Camera %v: export file truncated, restarting tail", m.camera)
			offset = 0
			pending = pending[:0]
		}
		if st.Size() == offset {
			continue
		}

		chunk, err := m.readFrom(offset)
		if err != nil {
			m.log.Warnf("Camera %v: failed to read export file: %v", m.camera, err)
			continue
		}
		offset += int64(len(chunk))
		pending = append(pending, chunk...)

		// Consume complete lines, keep the trailing partial line
		for {
			nl := bytes.IndexByte(pending, '\n')
			if nl == -1 {
				break
			}
			line := pending[:nl]
			pending = pending[nl+1:]
			m.ingest(line)
		}
	}
}

func (m *Monitor) readFrom(offset int64) ([]byte, error) {
	file, err := os.Open(m.exportFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(file)
}

func (m *Monitor) ingest(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	m.frameID++
	result, err := ParseExportLine(line, m.camera, m.frameID, m.width, m.height)
	if err != nil {
		m.log.Warnf("Camera %v: failed to parse export line: %v", m.camera, err)
		return
	}
	result.Objects = nn.FilterConfidence(result.Objects, m.threshold)

	m.historyLock.Lock()
	m.history.Add(result)
	m.historyLock.Unlock()

	m.subscriberLock.Lock()
	for ch := range m.subscribers {
		select {
		case ch <- result:
		default:
			// Subscriber is not keeping up. Drop.
		}
	}
	m.subscriberLock.Unlock()
}

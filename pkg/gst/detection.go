package gst

import (
	"fmt"
	"strings"
)

// DefaultCropSO is the cropping library that ships with TAPPAS. The
// detection pipeline uses it to letterbox frames for the network while
// keeping the original frame for display.
const DefaultCropSO = "/usr/lib/aarch64-linux-gnu/hailo/tappas/post_processes/cropping_algorithms/libwhole_buffer.so"

// DetectionOptions describe one camera's detection pipeline.
type DetectionOptions struct {
	CameraName string // libcamera camera-name (long path string from libcamera-hello --list-cameras)
	Width      int
	Height     int
	FPS        int

	HEF                 string // Compiled model for hailonet
	PostprocessSO       string // Library for hailofilter
	PostprocessFunction string // Function inside PostprocessSO
	CropSO              string // Cropping library, DefaultCropSO when empty
	BatchSize           int    // hailonet batch-size, 1 when zero

	ExportFile   string // If set, detections are exported as JSON to this file (hailoexportfile)
	SnapshotFile string // If set, the latest frame is kept as a PNG at this path
	Display      bool   // true: autovideosink preview, false: fakesink

	// If RecordFile is set, a recording branch (x264enc -> matroskamux) is
	// added to the tee.
	RecordFile        string
	RecordBitrateKbps int // 8000 when zero
}

// DetectionPipeline builds the gst-launch-1.0 description of the Hailo YOLO
// detection pipeline:
//
//	libcamerasrc -> hailocropper -+-> (bypass) ----------------+-> hailoaggregator
//	                              +-> hailonet -> hailofilter -+
//	aggregator -> identity -> hailooverlay -> tee -> preview / export / record
func DetectionPipeline(opts *DetectionOptions) string {
	cropSO := opts.CropSO
	if cropSO == "" {
		cropSO = DefaultCropSO
	}
	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = 1
	}

	sections := []string{}

	// Source, color conversion, and the cropper that feeds both the bypass
	// and inference branches of the aggregator.
	sections = append(sections, chain(
		fmt.Sprintf("libcamerasrc camera-name=%v name=source", Quote(opts.CameraName)),
		fmt.Sprintf("video/x-raw,format=NV12,width=%v,height=%v,framerate=%v/1", opts.Width, opts.Height, opts.FPS),
		Queue("source_q", 3),
		"videoconvert n-threads=2 qos=false",
		fmt.Sprintf("video/x-raw,pixel-aspect-ratio=1/1,format=RGB,width=%v,height=%v", opts.Width, opts.Height),
		Queue("inference_wrapper_input_q", 3),
		fmt.Sprintf("hailocropper name=inference_wrapper_crop so-path=%v function-name=create_crops use-letterbox=true resize-method=inter-area internal-offset=true",
			Quote(cropSO)),
	))

	sections = append(sections, "hailoaggregator name=inference_wrapper_agg")

	// Bypass branch: full frames go straight to the aggregator
	sections = append(sections, chain(
		"inference_wrapper_crop.",
		Queue("inference_wrapper_bypass_q", 20),
		"inference_wrapper_agg.sink_0",
	))

	// Inference branch: scale, run the network, decode detections
	sections = append(sections, chain(
		"inference_wrapper_crop.",
		Queue("inference_scale_q", 3),
		"videoscale n-threads=2 qos=false",
		Queue("inference_convert_q", 3),
		"videoconvert n-threads=2 qos=false",
		Queue("inference_hailonet_q", 3),
		fmt.Sprintf("hailonet name=inference_hailonet hef-path=%v batch-size=%v vdevice-group-id=1 output-format-type=HAILO_FORMAT_TYPE_FLOAT32 force-writable=true",
			Quote(opts.HEF), batchSize),
		Queue("inference_hailofilter_q", 3),
		fmt.Sprintf("hailofilter name=inference_hailofilter so-path=%v function-name=%v qos=false",
			Quote(opts.PostprocessSO), opts.PostprocessFunction),
		Queue("inference_output_q", 3),
		"inference_wrapper_agg.sink_1",
	))

	// Output: raw_t carries clean frames (snapshots), t carries frames with
	// boxes drawn by hailooverlay (preview, recording)
	sections = append(sections, chain(
		"inference_wrapper_agg.",
		Queue("postagg_q", 3),
		"identity name=identity_callback",
		"tee name=raw_t",
	))

	sections = append(sections, chain(
		"raw_t.",
		Queue("overlay_q", 3),
		"hailooverlay name=hailo_overlay",
		Queue("display_convert_q", 3),
		"videoconvert n-threads=2 qos=false",
		"video/x-raw,format=BGRx",
		"tee name=t",
	))

	sink := "fakesink sync=false"
	if opts.Display {
		sink = "autovideosink sync=true"
	}
	sections = append(sections, chain("t.", Queue("preview_q", 3), sink))

	if opts.ExportFile != "" {
		sections = append(sections, chain(
			"t.",
			Queue("export_q", 3),
			fmt.Sprintf("hailoexportfile location=%v", Quote(opts.ExportFile)),
		))
	}

	if opts.SnapshotFile != "" {
		// videorate caps the PNG encode cost; multifilesink with a fixed
		// location overwrites the file on every buffer, so the file is
		// always (close to) the latest frame.
		sections = append(sections, chain(
			"raw_t.",
			Queue("snapshot_q", 3),
			"videorate drop-only=true",
			"video/x-raw,framerate=2/1",
			"videoconvert n-threads=2 qos=false",
			"video/x-raw,format=RGB",
			"pngenc",
			fmt.Sprintf("multifilesink location=%v", Quote(opts.SnapshotFile)),
		))
	}

	if opts.RecordFile != "" {
		bitrate := opts.RecordBitrateKbps
		if bitrate == 0 {
			bitrate = 8000
		}
		sections = append(sections, chain(
			"t.",
			Queue("record_q", 3),
			"videoconvert n-threads=2 qos=false",
			"video/x-raw,format=I420",
			fmt.Sprintf("x264enc tune=zerolatency speed-preset=veryfast bitrate=%v key-int-max=30", bitrate),
			"h264parse config-interval=1",
			"matroskamux",
			fmt.Sprintf("filesink location=%v sync=false", Quote(opts.RecordFile)),
		))
	}

	return strings.Join(sections, " ")
}

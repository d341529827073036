package camrec

import (
	"fmt"
	"os/exec"
	"strconv"

	"github.com/cyclopcam/logs"
)

// RemuxToMP4 rewraps a recording into an MP4 container without re-encoding
// (ffmpeg -c copy). fps is required for raw .h264 input, which carries no
// timing; pass 0 for containers that do (mkv).
func RemuxToMP4(logger logs.Log, srcFilename, dstFilename string, fps int) error {
	args := []string{"-y"}
	if fps != 0 {
		args = append(args, "-r", strconv.Itoa(fps))
	}
	args = append(args,
		"-i", srcFilename,
		"-c", "copy",
		"-movflags", "+faststart",
		dstFilename,
	)

	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("Unable to find ffmpeg in your path (%w)", err)
	}
	logger.Infof("Remuxing %v -> %v", srcFilename, dstFilename)

	cmd := exec.Command(ffmpeg, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		outStr := ""
		if out != nil {
			outStr = string(out)
		}
		return fmt.Errorf("ffmpeg execution failed: %w (%v)", err, outStr)
	}
	return nil
}

package storage

// Package storage estimates how long a disk can absorb camera recordings,
// and reports free space on the recording volume.

import (
	"golang.org/x/sys/unix"

	"github.com/pihailo/pihailo/pkg/kibi"
)

// Estimate is the answer to "how long until this disk is full?", for a
// given recording setup.
type Estimate struct {
	Path              string  `json:"path"`
	FreeBytes         int64   `json:"freeBytes"`
	TotalBytes        int64   `json:"totalBytes"`
	Free              string  `json:"free"`  // human readable FreeBytes
	Total             string  `json:"total"` // human readable TotalBytes
	BitrateMbps       float64 `json:"bitrateMbps"`
	CompressedMinutes float64 `json:"compressedMinutes"` // at BitrateMbps
	RGB24Minutes      float64 `json:"rgb24Minutes"`      // uncompressed, 24 bits per pixel
	YUV420Minutes     float64 `json:"yuv420Minutes"`     // uncompressed, ~12 bits per pixel
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	FPS               float64 `json:"fps"`
}

// MinutesUntilFullFromBitrate estimates recording time for a compressed
// stream of the given bitrate (megabits per second).
func MinutesUntilFullFromBitrate(storageBytes int64, bitrateMbps float64) float64 {
	if bitrateMbps <= 0 {
		return 0
	}
	bitsPerSec := bitrateMbps * 1000 * 1000
	seconds := float64(storageBytes) * 8 / bitsPerSec
	return seconds / 60
}

// MinutesUntilFullUncompressed estimates recording time for raw frames.
// bitsPerPixel: RGB24 is 24, YUV420 is approximately 12.
func MinutesUntilFullUncompressed(storageBytes int64, width, height int, fps, bitsPerPixel float64) float64 {
	bytesPerFrame := float64(width) * float64(height) * bitsPerPixel / 8
	bytesPerSec := bytesPerFrame * fps
	if bytesPerSec <= 0 {
		return 0
	}
	seconds := float64(storageBytes) / bytesPerSec
	return seconds / 60
}

// DiskFree returns the free and total bytes of the filesystem holding path.
func DiskFree(path string) (free, total int64, err error) {
	st := unix.Statfs_t{}
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, err
	}
	return int64(st.Bavail) * int64(st.Bsize), int64(st.Blocks) * int64(st.Bsize), nil
}

// MakeEstimate queries free space at path and computes all the estimates.
func MakeEstimate(path string, width, height int, fps, bitrateMbps float64) (*Estimate, error) {
	free, total, err := DiskFree(path)
	if err != nil {
		return nil, err
	}
	return MakeEstimateForSpace(path, free, total, width, height, fps, bitrateMbps), nil
}

// MakeEstimateForSpace computes the estimates for an explicit amount of free
// space, instead of measuring the disk. Used to answer hypotheticals such as
// "how long would 80 GB last?".
func MakeEstimateForSpace(path string, free, total int64, width, height int, fps, bitrateMbps float64) *Estimate {
	return &Estimate{
		Path:              path,
		FreeBytes:         free,
		TotalBytes:        total,
		Free:              kibi.FormatBytes(free),
		Total:             kibi.FormatBytes(total),
		BitrateMbps:       bitrateMbps,
		CompressedMinutes: MinutesUntilFullFromBitrate(free, bitrateMbps),
		RGB24Minutes:      MinutesUntilFullUncompressed(free, width, height, fps, 24),
		YUV420Minutes:     MinutesUntilFullUncompressed(free, width, height, fps, 12),
		Width:             width,
		Height:            height,
		FPS:               fps,
	}
}

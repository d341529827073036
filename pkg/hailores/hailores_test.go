package hailores

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestFindEnvFile(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(deep, 0755))
	envPath := filepath.Join(root, "a", ".env")
	writeFile(t, envPath)

	found, err := FindEnvFile(deep)
	require.NoError(t, err)
	require.Equal(t, envPath, found)

	// A directory named ".env" must not count
	require.NoError(t, os.Remove(envPath))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", ".env"), 0755))
	_, err = FindEnvFile(deep)
	require.Error(t, err)
}

func TestDiscoverFromEnv(t *testing.T) {
	logger := logs.NewTestingLog(t)
	root := t.TempDir()
	hefPath := filepath.Join(root, "models", "yolov8s_h8l.hef")
	soPath := filepath.Join(root, "so", "libyolo_hailortpp_postprocess.so")
	writeFile(t, hefPath)
	writeFile(t, soPath)

	// Relative paths resolve against the .env directory, absolute pass through
	env := "HEF_PATH=models/yolov8s_h8l.hef\nPOSTPROCESS_SO=" + soPath + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte(env), 0644))

	startDir := filepath.Join(root, "sub", "dir")
	require.NoError(t, os.MkdirAll(startDir, 0755))

	res, err := Discover(logger, startDir)
	require.NoError(t, err)
	require.Equal(t, hefPath, res.HEF)
	require.Equal(t, soPath, res.PostprocessSO)
	require.Equal(t, DefaultPostprocessFunction, res.PostprocessFunction)
	require.Equal(t, filepath.Join(root, ".env"), res.EnvFile)
}

func TestDiscoverKeyAliases(t *testing.T) {
	logger := logs.NewTestingLog(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "net.hef"))
	writeFile(t, filepath.Join(root, "post.so"))

	env := "NETWORK_HEF=net.hef\nHAILO_POSTPROCESS_SO=post.so\nYOLO_POSTPROCESS_FUNCTION=yolov5\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte(env), 0644))

	res, err := Discover(logger, root)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "net.hef"), res.HEF)
	require.Equal(t, filepath.Join(root, "post.so"), res.PostprocessSO)
	require.Equal(t, "yolov5", res.PostprocessFunction)

	// HEF_PATH wins over NETWORK_HEF
	writeFile(t, filepath.Join(root, "primary.hef"))
	env = "HEF_PATH=primary.hef\n" + env
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte(env), 0644))
	res, err = Discover(logger, root)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "primary.hef"), res.HEF)
}

func TestDiscoverMissingFileFallsBack(t *testing.T) {
	logger := logs.NewTestingLog(t)
	root := t.TempDir()

	// .env present, but points at files that don't exist
	env := "HEF_PATH=ghost.hef\nPOSTPROCESS_SO=ghost.so\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte(env), 0644))

	_, err := discoverFromEnv(logger, root)
	require.Error(t, err)
}

func TestScanDirs(t *testing.T) {
	logger := logs.NewTestingLog(t)
	modelDir := t.TempDir()
	soDir := t.TempDir()

	writeFile(t, filepath.Join(modelDir, "yolov8s_pose.hef"))
	writeFile(t, filepath.Join(modelDir, "yolov5m_seg.hef"))
	writeFile(t, filepath.Join(modelDir, "yolov6n.hef"))
	writeFile(t, filepath.Join(soDir, "libdepth_postprocess.so"))
	writeFile(t, filepath.Join(soDir, "libyolo_hailortpp_postprocess.so"))

	res, err := scanDirs(logger, []string{modelDir, soDir})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(modelDir, "yolov6n.hef"), res.HEF)
	require.Equal(t, filepath.Join(soDir, "libyolo_hailortpp_postprocess.so"), res.PostprocessSO)
	require.Equal(t, DefaultPostprocessFunction, res.PostprocessFunction)
	require.Equal(t, "", res.EnvFile)
}

func TestScanPreferenceOrder(t *testing.T) {
	logger := logs.NewTestingLog(t)
	dir := t.TempDir()

	// yolov6s ranks above yolov8s, and both below yolov6n
	writeFile(t, filepath.Join(dir, "yolov8s.hef"))
	writeFile(t, filepath.Join(dir, "yolov6s.hef"))
	writeFile(t, filepath.Join(dir, "libyolo_hailortpp_postprocess.so"))

	res, err := scanDirs(logger, []string{dir})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "yolov6s.hef"), res.HEF)

	writeFile(t, filepath.Join(dir, "yolov6n.hef"))
	res, err = scanDirs(logger, []string{dir})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "yolov6n.hef"), res.HEF)
}

func TestScanLastResort(t *testing.T) {
	logger := logs.NewTestingLog(t)
	dir := t.TempDir()

	// No preferred names, no clean yolo detection model. Pose/seg excluded,
	// so we land on the first file.
	writeFile(t, filepath.Join(dir, "ayolo_pose.hef"))
	writeFile(t, filepath.Join(dir, "zz_custom.hef"))
	writeFile(t, filepath.Join(dir, "libplain_postprocess.so"))

	res, err := scanDirs(logger, []string{dir})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "ayolo_pose.hef"), res.HEF)
	require.Equal(t, filepath.Join(dir, "libplain_postprocess.so"), res.PostprocessSO)
}

func TestScanFailure(t *testing.T) {
	logger := logs.NewTestingLog(t)
	empty := t.TempDir()
	_, err := scanDirs(logger, []string{empty})
	require.Error(t, err)
	require.Contains(t, err.Error(), "need one of each")
}

func TestDiscoverTotalFailure(t *testing.T) {
	// Note: this test relies on the well-known directories not containing
	// Hailo resources on the build machine, which is true everywhere except
	// an actual provisioned Pi. Point HOME at an empty dir to be safe.
	t.Setenv("HOME", t.TempDir())

	logger := logs.NewTestingLog(t)
	startDir := filepath.Join(t.TempDir(), "nowhere")
	require.NoError(t, os.MkdirAll(startDir, 0755))

	if _, err := os.Stat("/usr/local/hailo"); err == nil {
		t.Skip("Machine has Hailo resources installed")
	}

	_, err := Discover(logger, startDir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Unable to locate Hailo detection resources")
}

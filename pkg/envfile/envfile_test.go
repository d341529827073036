package envfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	src := `
# comment line
HEF_PATH=/usr/local/hailo/resources/models/hailo8l/yolov8s_h8l.hef

POSTPROCESS_SO="so/libyolo_hailortpp_postprocess.so"
POSTPROCESS_FUNCTION='filter_letterbox'
export BATCH_SIZE=2
   # indented comment
SPACED  =  value with spaces
HASH=value#notacomment
EMPTY=
garbage line without equals
=nokey
DUPE=first
DUPE=second
`
	values, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, "/usr/local/hailo/resources/models/hailo8l/yolov8s_h8l.hef", values["HEF_PATH"])
	require.Equal(t, "so/libyolo_hailortpp_postprocess.so", values["POSTPROCESS_SO"])
	require.Equal(t, "filter_letterbox", values["POSTPROCESS_FUNCTION"])
	require.Equal(t, "2", values["BATCH_SIZE"])
	require.Equal(t, "value with spaces", values["SPACED"])
	require.Equal(t, "value#notacomment", values["HASH"])
	require.Equal(t, "", values["EMPTY"])
	require.Equal(t, "second", values["DUPE"])
	require.NotContains(t, values, "garbage line without equals")
	require.NotContains(t, values, "")
}

func TestParseQuotes(t *testing.T) {
	values, err := Parse(strings.NewReader("A=\"double\"\nB='single'\nC=\"mismatched'\nD=\"\n"))
	require.NoError(t, err)
	require.Equal(t, "double", values["A"])
	require.Equal(t, "single", values["B"])
	require.Equal(t, "\"mismatched'", values["C"])
	require.Equal(t, "\"", values["D"])
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(filename, []byte("HEF=model.hef\n"), 0644))

	values, err := Load(filename)
	require.NoError(t, err)
	require.Equal(t, "model.hef", values["HEF"])

	_, err = Load(filepath.Join(dir, "missing.env"))
	require.Error(t, err)
}

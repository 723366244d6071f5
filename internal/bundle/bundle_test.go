package bundle

import (
	"bytes"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmo-im/codelists/internal/models"
)

func testTree() *models.Node {
	root := &models.Node{Name: "earth-system-discipline", Role: models.RoleRoot}
	weather := root.AddChild(&models.Node{Name: "weather", Role: models.RoleCollection})
	weather.AddChild(&models.Node{Name: "surface-based-observations", Role: models.RoleConcept})
	weather.AddChild(&models.Node{Name: "aviation", Role: models.RoleConcept})
	root.AddChild(&models.Node{Name: "climate", Role: models.RoleConcept})
	return root
}

func TestPaths(t *testing.T) {
	assert.Equal(t, []string{
		"climate",
		"weather",
		"weather/aviation",
		"weather/surface-based-observations",
	}, Paths(testTree()))
}

func TestPaths_RootOnly(t *testing.T) {
	assert.Empty(t, Paths(&models.Node{Name: "root", Role: models.RoleRoot}))
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, []string{"a", "a/b,c"}))
	assert.Equal(t, "Name\na\n\"a/b,c\"\n", buf.String())
}

func TestWriteFile(t *testing.T) {
	fs := memfs.New()
	n, err := WriteFile(fs, "out/bundle.csv", testTree())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	data, err := util.ReadFile(fs, "out/bundle.csv")
	require.NoError(t, err)
	assert.Equal(t, "Name\nclimate\nweather\nweather/aviation\nweather/surface-based-observations\n", string(data))
}

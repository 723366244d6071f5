package walker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmo-im/codelists/internal/apperr"
	"github.com/wmo-im/codelists/internal/models"
	"github.com/wmo-im/codelists/internal/skos"
	"github.com/wmo-im/codelists/internal/source"
	"github.com/wmo-im/codelists/internal/storage"
)

const testBase = "http://codes.wmo.int/wis/"

func catalog(t *testing.T, files map[string]string) *source.Catalog {
	t.Helper()
	fs := memfs.New()
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
	}
	c, err := source.NewCatalog(fs)
	require.NoError(t, err)
	return c
}

func newStore(t *testing.T) *storage.FS {
	t.Helper()
	s, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)
	return s
}

func opts() Options {
	return Options{RootName: "topic-hierarchy", RootDescription: "WIS2 topic hierarchy", Workers: 4}
}

func readDoc(t *testing.T, s *storage.FS, rel string) string {
	t.Helper()
	data, err := s.Read(rel)
	require.NoError(t, err)
	return string(data)
}

func oceanFiles() map[string]string {
	return map[string]string{
		"index.csv":             "Name,Description\nocean,Ocean topics\n",
		"ocean/index.csv":       "Name,Description,Source\nwaves,Waves,https://example.org/waves\n",
		"ocean/waves/index.csv": "Name,Description\nheight,Wave height\n",
	}
}

func TestCompile_NestedOcean(t *testing.T) {
	store := newStore(t)
	root, res, err := Compile(context.Background(), catalog(t, oceanFiles()), store, opts())
	require.NoError(t, err)

	assert.Equal(t, 4, root.Count())
	assert.Equal(t, 4, res.Documents)
	assert.Equal(t, 3, res.Collections)
	assert.Equal(t, 1, res.Concepts)
	assert.Equal(t, []string{"topic-hierarchy/ocean"}, res.Subregisters)

	docs, err := store.List("")
	require.NoError(t, err)
	var paths []string
	for _, d := range docs {
		paths = append(paths, d.Path)
	}
	assert.ElementsMatch(t, []string{
		"topic-hierarchy.ttl",
		"topic-hierarchy/ocean.ttl",
		"topic-hierarchy/ocean/waves.ttl",
		"topic-hierarchy/ocean/waves/height.ttl",
	}, paths)

	rootDoc := readDoc(t, store, "topic-hierarchy.ttl")
	assert.Contains(t, rootDoc, "reg:subregister <topic-hierarchy/ocean>")

	waves := readDoc(t, store, "topic-hierarchy/ocean/waves.ttl")
	assert.Contains(t, waves, "<waves> a reg:Register , skos:Collection , ldp:Container ;")
	assert.Contains(t, waves, `rdfs:isDefinedBy "https://example.org/waves"`)

	height := readDoc(t, store, "topic-hierarchy/ocean/waves/height.ttl")
	assert.Contains(t, height, "<height> a skos:Concept ;")
	assert.Contains(t, height, `dct:description "Wave height"@en`)
}

func TestCompile_RowWithoutDirectoryIsConcept(t *testing.T) {
	store := newStore(t)
	root, _, err := Compile(context.Background(), catalog(t, map[string]string{
		"index.csv":       "Name,Description\nocean,Ocean\nair,Air\n",
		"ocean/index.csv": "Name,Description\nwaves,Waves\n",
	}), store, opts())
	require.NoError(t, err)

	assert.Equal(t, models.RoleCollection, root.Child("ocean").Role)
	assert.Equal(t, models.RoleConcept, root.Child("air").Role)
	assert.Contains(t, readDoc(t, store, "topic-hierarchy/air.ttl"), "<air> a skos:Concept ;")
}

func TestCompile_FlatRegionStation(t *testing.T) {
	store := newStore(t)
	_, res, err := Compile(context.Background(), catalog(t, map[string]string{
		"index.csv": "Name,Description\nstations,Stations\n",
		"stations/index-flat.csv": "Region,Region-description,Station,Station-description\n" +
			"EU,Europe,P1,ParisStation\nEU,Europe,P2,BerlinStation\nNA,NorthAmerica,P3,NYStation\n",
	}), store, opts())
	require.NoError(t, err)

	assert.Equal(t, 7, res.Documents)
	for _, rel := range []string{
		"topic-hierarchy/stations/EU.ttl",
		"topic-hierarchy/stations/NA.ttl",
		"topic-hierarchy/stations/EU/P1.ttl",
		"topic-hierarchy/stations/EU/P2.ttl",
		"topic-hierarchy/stations/NA/P3.ttl",
	} {
		_, err := store.Read(rel)
		assert.NoError(t, err, rel)
	}
	assert.Contains(t, readDoc(t, store, "topic-hierarchy/stations/EU/P2.ttl"), `"BerlinStation"@en`)
	assert.Contains(t, readDoc(t, store, "topic-hierarchy/stations/EU.ttl"), "skos:Collection")
}

func TestCompile_FlatAndNestedEquivalent(t *testing.T) {
	nestedStore := newStore(t)
	_, _, err := Compile(context.Background(), catalog(t, map[string]string{
		"index.csv":    "Name,Description\nEU,Europe\nNA,NorthAmerica\n",
		"EU/index.csv": "Name,Description\nP1,ParisStation\nP2,BerlinStation\n",
		"NA/index.csv": "Name,Description\nP3,NYStation\n",
	}), nestedStore, opts())
	require.NoError(t, err)

	flatStore := newStore(t)
	_, _, err = Compile(context.Background(), catalog(t, map[string]string{
		"index-flat.csv": "Region,Region-description,Station,Station-description\n" +
			"EU,Europe,P1,ParisStation\nEU,Europe,P2,BerlinStation\nNA,NorthAmerica,P3,NYStation\n",
	}), flatStore, opts())
	require.NoError(t, err)

	nestedDocs, err := nestedStore.List("")
	require.NoError(t, err)
	flatDocs, err := flatStore.List("")
	require.NoError(t, err)
	require.Len(t, flatDocs, len(nestedDocs))

	for i := range nestedDocs {
		assert.Equal(t, nestedDocs[i].Path, flatDocs[i].Path)
		a, err := skos.ParseGraph([]byte(readDoc(t, nestedStore, nestedDocs[i].Path)), testBase)
		require.NoError(t, err)
		b, err := skos.ParseGraph([]byte(readDoc(t, flatStore, flatDocs[i].Path)), testBase)
		require.NoError(t, err)
		assert.True(t, a.Equal(b), nestedDocs[i].Path)
	}
}

func TestCompile_Idempotent(t *testing.T) {
	c := catalog(t, oceanFiles())
	store := newStore(t)

	_, _, err := Compile(context.Background(), c, store, opts())
	require.NoError(t, err)
	first, err := store.List("")
	require.NoError(t, err)

	_, _, err = Compile(context.Background(), c, store, opts())
	require.NoError(t, err)
	second, err := store.List("")
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Path, second[i].Path)
		assert.Equal(t, first[i].Checksum, second[i].Checksum)
	}
}

func TestCompile_RemovesStaleDocuments(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Write("topic-hierarchy/gone.ttl", []byte("<gone> a <x> .")))

	_, _, err := Compile(context.Background(), catalog(t, oceanFiles()), store, opts())
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(store.Root(), "topic-hierarchy", "gone.ttl"))
	assert.True(t, os.IsNotExist(err))
}

func TestCompile_MissingSource(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Write("topic-hierarchy.ttl", []byte("keep")))

	_, _, err := Compile(context.Background(), catalog(t, map[string]string{
		"index.csv":       "Name,Description\nocean,Ocean\n",
		"ocean/notes.txt": "no index here",
	}), store, opts())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrMissingSource))

	var ms *source.MissingSourceError
	require.True(t, errors.As(err, &ms))
	assert.Equal(t, "ocean", ms.Dir)

	assert.Equal(t, "keep", readDoc(t, store, "topic-hierarchy.ttl"), "a failed build leaves the output untouched")
}

func TestCompile_UnsortedFlatTableFails(t *testing.T) {
	_, _, err := Compile(context.Background(), catalog(t, map[string]string{
		"index-flat.csv": "Region,Region-description,Station,Station-description\n" +
			"EU,Europe,P1,a\nNA,NorthAmerica,P3,b\nEU,Europe,P2,c\n",
	}), newStore(t), opts())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnsortedTable))
}

func TestCompile_DuplicateNestedRowFolded(t *testing.T) {
	root, res, err := Compile(context.Background(), catalog(t, map[string]string{
		"index.csv": "Name,Description\nair,Air\nair,Air again\n",
	}), newStore(t), opts())
	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "Air", root.Children[0].Description)
	assert.Equal(t, 2, res.Documents)
}

func TestCompile_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Compile(ctx, catalog(t, oceanFiles()), newStore(t), opts())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_RequiresRootName(t *testing.T) {
	_, err := Build(context.Background(), catalog(t, oceanFiles()), Options{})
	assert.Error(t, err)
}

package metadata

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	jpegstructure "github.com/dsoprea/go-jpeg-image-structure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pexelscraper/pkg/pexels"
	"pexelscraper/pkg/storage"
)

func testPhoto() pexels.Photo {
	return pexels.Photo{
		ID:              42,
		Width:           4000,
		Height:          3000,
		Photographer:    "Jane Doe",
		PhotographerURL: "https://www.pexels.com/@jane",
		Alt:             "a face",
		Src: map[string]string{
			"original": "https://images.pexels.com/photos/42/original.jpeg",
		},
	}
}

func TestFromPhoto(t *testing.T) {
	meta := FromPhoto(testPhoto(), "original", "42_Jane Doe.jpg", 1234)

	assert.Equal(t, int64(42), meta.ID)
	assert.Equal(t, "Jane Doe", meta.Photographer)
	assert.Equal(t, "https://www.pexels.com/@jane", meta.PhotographerURL)
	assert.Equal(t, "https://images.pexels.com/photos/42/original.jpeg", meta.URL)
	assert.Equal(t, "original", meta.Resolution)
	assert.Equal(t, "42_Jane Doe.jpg", meta.Filename)
	assert.Equal(t, int64(1234), meta.Size)
	assert.WithinDuration(t, time.Now(), meta.DownloadedAt, time.Minute)
}

func TestManifestAddReplacesByFilename(t *testing.T) {
	m := NewManifest("face")
	require.NoError(t, m.Add(PhotoMetadata{ID: 1, Filename: "1_A.jpg", Size: 10}))
	require.NoError(t, m.Add(PhotoMetadata{ID: 2, Filename: "2_B.jpg", Size: 20}))
	require.NoError(t, m.Add(PhotoMetadata{ID: 1, Filename: "1_A.jpg", Size: 11}))

	assert.Equal(t, 2, m.Len())
	got, ok := m.Get("1_A.jpg")
	require.True(t, ok)
	assert.Equal(t, int64(11), got.Size)
	assert.Equal(t, "1_A.jpg", m.Photos[0].Filename)

	_, ok = m.Get("missing.jpg")
	assert.False(t, ok)
}

func TestManifestAddKeepsEarlierFields(t *testing.T) {
	m := NewManifest("face")
	require.NoError(t, m.Add(PhotoMetadata{
		ID:              7,
		Filename:        "7_A.jpg",
		PhotographerURL: "https://www.pexels.com/@a",
		Alt:             "a smiling face",
		Width:           4000,
		Size:            100,
	}))
	require.NoError(t, m.Add(PhotoMetadata{ID: 7, Filename: "7_A.jpg", Resolution: "large", Size: 50}))

	got, ok := m.Get("7_A.jpg")
	require.True(t, ok)
	assert.Equal(t, int64(50), got.Size)
	assert.Equal(t, "large", got.Resolution)
	assert.Equal(t, "a smiling face", got.Alt)
	assert.Equal(t, 4000, got.Width)
	assert.Equal(t, "https://www.pexels.com/@a", got.PhotographerURL)
}

func TestManifestSaveAndMerge(t *testing.T) {
	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)
	path := store.Path("face_metadata.json")

	first, err := LoadManifest(path, "face")
	require.NoError(t, err)
	assert.Equal(t, 0, first.Len())

	require.NoError(t, first.Add(PhotoMetadata{ID: 1, Filename: "1_A.jpg"}))
	require.NoError(t, first.Save(store, "face_metadata.json"))

	second, err := LoadManifest(path, "face")
	require.NoError(t, err)
	require.NoError(t, second.Add(PhotoMetadata{ID: 2, Filename: "2_B.jpg"}))
	require.NoError(t, second.Save(store, "face_metadata.json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Manifest
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "face", decoded.Query)
	require.Len(t, decoded.Photos, 2)
	assert.Equal(t, int64(1), decoded.Photos[0].ID)
	assert.Equal(t, int64(2), decoded.Photos[1].ID)
	assert.False(t, decoded.UpdatedAt.IsZero())
}

func TestLoadManifestRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadManifest(path, "face")
	assert.Error(t, err)
}

func TestCopyrightNotice(t *testing.T) {
	c := Credit{Photographer: "Jane Doe", ProfileURL: "https://www.pexels.com/@jane"}
	assert.Equal(t, "Photo by Jane Doe on Pexels", c.CopyrightNotice())
}

type recordingStore struct {
	dir     string
	written map[string][]byte
}

func (s *recordingStore) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

func (s *recordingStore) WriteFile(filename string, data []byte) error {
	s.written[filename] = data
	return nil
}

func TestEmbedCreditMissingFile(t *testing.T) {
	store := &recordingStore{dir: t.TempDir(), written: map[string][]byte{}}

	_, err := EmbedCredit(store, "404_Nobody.jpg", Credit{Photographer: "Nobody"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404_Nobody.jpg")
	assert.Empty(t, store.written)
}

func plainJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestEmbedCreditWithoutExistingExif(t *testing.T) {
	store, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.WriteFile("42_Jane_Doe.jpg", plainJPEG(t)))

	credit := Credit{Photographer: "Jane Doe", ProfileURL: "https://www.pexels.com/@jane"}
	size, err := EmbedCredit(store, "42_Jane_Doe.jpg", credit)
	require.NoError(t, err)

	info, err := os.Stat(store.Path("42_Jane_Doe.jpg"))
	require.NoError(t, err)
	assert.Equal(t, info.Size(), size)

	intfc, err := jpegstructure.NewJpegMediaParser().ParseFile(store.Path("42_Jane_Doe.jpg"))
	require.NoError(t, err)
	_, _, tags, err := intfc.(*jpegstructure.SegmentList).DumpExif()
	require.NoError(t, err)

	values := map[string]interface{}{}
	for _, tag := range tags {
		values[tag.TagName] = tag.Value
	}
	assert.Equal(t, "Jane Doe", values["Artist"])
	assert.Equal(t, "Photo by Jane Doe on Pexels", values["Copyright"])
	assert.Equal(t, "https://www.pexels.com/@jane", values["ImageDescription"])
}
